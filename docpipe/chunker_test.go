package docpipe

import (
	"strings"
	"testing"
)

func TestChunkTextBoundedLength(t *testing.T) {
	inputs := []string{
		strings.Repeat("Kurzer Absatz mit etwas Inhalt.\n\n", 100),
		strings.Repeat("Ein sehr langer Satz ohne Absatzgrenzen der immer weiter geht. ", 200),
		// OCR-like text without punctuation.
		strings.Repeat("wort ", 2000),
	}
	cfg := Config{}
	for _, in := range inputs {
		for _, c := range ChunkText(in, cfg) {
			if len(c.Text) > 1500 {
				t.Fatalf("chunk length %d exceeds hard max", len(c.Text))
			}
			if strings.TrimSpace(c.Text) == "" {
				t.Fatal("empty chunk emitted")
			}
		}
	}
}

func TestChunkTextIndices(t *testing.T) {
	chunks := ChunkText(strings.Repeat("Absatz Inhalt hier.\n\n", 200), Config{})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Fatalf("chunk %d has index %d", i, c.Index)
		}
	}
}

func TestChunkTextOverlap(t *testing.T) {
	chunks := ChunkText(strings.Repeat("Der Vertrag wurde unterschrieben.\n\n", 100), Config{})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// The second chunk starts with the tail of the first.
	head := chunks[1].Text[:20]
	if !strings.Contains(chunks[0].Text, strings.TrimSpace(head)) {
		t.Errorf("no overlap between consecutive chunks: %q", head)
	}
}

func TestChunkTextEmpty(t *testing.T) {
	if got := ChunkText("   \n\n  ", Config{}); got != nil {
		t.Errorf("expected nil chunks for blank input, got %d", len(got))
	}
}

func TestChunkTextSingleShort(t *testing.T) {
	chunks := ChunkText("Nur ein kurzer Text.", Config{})
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "Nur ein kurzer Text." {
		t.Errorf("unexpected chunk text %q", chunks[0].Text)
	}
}
