package docpipe

import (
	"bytes"
	"compress/zlib"
	"strings"
	"testing"
)

// buildRawPDF assembles a syntactically loose PDF that the strict reader
// rejects, forcing the raw content-stream scan.
func buildRawPDF(body string) []byte {
	return []byte("%PDF-1.4\n" + body + "\n%%EOF")
}

func TestExtractPDFTextOperators(t *testing.T) {
	body := `1 0 obj
<< /Type /Page >>
endobj
BT
/F1 12 Tf
(Der Klaeger fordert) Tj
[(Schadens) -20 (ersatz)] TJ
(naechste Zeile) '
<48656C6C6F> Tj
ET`
	ex := extractPDF(buildRawPDF(body), 0)
	if ex.encrypted {
		t.Fatal("unexpected encrypted flag")
	}
	for _, want := range []string{"Der Klaeger fordert", "Schadensersatz", "naechste Zeile", "Hello"} {
		if !strings.Contains(ex.text, want) {
			t.Errorf("missing %q in %q", want, ex.text)
		}
	}
}

func TestExtractPDFStringEscapes(t *testing.T) {
	body := `BT
(Zeile\nUmbruch \(Klammer\) \\Backslash \101BC) Tj
ET`
	ex := extractPDF(buildRawPDF(body), 0)
	for _, want := range []string{"Zeile\nUmbruch", "(Klammer)", `\Backslash`, "ABC"} {
		if !strings.Contains(ex.text, want) {
			t.Errorf("missing %q in %q", want, ex.text)
		}
	}
}

func TestExtractPDFEncrypted(t *testing.T) {
	ex := extractPDF(buildRawPDF("<< /Encrypt 5 0 R >>\nBT (geheim) Tj ET"), 0)
	if !ex.encrypted {
		t.Fatal("encryption marker not detected")
	}
	if ex.text != "" {
		t.Errorf("encrypted pdf must yield no text, got %q", ex.text)
	}
}

func TestExtractPDFFlateFallback(t *testing.T) {
	// Text hidden inside a FlateDecode stream with no top-level BT blocks.
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	zw.Write([]byte("BT (versteckter Inhalt) Tj ET"))
	zw.Close()

	var body bytes.Buffer
	body.WriteString("2 0 obj\n<< /Filter /FlateDecode /Length ")
	body.WriteString("29")
	body.WriteString(" >>\nstream\n")
	body.Write(compressed.Bytes())
	body.WriteString("\nendstream\nendobj")

	ex := extractPDF(buildRawPDF(body.String()), 0)
	if !strings.Contains(ex.text, "versteckter Inhalt") {
		t.Errorf("flate fallback failed, got %q", ex.text)
	}
}

func TestEstimatePageCount(t *testing.T) {
	data := []byte(`<< /Type /Page >> << /Type /Page >> << /Type /Pages /Count 2 >>`)
	if got := estimatePageCount(data, len(data)); got != 2 {
		t.Errorf("page count = %d, want 2", got)
	}

	// No page markers at all: size heuristic.
	if got := estimatePageCount([]byte("x"), 120*1024); got < 1 {
		t.Errorf("size heuristic returned %d", got)
	}
}
