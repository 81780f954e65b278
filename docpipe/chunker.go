package docpipe

import "strings"

var sentenceEnd = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

// ChunkText splits normalized text into retrieval-sized segments. Paragraphs
// are accumulated until the target size is reached; paragraphs larger than
// the hard cap are re-split at sentence boundaries, and sentences that still
// exceed the cap are window-split at the nearest space. Consecutive chunks
// overlap so boundary context is not lost.
//
// The buffer flushes as soon as appending the next piece would pass
// ChunkTarget, not when it would pass ChunkMax. Flushing at the target keeps
// chunks near the size retrieval is tuned for, and because every piece is
// pre-split to at most ChunkMax (with the overlap seed suppressed when it
// would not fit), no emitted chunk can exceed the hard cap either way.
func ChunkText(text string, cfg Config) []Chunk {
	(&cfg).defaults()
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	paragraphs := strings.Split(text, "\n\n")
	var pieces []string
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if len(p) <= cfg.ChunkMax {
			pieces = append(pieces, p)
			continue
		}
		for _, s := range splitSentences(p) {
			if len(s) <= cfg.ChunkMax {
				pieces = append(pieces, s)
			} else {
				pieces = append(pieces, windowSplit(s, cfg.ChunkMax)...)
			}
		}
	}

	var chunks []Chunk
	var buf strings.Builder
	flush := func() {
		content := strings.TrimSpace(buf.String())
		buf.Reset()
		if content == "" {
			return
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: content})
	}

	for _, piece := range pieces {
		if buf.Len() > 0 && buf.Len()+len(piece)+2 > cfg.ChunkTarget {
			flush()
			// Seed the next chunk with the tail of the previous one.
			if cfg.ChunkOverlap > 0 && len(chunks) > 0 {
				prev := chunks[len(chunks)-1].Text
				tail := overlapTail(prev, cfg.ChunkOverlap)
				// Skip the overlap when it would push the next chunk past
				// the hard cap.
				if tail != "" && len(tail)+len(piece)+1 <= cfg.ChunkMax {
					buf.WriteString(tail)
					buf.WriteString("\n")
				}
			}
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(piece)
	}
	flush()

	return chunks
}

func splitSentences(p string) []string {
	var out []string
	rest := p
	for rest != "" {
		cut := -1
		for _, end := range sentenceEnd {
			if i := strings.Index(rest, end); i >= 0 && (cut < 0 || i < cut) {
				cut = i + len(end) - 1
			}
		}
		if cut < 0 {
			out = append(out, strings.TrimSpace(rest))
			break
		}
		s := strings.TrimSpace(rest[:cut+1])
		if s != "" {
			out = append(out, s)
		}
		rest = rest[cut+1:]
	}
	return out
}

// windowSplit cuts s into segments of at most max bytes, preferring the last
// space before the limit so words are not cut mid-token.
func windowSplit(s string, max int) []string {
	var out []string
	for len(s) > max {
		cut := strings.LastIndex(s[:max], " ")
		if cut <= 0 {
			cut = max
		}
		out = append(out, strings.TrimSpace(s[:cut]))
		s = strings.TrimSpace(s[cut:])
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// overlapTail returns the last n bytes of s, extended left to the previous
// word boundary so the overlap starts on a whole word.
func overlapTail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	tail := s[len(s)-n:]
	if i := strings.IndexAny(tail, " \n"); i >= 0 {
		tail = tail[i+1:]
	}
	return strings.TrimSpace(tail)
}
