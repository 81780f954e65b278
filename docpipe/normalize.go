package docpipe

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalises extracted text: Unicode NFC, control characters
// stripped (tab and newline survive as whitespace), CRLF/CR folded to LF,
// runs of three or more newlines collapsed to a paragraph break, intra-line
// horizontal whitespace collapsed to one space, and the replacement
// character dropped.
//
// Normalize is pure and idempotent: Normalize(Normalize(x)) == Normalize(x).
// Layout-sensitive analysis (column gaps, tab tables) runs on the raw
// extracted text before this step.
func Normalize(text string) string {
	text = norm.NFC.String(text)

	var sb strings.Builder
	sb.Grow(len(text))

	// Pass 1: line endings and control characters.
	prev := rune(0)
	for _, r := range text {
		switch {
		case r == '\r':
			// CR and CRLF both become LF; the LF branch skips the duplicate
			// when CRLF arrives.
			sb.WriteByte('\n')
		case r == '\n':
			if prev != '\r' {
				sb.WriteByte('\n')
			}
		case r == '\t':
			sb.WriteByte('\t')
		case r == '�':
			// dropped
		case r < 0x20 || r == 0x7f:
			// dropped
		default:
			sb.WriteRune(r)
		}
		prev = r
	}

	// Pass 2: collapse horizontal whitespace within each line.
	lines := strings.Split(sb.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.FieldsFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t'
		}), " ")
	}
	out := strings.Join(lines, "\n")

	// Pass 3: 3+ newlines become exactly 2 (paragraph break semantics).
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(out)
}
