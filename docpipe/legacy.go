package docpipe

import (
	"bytes"
	"strconv"
	"strings"
)

// ole2Magic is the compound-file header of legacy .doc/.xls binaries.
var ole2Magic = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}

func isOLE2(data []byte) bool {
	return len(data) >= 8 && bytes.Equal(data[:8], ole2Magic)
}

// extractDocLegacy scrapes readable text runs out of an OLE2 .doc body.
// No attempt is made to walk the FIB/piece table; a best-effort scan for
// Windows-1252 printable runs recovers most prose and is explicitly lossy.
func extractDocLegacy(data []byte) string {
	var sb strings.Builder
	var run []byte
	flush := func() {
		if len(run) >= 16 { // short runs are mostly field codes and noise
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(strings.TrimSpace(decodeBytesToText(run)))
		}
		run = run[:0]
	}
	for _, b := range data {
		switch {
		case b >= 0x20 && b < 0x7f, b >= 0xc0, b == 0xdf, b == 0xe4, b == 0xf6, b == 0xfc:
			run = append(run, b)
		case b == '\r' || b == '\n' || b == '\t':
			run = append(run, ' ')
		default:
			flush()
		}
	}
	flush()
	return sb.String()
}

// extractRTF de-escapes an RTF document: control words are dropped, \par and
// \line become newlines, \tab a tab, and \'hh hex escapes decode through the
// Windows-1252 table. Group braces are structural and removed.
func extractRTF(raw string) string {
	var sb strings.Builder
	i := 0
	skipGroupDepth := 0
	depth := 0

	for i < len(raw) {
		c := raw[i]
		switch c {
		case '{':
			depth++
			// Destination groups like {\fonttbl ...} carry no body text.
			if rest := raw[i:]; skipGroupDepth == 0 && isRTFSkipGroup(rest) {
				skipGroupDepth = depth
			}
			i++
		case '}':
			if skipGroupDepth == depth {
				skipGroupDepth = 0
			}
			depth--
			i++
		case '\\':
			word, param, next := readRTFControl(raw, i)
			i = next
			if skipGroupDepth != 0 {
				continue
			}
			switch word {
			case "par", "line", "sect", "page":
				sb.WriteByte('\n')
			case "tab":
				sb.WriteByte('\t')
			case "'":
				if v, err := strconv.ParseUint(param, 16, 8); err == nil {
					sb.WriteString(decodeBytesToText([]byte{byte(v)}))
				}
			case "u":
				if v, err := strconv.Atoi(param); err == nil && v > 0 {
					sb.WriteRune(rune(v))
					// The replacement character following \uN is consumed.
					if i < len(raw) && raw[i] == '?' {
						i++
					}
				}
			case "{", "}", "\\":
				sb.WriteString(word)
			}
		default:
			if skipGroupDepth == 0 && c != '\r' && c != '\n' {
				sb.WriteByte(c)
			}
			i++
		}
	}
	return strings.TrimSpace(sb.String())
}

func isRTFSkipGroup(rest string) bool {
	for _, dst := range []string{`{\fonttbl`, `{\colortbl`, `{\stylesheet`, `{\info`, `{\*`, `{\pict`} {
		if strings.HasPrefix(rest, dst) {
			return true
		}
	}
	return false
}

// readRTFControl reads a control word or symbol starting at the backslash.
// Returns the word, its parameter (digits, or hex for \'), and the next index.
func readRTFControl(raw string, i int) (word, param string, next int) {
	i++ // consume backslash
	if i >= len(raw) {
		return "", "", i
	}
	c := raw[i]
	// Control symbols: a single non-letter.
	if !isLetter(c) {
		if c == '\'' {
			end := min(i+3, len(raw))
			return "'", raw[i+1 : end], end
		}
		return string(c), "", i + 1
	}
	start := i
	for i < len(raw) && isLetter(raw[i]) {
		i++
	}
	word = raw[start:i]
	pStart := i
	if i < len(raw) && (raw[i] == '-' || raw[i] >= '0' && raw[i] <= '9') {
		i++
		for i < len(raw) && raw[i] >= '0' && raw[i] <= '9' {
			i++
		}
	}
	param = raw[pStart:i]
	// A single space after the control word is part of it.
	if i < len(raw) && raw[i] == ' ' {
		i++
	}
	return word, param, i
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
