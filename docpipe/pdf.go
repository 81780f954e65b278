package docpipe

import (
	"bytes"
	"compress/zlib"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	maxTextBlocks = 400 // BT..ET blocks scanned per document
	maxStreams    = 60  // stream..endstream regions scanned in the fallback
)

// pdfExtraction is the outcome of the PDF path.
type pdfExtraction struct {
	text      string
	pages     int
	encrypted bool
	deep      bool // true when the hand-rolled scanner produced the text
}

// extractPDF extracts text from raw PDF bytes.
//
// Encryption is a terminal, non-retryable condition: the extractor returns
// immediately with no text and a best-effort page count, and the caller must
// never route the document to OCR.
//
// The structure-aware pdfcpu read is attempted first; payloads it rejects
// (truncated, damaged xref) fall through to a raw content-stream scan, then
// to inflating FlateDecode object streams.
func extractPDF(data []byte, totalSize int) pdfExtraction {
	if bytes.Contains(data, []byte("/Encrypt")) {
		// Covers /Encrypt and /EncryptMetadata.
		return pdfExtraction{encrypted: true, pages: estimatePageCount(data, totalSize)}
	}

	if text, pages, ok := extractWithPdfcpu(data); ok {
		return pdfExtraction{text: text, pages: pages}
	}

	text := scanTextBlocks(data, maxTextBlocks)
	if strings.TrimSpace(text) == "" {
		text = scanObjectStreams(data)
	}
	return pdfExtraction{
		text:  text,
		pages: estimatePageCount(data, totalSize),
		deep:  true,
	}
}

// extractWithPdfcpu reads the document through pdfcpu and extracts per-page
// content streams. Returns ok=false when pdfcpu cannot parse the payload or
// finds no text.
func extractWithPdfcpu(data []byte) (string, int, bool) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return "", 0, false
	}

	var sb strings.Builder
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil || r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil || len(content) == 0 {
			continue
		}
		pageText := scanTextBlocks(content, maxTextBlocks)
		if pageText == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(pageText)
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", ctx.PageCount, false
	}
	return sb.String(), ctx.PageCount, true
}

// scanTextBlocks interprets text operators inside BT..ET blocks: (s) Tj,
// [..] TJ with concatenated runs, (s) ' and (s) " as line-show plus newline,
// and <hex> Tj. The block count is capped to bound worst-case cost.
func scanTextBlocks(data []byte, capBlocks int) string {
	var sb strings.Builder
	pos := 0
	for blocks := 0; blocks < capBlocks; blocks++ {
		bt := indexToken(data, pos, "BT")
		if bt < 0 {
			break
		}
		et := indexToken(data, bt+2, "ET")
		if et < 0 {
			et = len(data)
		}
		interpretBlock(data[bt+2:et], &sb)
		pos = et + 2
		if pos >= len(data) {
			break
		}
	}
	return strings.TrimSpace(sb.String())
}

// indexToken finds a standalone operator token (not part of a longer name).
func indexToken(data []byte, from int, token string) int {
	for {
		i := bytes.Index(data[from:], []byte(token))
		if i < 0 {
			return -1
		}
		abs := from + i
		beforeOK := abs == 0 || isPDFDelim(data[abs-1])
		afterOK := abs+len(token) >= len(data) || isPDFDelim(data[abs+len(token)])
		if beforeOK && afterOK {
			return abs
		}
		from = abs + len(token)
	}
}

func isPDFDelim(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\f', 0, '(', ')', '<', '>', '[', ']', '/', '%':
		return true
	}
	return false
}

// interpretBlock walks one BT..ET region operator by operator.
func interpretBlock(block []byte, sb *strings.Builder) {
	i := 0
	for i < len(block) {
		switch block[i] {
		case '(':
			str, next := readPDFString(block, i)
			op, next2 := peekOperator(block, next)
			switch op {
			case "Tj":
				sb.WriteString(str)
				i = next2
			case "'", "\"":
				sb.WriteByte('\n')
				sb.WriteString(str)
				i = next2
			default:
				i = next
			}
		case '[':
			runs, next := readTJArray(block, i)
			op, next2 := peekOperator(block, next)
			if op == "TJ" {
				sb.WriteString(runs)
				i = next2
			} else {
				i = next
			}
		case '<':
			if i+1 < len(block) && block[i+1] == '<' {
				i += 2
				continue
			}
			str, next := readHexString(block, i)
			op, next2 := peekOperator(block, next)
			if op == "Tj" {
				sb.WriteString(str)
				i = next2
			} else {
				i = next
			}
		default:
			// T* and TD/Td separate lines/words in the running text.
			if block[i] == 'T' && i+1 < len(block) {
				switch block[i+1] {
				case '*':
					sb.WriteByte('\n')
				case 'd', 'D':
					if sb.Len() > 0 {
						sb.WriteByte(' ')
					}
				}
			}
			i++
		}
	}
}

// readPDFString parses a parenthesised string literal starting at '(' and
// decodes escapes: \n \r \t \( \) \\ and octal \ddd. Balanced nested
// parentheses are part of the literal.
func readPDFString(data []byte, start int) (string, int) {
	var sb strings.Builder
	depth := 1
	i := start + 1
	for i < len(data) && depth > 0 {
		c := data[i]
		switch c {
		case '\\':
			if i+1 >= len(data) {
				i++
				continue
			}
			i++
			switch data[i] {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '(', ')', '\\':
				sb.WriteByte(data[i])
			default:
				if data[i] >= '0' && data[i] <= '7' {
					val := int(data[i] - '0')
					for k := 0; k < 2 && i+1 < len(data) && data[i+1] >= '0' && data[i+1] <= '7'; k++ {
						i++
						val = val*8 + int(data[i]-'0')
					}
					sb.WriteByte(byte(val))
				} else {
					sb.WriteByte(data[i])
				}
			}
			i++
		case '(':
			depth++
			sb.WriteByte(c)
			i++
		case ')':
			depth--
			if depth > 0 {
				sb.WriteByte(c)
			}
			i++
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), i
}

// readHexString parses <48656C6C6F> into decoded bytes; odd-length content
// is padded with a trailing zero nibble per the PDF spec.
func readHexString(data []byte, start int) (string, int) {
	end := start + 1
	for end < len(data) && data[end] != '>' {
		end++
	}
	hexDigits := make([]byte, 0, end-start)
	for _, c := range data[start+1 : min(end, len(data))] {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			hexDigits = append(hexDigits, c)
		}
	}
	if len(hexDigits)%2 == 1 {
		hexDigits = append(hexDigits, '0')
	}
	var sb strings.Builder
	for i := 0; i+1 < len(hexDigits); i += 2 {
		hi := hexNibble(hexDigits[i])
		lo := hexNibble(hexDigits[i+1])
		b := hi<<4 | lo
		if b >= 0x20 && b < 0x7f {
			sb.WriteByte(b)
		}
	}
	if end < len(data) {
		end++
	}
	return sb.String(), end
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// readTJArray parses a [ (run) -120 (run) ] array, concatenating the
// parenthesised and hex runs.
func readTJArray(data []byte, start int) (string, int) {
	var sb strings.Builder
	i := start + 1
	for i < len(data) && data[i] != ']' {
		switch data[i] {
		case '(':
			str, next := readPDFString(data, i)
			sb.WriteString(str)
			i = next
		case '<':
			str, next := readHexString(data, i)
			sb.WriteString(str)
			i = next
		default:
			i++
		}
	}
	if i < len(data) {
		i++
	}
	return sb.String(), i
}

// peekOperator skips whitespace and reads the next operator token.
func peekOperator(data []byte, pos int) (string, int) {
	for pos < len(data) && (data[pos] == ' ' || data[pos] == '\r' || data[pos] == '\n' || data[pos] == '\t') {
		pos++
	}
	start := pos
	for pos < len(data) && !isPDFDelim(data[pos]) && pos-start < 3 {
		pos++
	}
	return string(data[start:pos]), pos
}

// scanObjectStreams is the fallback when no BT..ET text was found: it scans
// stream..endstream regions, inflates /FlateDecode streams and re-applies the
// text-block scan to the inflated bytes. Non-Flate streams are accepted
// verbatim only when they look like readable text.
func scanObjectStreams(data []byte) string {
	var sb strings.Builder
	pos := 0
	for count := 0; count < maxStreams; count++ {
		si := bytes.Index(data[pos:], []byte("stream"))
		if si < 0 {
			break
		}
		streamStart := pos + si + len("stream")
		// The keyword is followed by CRLF or LF.
		if streamStart < len(data) && data[streamStart] == '\r' {
			streamStart++
		}
		if streamStart < len(data) && data[streamStart] == '\n' {
			streamStart++
		}
		se := bytes.Index(data[streamStart:], []byte("endstream"))
		if se < 0 {
			break
		}
		streamEnd := streamStart + se

		// The object dictionary immediately precedes the stream keyword.
		dictStart := pos + si - 512
		if dictStart < 0 {
			dictStart = 0
		}
		dict := data[dictStart : pos+si]

		body := data[streamStart:streamEnd]
		if bytes.Contains(dict, []byte("/FlateDecode")) {
			if inflated, err := inflatePDFStream(body); err == nil {
				if text := scanTextBlocks(inflated, maxTextBlocks); text != "" {
					if sb.Len() > 0 {
						sb.WriteByte('\n')
					}
					sb.WriteString(text)
				}
			}
		} else if text := readableStreamText(body); text != "" {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(text)
		}

		pos = streamEnd + len("endstream")
	}
	return strings.TrimSpace(sb.String())
}

// inflatePDFStream decompresses a FlateDecode stream body. PDF streams carry
// a zlib wrapper; some producers emit raw deflate, so that is tried second.
func inflatePDFStream(body []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err == nil {
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err == nil || len(out) > 0 {
			return out, nil
		}
	}
	return inflate(body, 0)
}

// readableStreamText accepts an uncompressed stream as text when at least 25%
// of its bytes are printable and the longest readable run exceeds 30 chars.
func readableStreamText(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	printable := 0
	longestRun, run := 0, 0
	var runStart, bestStart, bestEnd int
	for i, b := range body {
		if b >= 0x20 && b < 0x7f || b == '\n' {
			if run == 0 {
				runStart = i
			}
			printable++
			run++
			if run > longestRun {
				longestRun = run
				bestStart = runStart
				bestEnd = i + 1
			}
		} else {
			run = 0
		}
	}
	if float64(printable)/float64(len(body)) < 0.25 || longestRun <= 30 {
		return ""
	}
	return strings.TrimSpace(string(body[bestStart:bestEnd]))
}

var (
	pageLeafRe  = regexp.MustCompile(`/Type\s*/Page[^s]`)
	pageCountRe = regexp.MustCompile(`/Count\s+(\d+)`)
)

// estimatePageCount prefers counting /Type /Page leaf dictionaries, then the
// maximum /Count seen, then a size-based heuristic for payloads where only a
// truncated prefix was decoded (~60 KB/page up to 5 MB, ~200 KB/page above).
func estimatePageCount(data []byte, totalSize int) int {
	if n := len(pageLeafRe.FindAll(data, -1)); n > 0 {
		return n
	}
	best := 0
	for _, m := range pageCountRe.FindAllSubmatch(data, -1) {
		if n, err := strconv.Atoi(string(m[1])); err == nil && n > best {
			best = n
		}
	}
	if best > 0 {
		return best
	}
	if totalSize <= 0 {
		totalSize = len(data)
	}
	perPage := 60 * 1024
	if totalSize > 5*1024*1024 {
		perPage = 200 * 1024
	}
	pages := totalSize / perPage
	if pages < 1 {
		pages = 1
	}
	return pages
}
