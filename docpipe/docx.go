package docpipe

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// extractDocx concatenates word/document.xml with header, footer and footnote
// parts. Text runs are <w:t> inside <w:p> paragraphs. The estimated page
// count assumes ~25 paragraphs per page.
func extractDocx(ar *zipArchive) (text string, pages int) {
	parts := []string{"word/document.xml"}
	names, _, _ := ar.filesMatching(func(n string) bool {
		if !strings.HasPrefix(n, "word/") || !strings.HasSuffix(n, ".xml") {
			return false
		}
		base := strings.TrimPrefix(n, "word/")
		return strings.HasPrefix(base, "header") ||
			strings.HasPrefix(base, "footer") ||
			base == "footnotes.xml" || base == "endnotes.xml"
	})
	parts = append(parts, names...)

	var sb strings.Builder
	paragraphs := 0
	for _, part := range parts {
		data, err := ar.file(part)
		if err != nil || data == nil {
			continue
		}
		for _, p := range wordParagraphs(data) {
			if p == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(p)
			paragraphs++
		}
	}

	pages = (paragraphs + 24) / 25
	if pages == 0 && sb.Len() > 0 {
		pages = 1
	}
	return sb.String(), pages
}

// wordParagraphs extracts the text of each <w:p> paragraph, concatenating its
// <w:t> runs and honouring <w:tab/> and <w:br/>.
func wordParagraphs(data []byte) []string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var paragraphs []string
	var cur strings.Builder
	inParagraph := false
	inText := false

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				cur.Reset()
			case "t":
				inText = inParagraph
			case "tab":
				if inParagraph {
					cur.WriteByte('\t')
				}
			case "br":
				if inParagraph {
					cur.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inParagraph {
					paragraphs = append(paragraphs, strings.TrimSpace(cur.String()))
					inParagraph = false
				}
			}
		}
	}
	return paragraphs
}
