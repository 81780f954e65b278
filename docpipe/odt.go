package docpipe

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// extractODT extracts <text:p> paragraphs from content.xml, inlining
// <text:span> runs and translating <text:tab/> to a tab and
// <text:line-break/> to a newline.
func extractODT(ar *zipArchive) string {
	data, err := ar.file("content.xml")
	if err != nil || data == nil {
		return ""
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	var sb strings.Builder
	var cur strings.Builder
	depth := 0 // nesting inside <text:p>; spans keep us collecting

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p", "h":
				if depth == 0 {
					cur.Reset()
				}
				depth++
			case "tab":
				if depth > 0 {
					cur.WriteByte('\t')
				}
			case "line-break":
				if depth > 0 {
					cur.WriteByte('\n')
				}
			}
		case xml.CharData:
			if depth > 0 {
				cur.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "h" {
				depth--
				if depth == 0 {
					if p := strings.TrimSpace(cur.String()); p != "" {
						if sb.Len() > 0 {
							sb.WriteByte('\n')
						}
						sb.WriteString(p)
					}
				}
			}
		}
	}
	return sb.String()
}
