package docpipe

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// extractPptx concatenates <a:t> text runs per slide, in slide file-name
// order. Runs within one slide join with spaces; slides separate with a
// paragraph break.
func extractPptx(ar *zipArchive) (text string, slides int) {
	_, files, _ := ar.filesMatching(func(n string) bool {
		return strings.HasPrefix(n, "ppt/slides/slide") && strings.HasSuffix(n, ".xml")
	})

	var sb strings.Builder
	for _, slide := range files {
		runs := slideTextRuns(slide)
		if len(runs) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.Join(runs, " "))
		slides++
	}
	return sb.String(), len(files)
}

func slideTextRuns(data []byte) []string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var runs []string
	var cur strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
				if s := strings.TrimSpace(cur.String()); s != "" {
					runs = append(runs, s)
				}
			}
		}
	}
	return runs
}
