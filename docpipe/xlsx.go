package docpipe

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"
)

// extractXlsx resolves the shared strings table once, then extracts cell text
// from each worksheet in file-name order: shared-string references, inline
// strings, and literal <v> values.
func extractXlsx(ar *zipArchive) string {
	shared := sharedStrings(ar)

	_, sheets, _ := ar.filesMatching(func(n string) bool {
		return strings.HasPrefix(n, "xl/worksheets/") && strings.HasSuffix(n, ".xml")
	})

	var sb strings.Builder
	for _, sheet := range sheets {
		for _, cell := range worksheetCells(sheet, shared) {
			if cell == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(cell)
		}
	}
	return sb.String()
}

// sharedStrings parses xl/sharedStrings.xml into an index-addressable table.
// Each <si> item may hold one <t> or several rich-text runs.
func sharedStrings(ar *zipArchive) []string {
	data, err := ar.file("xl/sharedStrings.xml")
	if err != nil || data == nil {
		return nil
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	var table []string
	var cur strings.Builder
	inItem := false
	inText := false

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "si":
				inItem = true
				cur.Reset()
			case "t":
				inText = inItem
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "si":
				table = append(table, cur.String())
				inItem = false
			}
		}
	}
	return table
}

// worksheetCells walks one worksheet's <c> cells.
func worksheetCells(data []byte, shared []string) []string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var cells []string
	var cur strings.Builder
	cellType := ""
	inValue := false
	inInline := false

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "c":
				cellType = ""
				for _, a := range t.Attr {
					if a.Name.Local == "t" {
						cellType = a.Value
					}
				}
			case "v":
				inValue = true
				cur.Reset()
			case "is":
				inInline = true
			case "t":
				if inInline {
					inValue = true
					cur.Reset()
				}
			}
		case xml.CharData:
			if inValue {
				cur.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "v":
				inValue = false
				val := strings.TrimSpace(cur.String())
				if cellType == "s" {
					if idx, err := strconv.Atoi(val); err == nil && idx >= 0 && idx < len(shared) {
						cells = append(cells, strings.TrimSpace(shared[idx]))
					}
				} else if val != "" {
					cells = append(cells, val)
				}
			case "t":
				if inInline && inValue {
					inValue = false
					if v := strings.TrimSpace(cur.String()); v != "" {
						cells = append(cells, v)
					}
				}
			case "is":
				inInline = false
			}
		}
	}
	return cells
}
