package docpipe

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

// extractCSV renders delimiter-separated values as aligned pipe rows
// ("position | wert"), so downstream chunking and table detection see one
// row per line. The delimiter is sniffed from the header line (; , or tab).
func extractCSV(raw string) string {
	delim := sniffDelimiter(raw)
	r := csv.NewReader(strings.NewReader(raw))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var sb strings.Builder
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		line := strings.Join(record, " | ")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
	}
	return sb.String()
}

func sniffDelimiter(raw string) rune {
	head := raw
	if i := strings.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	counts := map[rune]int{
		';':  strings.Count(head, ";"),
		',':  strings.Count(head, ","),
		'\t': strings.Count(head, "\t"),
	}
	best, bestN := ';', -1
	for _, d := range []rune{';', ',', '\t'} {
		if counts[d] > bestN {
			best, bestN = d, counts[d]
		}
	}
	return best
}

// extractJSON flattens a JSON payload into "path: value" lines with stable
// key ordering. Invalid JSON falls back to the raw text so a mislabelled
// upload still yields something searchable.
func extractJSON(raw string) (string, bool) {
	var v any
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return strings.TrimSpace(raw), false
	}

	var lines []string
	flattenJSON("", v, &lines)
	return strings.Join(lines, "\n"), true
}

func flattenJSON(prefix string, v any, out *[]string) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenJSON(joinPath(prefix, k), t[k], out)
		}
	case []any:
		for i, item := range t {
			flattenJSON(fmt.Sprintf("%s[%d]", prefix, i), item, out)
		}
	case nil:
		*out = append(*out, prefix+": null")
	default:
		*out = append(*out, fmt.Sprintf("%s: %v", prefix, t))
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// extractXML strips tags and keeps character data, one line per closed
// element that carried text.
func extractXML(raw string) string {
	dec := xml.NewDecoder(strings.NewReader(raw))
	var sb strings.Builder
	var cur strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.CharData:
			cur.Write(t)
		case xml.EndElement:
			if s := strings.TrimSpace(cur.String()); s != "" {
				if sb.Len() > 0 {
					sb.WriteByte('\n')
				}
				sb.WriteString(s)
			}
			cur.Reset()
		case xml.StartElement:
			cur.Reset()
		}
	}
	return sb.String()
}
