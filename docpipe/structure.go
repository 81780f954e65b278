package docpipe

import (
	"regexp"
	"strings"
	"unicode"
)

var numberedHeadingRe = regexp.MustCompile(`^(?:[IVXLC]+\.|[0-9]+\.(?:[0-9]+\.?)*|[A-Z]\)|§\s*[0-9]+[a-z]?)\s*\S*`)
var tableSeparatorRe = regexp.MustCompile(`^\|?[\s:|-]+\|?$`)

// AnalyzeStructure detects headings, tables and multi-column layout on raw
// extracted text (before whitespace normalisation, which erases column gaps).
func AnalyzeStructure(text string) *Structure {
	lines := strings.Split(text, "\n")
	s := &Structure{}

	s.Headings = detectHeadings(lines)
	s.TableCount = countTables(lines)
	s.HasTables = s.TableCount > 0
	s.MultiColumn = detectColumns(lines)
	return s
}

func detectHeadings(lines []string) []string {
	var headings []string
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// Markdown headings.
		if strings.HasPrefix(trimmed, "#") {
			h := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			if h != "" {
				headings = append(headings, h)
			}
			continue
		}

		next := ""
		if i+1 < len(lines) {
			next = strings.TrimSpace(lines[i+1])
		}

		// Numbered or lettered headings (I., 1., § 1) followed by a blank or
		// a longer line.
		if len(trimmed) <= 80 && numberedHeadingRe.MatchString(trimmed) {
			if next == "" || len(next) > len(trimmed) {
				headings = append(headings, trimmed)
				continue
			}
		}

		// ALL-CAPS lines followed by non-caps content.
		if isAllCapsHeading(trimmed) && next != "" && !isAllCapsHeading(next) {
			headings = append(headings, trimmed)
		}
	}
	return headings
}

func isAllCapsHeading(s string) bool {
	if len(s) < 4 || len(s) > 80 {
		return false
	}
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return letters >= 3
}

// countTables finds pipe-delimited blocks (>=2 consecutive lines with >=2
// pipes, separator rows ignored) and tab-delimited blocks (>=3 lines whose
// column counts stay within +-1 of the block's modal count for >=70% of rows).
func countTables(lines []string) int {
	tables := 0

	// Pipe tables.
	run := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.Count(trimmed, "|") >= 2 && !tableSeparatorRe.MatchString(trimmed) {
			run++
			continue
		}
		if tableSeparatorRe.MatchString(trimmed) && run > 0 {
			continue // separator row inside a table block
		}
		if run >= 2 {
			tables++
		}
		run = 0
	}
	if run >= 2 {
		tables++
	}

	// Tab tables.
	var cols []int
	flush := func() {
		if len(cols) >= 3 {
			mode := modalInt(cols)
			near := 0
			for _, c := range cols {
				if c >= mode-1 && c <= mode+1 {
					near++
				}
			}
			if float64(near)/float64(len(cols)) >= 0.7 {
				tables++
			}
		}
		cols = cols[:0]
	}
	for _, line := range lines {
		if n := strings.Count(line, "\t"); n >= 1 {
			cols = append(cols, n+1)
		} else {
			flush()
		}
	}
	flush()

	return tables
}

func modalInt(values []int) int {
	freq := map[int]int{}
	best, bestN := 0, 0
	for _, v := range values {
		freq[v]++
		if freq[v] > bestN {
			best, bestN = v, freq[v]
		}
	}
	return best
}

// detectColumns samples the middle 50% of lines and flags those longer than
// 40 chars with an internal gap of 4+ spaces. Above 30% flagged, the layout
// is judged multi-column, which predicts unreliable reading order.
func detectColumns(lines []string) bool {
	start := len(lines) / 4
	end := len(lines) - start
	sampled, flagged := 0, 0
	for _, line := range lines[start:end] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		sampled++
		if len(line) > 40 && strings.Contains(strings.TrimSpace(line), "    ") {
			flagged++
		}
	}
	return sampled > 0 && float64(flagged)/float64(sampled) > 0.3
}
