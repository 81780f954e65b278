package docpipe

import (
	"sort"
	"strings"
	"unicode"
)

const maxKeywords = 15

// stopWords excludes German and English function words from keyword ranking.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		// German
		"aber", "alle", "allem", "allen", "aller", "alles", "als", "also",
		"auch", "auf", "aus", "bei", "bin", "bis", "bist", "das", "dass",
		"dem", "den", "der", "des", "dessen", "die", "dies", "diese",
		"diesem", "diesen", "dieser", "dieses", "doch", "dort", "durch",
		"ein", "eine", "einem", "einen", "einer", "eines", "er", "es",
		"für", "gegen", "hab", "habe", "haben", "hat", "hatte", "hier",
		"ich", "ihr", "ihre", "im", "in", "ist", "ja", "jede", "jedem",
		"jeden", "jeder", "jedes", "kann", "kein", "keine", "mit", "muss",
		"nach", "nicht", "noch", "nur", "oder", "ohne", "sein", "seine",
		"sich", "sie", "sind", "sowie", "über", "um", "und", "uns", "unter",
		"vom", "von", "vor", "war", "waren", "was", "wenn", "werden",
		"wird", "wie", "wir", "wurde", "wurden", "zu", "zum", "zur",
		// English
		"about", "after", "all", "also", "and", "any", "are", "been",
		"but", "can", "for", "from", "had", "has", "have", "her", "his",
		"into", "its", "not", "one", "our", "out", "shall", "that", "the",
		"their", "them", "then", "there", "these", "they", "this", "was",
		"were", "which", "will", "with", "would", "you", "your",
	} {
		stopWords[w] = struct{}{}
	}
}

// ExtractKeywords lowercases, strips non-letter/digit runes, tokenises on
// whitespace, drops stop words and tokens shorter than 3 runes, and returns
// the top 15 tokens by frequency. Ties break alphabetically so the result is
// deterministic.
func ExtractKeywords(text string) []string {
	freq := map[string]int{}
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, tok)
		if len([]rune(tok)) < 3 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		freq[tok]++
	}

	keywords := make([]string, 0, len(freq))
	for k := range freq {
		keywords = append(keywords, k)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if freq[keywords[i]] != freq[keywords[j]] {
			return freq[keywords[i]] > freq[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}
