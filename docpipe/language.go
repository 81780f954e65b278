package docpipe

import "strings"

var germanMarkers = []string{
	"der", "die", "das", "und", "nicht", "mit", "für", "von", "dem", "den",
	"eine", "einer", "wird", "wurde", "gemäß", "sowie", "bzw", "hiermit",
}

var englishMarkers = []string{
	"the", "and", "not", "with", "for", "from", "this", "that", "shall",
	"will", "have", "been", "hereby", "pursuant",
}

// DetectLanguage classifies text as German, English or unknown by counting
// stop-word hits. German legal prose dominates the corpus, so ties lean
// German when umlauts or ß are present.
func DetectLanguage(text string) Language {
	if len(text) < 20 {
		return LangUnknown
	}
	sample := strings.ToLower(text)
	if len(sample) > 4000 {
		sample = sample[:4000]
	}
	words := strings.Fields(sample)
	if len(words) == 0 {
		return LangUnknown
	}

	de, en := 0, 0
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?()\"'")
		for _, m := range germanMarkers {
			if w == m {
				de++
				break
			}
		}
		for _, m := range englishMarkers {
			if w == m {
				en++
				break
			}
		}
	}

	hasUmlaut := strings.ContainsAny(sample, "äöüß")
	switch {
	case de > en:
		return LangGerman
	case en > de:
		return LangEnglish
	case de > 0 && hasUmlaut:
		return LangGerman
	case de > 0:
		return LangEnglish
	default:
		return LangUnknown
	}
}
