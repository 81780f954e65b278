package docpipe

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

const minUsableChars = 10

// AssessQuality scores one processing run. The score starts at 100 and is
// adjusted by deterministic penalties and bonuses; the same signals drive the
// problem list, the checklist and the final status.
func AssessQuality(in Input, text string, chunks []Chunk, entities []Entity, structure *Structure, pages int, started time.Time) (*QualityReport, Status) {
	report := &QualityReport{
		DocumentID:     in.DocumentID,
		OCRConfidence:  in.OCRConfidence,
		ExtractedPages: pages,
		ExpectedPages:  in.ExpectedPageCount,
		TotalChunks:    len(chunks),
		TotalEntities:  len(entities),
		ProcessedAt:    time.Now().UTC(),
	}
	defer func() {
		report.ProcessingDurMs = time.Since(started).Milliseconds()
	}()

	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < minUsableChars {
		report.OverallScore = 0
		report.Problems = append(report.Problems, Problem{
			Type:        "no_text_extracted",
			Description: "no usable text could be extracted from the document",
			Severity:    SeverityError,
		})
		report.Checklist = buildChecklist(trimmed, 0, chunks, entities, structure)
		return report, StatusFailed
	}

	score := 100

	// Suspicious glyphs left behind by OCR.
	glyphs := strings.Count(text, "□") + strings.Count(text, "�") + strings.Count(text, "◌")
	if glyphs > 0 {
		penalty := glyphs * 2
		if penalty > 30 {
			penalty = 30
		}
		score -= penalty
		sev := SeverityWarning
		if glyphs > 20 {
			sev = SeverityError
		}
		report.Problems = append(report.Problems, Problem{
			Type:        "suspicious_glyphs",
			Description: fmt.Sprintf("%d unrecognised glyphs in extracted text", glyphs),
			Severity:    sev,
		})
	}

	if ratio := garbledRatio(text); ratio > 0.15 {
		score -= 25
		report.Problems = append(report.Problems, Problem{
			Type:        "garbled_text",
			Description: fmt.Sprintf("%.0f%% of characters are neither alphanumeric nor punctuation", ratio*100),
			Severity:    SeverityError,
		})
	}

	if in.OCROrigin && len(trimmed) < 200 {
		score -= 20
		report.Problems = append(report.Problems, Problem{
			Type:        "short_ocr_result",
			Description: "OCR produced very little text for a scanned document",
			Severity:    SeverityWarning,
		})
	}

	if looksTruncated(trimmed) {
		score -= 5
		report.Problems = append(report.Problems, Problem{
			Type:        "possible_truncation",
			Description: "text ends mid-word without terminal punctuation",
			Severity:    SeverityInfo,
		})
	}

	// Text-layer extraction is inherently more reliable than OCR.
	if !in.OCROrigin {
		switch in.Kind {
		case KindPDF, KindNote, KindDocx, KindXlsx, KindPptx:
			score += 5
		}
	}

	if structure != nil {
		if len(structure.Headings) > 0 {
			score += 3
		}
		if structure.HasTables {
			score += 2
		}
		if structure.MultiColumn {
			score -= 5
			report.Problems = append(report.Problems, Problem{
				Type:        "multi_column_layout",
				Description: "multi-column layout detected; reading order may be unreliable",
				Severity:    SeverityWarning,
			})
		}
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	report.OverallScore = score
	report.Checklist = buildChecklist(trimmed, score, chunks, entities, structure)

	switch {
	case score == 0:
		return report, StatusFailed
	case score < 50:
		return report, StatusNeedsReview
	default:
		return report, StatusReady
	}
}

// garbledRatio is the fraction of non-space characters that are neither
// alphanumeric nor punctuation. Symbol soup and leftover OCR noise both land
// here; currency signs in amounts stay well below the threshold.
func garbledRatio(text string) float64 {
	total, garbled := 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsPunct(r) {
			garbled++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(garbled) / float64(total)
}

func looksTruncated(trimmed string) bool {
	if trimmed == "" {
		return false
	}
	last := trimmed[len(trimmed)-1]
	switch last {
	case '.', '!', '?', ':', ';', ')', '"', '\'', '»', '=':
		return false
	}
	// Ends on a letter with no sentence terminator: likely cut mid-word.
	r := []rune(trimmed)
	return unicode.IsLetter(r[len(r)-1])
}

func buildChecklist(trimmed string, score int, chunks []Chunk, entities []Entity, structure *Structure) []ChecklistItem {
	items := []ChecklistItem{
		{Label: "Text extrahiert", OK: len([]rune(trimmed)) >= minUsableChars},
		{Label: "Qualität ausreichend", OK: score >= 50},
		{Label: "Chunks erzeugt", OK: len(chunks) > 0},
		{Label: "Entitäten gefunden", OK: len(entities) > 0},
	}
	if structure != nil {
		items = append(items,
			ChecklistItem{Label: "Überschriften erkannt", OK: len(structure.Headings) > 0},
			ChecklistItem{Label: "Tabellen erkannt", OK: structure.HasTables},
		)
	}
	return items
}
