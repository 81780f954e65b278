package docpipe

import (
	"strings"
	"testing"
	"time"
)

func TestAssessQualityEmptyText(t *testing.T) {
	report, status := AssessQuality(Input{DocumentID: "d1"}, "  kurz ", nil, nil, nil, 0, time.Now())
	if report.OverallScore != 0 {
		t.Fatalf("score = %d, want 0", report.OverallScore)
	}
	if status != StatusFailed {
		t.Fatalf("status = %q, want failed", status)
	}
	if len(report.Problems) == 0 || report.Problems[0].Type != "no_text_extracted" {
		t.Fatalf("expected no_text_extracted problem, got %+v", report.Problems)
	}
}

func TestAssessQualityScoreBounds(t *testing.T) {
	texts := []string{
		strings.Repeat("Sauberer deutscher Fließtext mit Inhalt. ", 50),
		strings.Repeat("□□□ kaputter □ Scan □□ ", 30),
		strings.Repeat("###{}[]§$%&=?*+~#", 50),
	}
	for _, text := range texts {
		report, _ := AssessQuality(Input{}, text, nil, nil, nil, 1, time.Now())
		if report.OverallScore < 0 || report.OverallScore > 100 {
			t.Errorf("score %d out of bounds for %q", report.OverallScore, text[:20])
		}
	}
}

func TestAssessQualityGlyphPenalty(t *testing.T) {
	clean := strings.Repeat("Ein ganz normaler Satz über den Vertrag. ", 20)
	dirty := clean + strings.Repeat("□", 25)

	cleanReport, _ := AssessQuality(Input{Kind: KindNote}, clean, nil, nil, nil, 1, time.Now())
	dirtyReport, _ := AssessQuality(Input{Kind: KindNote}, dirty, nil, nil, nil, 1, time.Now())

	if dirtyReport.OverallScore >= cleanReport.OverallScore {
		t.Errorf("glyph penalty missing: dirty %d >= clean %d", dirtyReport.OverallScore, cleanReport.OverallScore)
	}
	var found *Problem
	for i := range dirtyReport.Problems {
		if dirtyReport.Problems[i].Type == "suspicious_glyphs" {
			found = &dirtyReport.Problems[i]
		}
	}
	if found == nil {
		t.Fatal("expected suspicious_glyphs problem")
	}
	if found.Severity != SeverityError {
		t.Errorf("severity = %q, want error above 20 occurrences", found.Severity)
	}
}

func TestAssessQualityShortOCR(t *testing.T) {
	report, _ := AssessQuality(Input{Kind: KindScanPDF, OCROrigin: true},
		"Nur wenige Worte erkannt worden.", nil, nil, nil, 1, time.Now())
	var found bool
	for _, p := range report.Problems {
		if p.Type == "short_ocr_result" && p.Severity == SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Errorf("expected short_ocr_result warning, got %+v", report.Problems)
	}
}

func TestAssessQualityTextLayerBonus(t *testing.T) {
	text := strings.Repeat("Regulärer Vertragstext ohne Auffälligkeiten im Inhalt. ", 20)
	pdfReport, _ := AssessQuality(Input{Kind: KindPDF}, text, nil, nil, nil, 1, time.Now())
	ocrReport, _ := AssessQuality(Input{Kind: KindScanPDF, OCROrigin: true}, text, nil, nil, nil, 1, time.Now())
	if pdfReport.OverallScore < ocrReport.OverallScore {
		t.Errorf("text-layer extraction should not score below OCR: %d < %d",
			pdfReport.OverallScore, ocrReport.OverallScore)
	}
	if pdfReport.OverallScore > 100 {
		t.Errorf("bonus pushed score past 100: %d", pdfReport.OverallScore)
	}
}

func TestAssessQualityColumnWarning(t *testing.T) {
	text := strings.Repeat("Inhalt mit ausreichend Länge für eine sinnvolle Bewertung. ", 10)
	s := &Structure{MultiColumn: true}
	report, _ := AssessQuality(Input{Kind: KindNote}, text, nil, nil, s, 1, time.Now())
	var found bool
	for _, p := range report.Problems {
		if p.Type == "multi_column_layout" && p.Severity == SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Errorf("expected multi_column_layout warning, got %+v", report.Problems)
	}
}

func TestAssessQualityStatusBands(t *testing.T) {
	// Garbled text plus glyphs drives the score under 50 but not to zero.
	bad := strings.Repeat("§$%&=?*+~# ", 40) + strings.Repeat("□", 20) + " etwas lesbarer Text"
	report, status := AssessQuality(Input{}, bad, nil, nil, nil, 1, time.Now())
	if report.OverallScore == 0 {
		t.Fatalf("expected non-zero score, got 0 (problems: %+v)", report.Problems)
	}
	if report.OverallScore >= 50 {
		t.Fatalf("expected score under 50, got %d", report.OverallScore)
	}
	if status != StatusNeedsReview {
		t.Errorf("status = %q, want needs_review", status)
	}
}

func TestAssessQualityChecklist(t *testing.T) {
	text := strings.Repeat("Vertragstext. ", 30)
	chunks := []Chunk{{Text: "x"}}
	entities := []Entity{{Type: EntityDate, Value: "01.01.2025"}}
	report, _ := AssessQuality(Input{Kind: KindNote}, text, chunks, entities, &Structure{}, 1, time.Now())
	if len(report.Checklist) == 0 {
		t.Fatal("expected checklist items")
	}
	for _, item := range report.Checklist {
		switch item.Label {
		case "Text extrahiert", "Chunks erzeugt", "Entitäten gefunden", "Qualität ausreichend":
			if !item.OK {
				t.Errorf("checklist item %q unexpectedly false", item.Label)
			}
		}
	}
}
