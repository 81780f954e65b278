package docpipe

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"
)

func process(t *testing.T, in Input) *Result {
	t.Helper()
	res, err := New(Config{}).Process(context.Background(), in)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return res
}

func TestProcessJSON(t *testing.T) {
	res := process(t, Input{
		DocumentID: "d1",
		Title:      "aktenlage.json",
		Kind:       KindNote,
		RawContent: `{"forderung":"Schadenersatz","betrag":1200}`,
	})
	if res.Engine != "json-parser" {
		t.Fatalf("engine = %q, want json-parser", res.Engine)
	}
	if !strings.Contains(res.NormalizedText, "Schadenersatz") {
		t.Errorf("normalized text missing Schadenersatz: %q", res.NormalizedText)
	}
	if len(res.Chunks) < 1 {
		t.Errorf("expected at least one chunk")
	}
}

func TestProcessXML(t *testing.T) {
	res := process(t, Input{
		Title:      "frist.xml",
		Kind:       KindNote,
		RawContent: `<root><frist>19.02.2026</frist></root>`,
	})
	if res.Engine != "xml-stripper" {
		t.Fatalf("engine = %q, want xml-stripper", res.Engine)
	}
	if !strings.Contains(res.ExtractedText, "19.02.2026") {
		t.Errorf("extracted text missing date: %q", res.ExtractedText)
	}
}

func TestProcessCSV(t *testing.T) {
	res := process(t, Input{
		Title:      "posten.csv",
		Kind:       KindNote,
		RawContent: "position;wert\nKlage;4200",
	})
	if res.Engine != "csv-normalizer" {
		t.Fatalf("engine = %q, want csv-normalizer", res.Engine)
	}
	if !strings.Contains(res.ExtractedText, "position | wert") {
		t.Errorf("extracted text missing joined header: %q", res.ExtractedText)
	}
	if !strings.Contains(res.ExtractedText, "Klage | 4200") {
		t.Errorf("extracted text missing joined row: %q", res.ExtractedText)
	}
}

func buildXlsx(t *testing.T, cell string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"xl/sharedStrings.xml": `<?xml version="1.0"?><sst><si><t>` + cell + `</t></si></sst>`,
		"xl/worksheets/sheet1.xml": `<?xml version="1.0"?><worksheet><sheetData>` +
			`<row><c r="A1" t="s"><v>0</v></c><c r="B1"><v>4200</v></c></row>` +
			`</sheetData></worksheet>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return "data:application/vnd.openxmlformats-officedocument.spreadsheetml.sheet;base64," +
		base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestProcessXlsx(t *testing.T) {
	res := process(t, Input{
		Title:      "mandat.xlsx",
		Kind:       KindXlsx,
		RawContent: buildXlsx(t, "Klage"),
	})
	if res.Engine != "xlsx-parser" {
		t.Fatalf("engine = %q, want xlsx-parser", res.Engine)
	}
	if !strings.Contains(res.NormalizedText, "Klage") {
		t.Errorf("normalized text missing cell value: %q", res.NormalizedText)
	}
}

func TestProcessODSSpreadsheet(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("content.xml")
	if err != nil {
		t.Fatal(err)
	}
	content := `<?xml version="1.0"?><office:document-content xmlns:text="t">` +
		`<text:p>Klage gegen Mustermann</text:p></office:document-content>`
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	res := process(t, Input{
		Title: "tabelle.ods",
		RawContent: "data:application/vnd.oasis.opendocument.spreadsheet;base64," +
			base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	if res.Engine != "odt-parser" {
		t.Fatalf("engine = %q, want odt-parser", res.Engine)
	}
	if !strings.Contains(res.NormalizedText, "Klage gegen Mustermann") {
		t.Errorf("normalized text missing paragraph: %q", res.NormalizedText)
	}
}

func TestProcessEncryptedPDF(t *testing.T) {
	pdf := []byte("%PDF-1.7\n1 0 obj\n<< /Encrypt 2 0 R /Pages 3 0 R >>\nendobj\n%%EOF")
	res := process(t, Input{
		Title:      "akte.pdf",
		Kind:       KindPDF,
		RawContent: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf),
	})
	if res.Engine != "pdf-encrypted" {
		t.Fatalf("engine = %q, want pdf-encrypted", res.Engine)
	}
	if res.ExtractedText != "" {
		t.Errorf("expected empty text for encrypted pdf, got %q", res.ExtractedText)
	}
	if res.NeedsOCR {
		t.Error("encrypted pdf must never be routed to OCR")
	}
	if res.Status != StatusFailed {
		t.Errorf("status = %q, want failed", res.Status)
	}
}

func TestProcessInvalidBase64(t *testing.T) {
	res := process(t, Input{
		Title:      "kaputt.pdf",
		Kind:       KindPDF,
		RawContent: "data:application/pdf;base64,!!!not-base64!!!",
	})
	if res.Engine != "invalid-payload" {
		t.Fatalf("engine = %q, want invalid-payload", res.Engine)
	}
	if res.Status != StatusFailed {
		t.Errorf("status = %q, want failed", res.Status)
	}
	if res.NeedsOCR {
		t.Error("invalid payload must never be routed to OCR")
	}
}

func TestProcessScanImageRoutesToOCR(t *testing.T) {
	res := process(t, Input{
		Title:      "scan-001",
		Kind:       KindScanPDF,
		MimeType:   "image/png",
		RawContent: "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'}),
	})
	if !res.NeedsOCR {
		t.Fatal("image upload should be routed to OCR")
	}
	if len(res.Chunks) != 0 {
		t.Error("OCR candidates must not be chunked before OCR")
	}
}

func TestProcessOCRReentry(t *testing.T) {
	text := strings.Repeat("Der Angeklagte wurde am 12.03.2024 vernommen. ", 10)
	res := process(t, Input{
		DocumentID:    "d2",
		Title:         "scan-001",
		Kind:          KindScanPDF,
		RawContent:    text,
		OCROrigin:     true,
		OCRConfidence: 0.8,
	})
	if res.NeedsOCR {
		t.Fatal("OCR re-entry must not loop back to OCR")
	}
	if res.Engine != "ocr-text" {
		t.Errorf("engine = %q, want ocr-text", res.Engine)
	}
	if len(res.Chunks) == 0 {
		t.Error("expected chunks from OCR text")
	}
	if res.Quality == nil || res.Quality.OCRConfidence != 0.8 {
		t.Error("quality report should carry the OCR confidence")
	}
}

func TestProcessPlainGermanText(t *testing.T) {
	res := process(t, Input{
		DocumentID: "d3",
		Title:      "notiz",
		Kind:       KindNote,
		RawContent: "Der Mandant hat die Rechnung vom 01.02.2024 über 1.200,00 € nicht bezahlt und wurde daraufhin gemahnt.",
	})
	if res.Status != StatusReady {
		t.Fatalf("status = %q, want ready", res.Status)
	}
	if res.Language != LangGerman {
		t.Errorf("language = %q, want de", res.Language)
	}
	var haveDate, haveAmount bool
	for _, e := range res.AllEntities {
		switch e.Type {
		case EntityDate:
			haveDate = true
		case EntityAmount:
			haveAmount = true
		}
	}
	if !haveDate || !haveAmount {
		t.Errorf("expected date and amount entities, got %+v", res.AllEntities)
	}
}

func TestProcessEmptyInputFails(t *testing.T) {
	res := process(t, Input{Title: "leer.txt", Kind: KindNote, RawContent: "   "})
	if res.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", res.Status)
	}
	if res.Quality == nil || res.Quality.OverallScore != 0 {
		t.Error("empty document must score exactly 0")
	}
	if len(res.Chunks) != 0 {
		t.Error("failed document must not produce chunks")
	}
	if !strings.HasSuffix(res.Engine, "-empty") {
		t.Errorf("engine = %q, want -empty suffix", res.Engine)
	}
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		engine string
		want   string
	}{
		{"pdf-encrypted", "passwortgeschützt"},
		{"invalid-payload", "Base64"},
		{"docx-parser-empty", "kein Text"},
		{"crash-recovery:nil pointer", "nil pointer"},
		{"plain-text", "konnte nicht verarbeitet"},
	}
	for _, tt := range tests {
		if got := FailureReason(tt.engine); !strings.Contains(got, tt.want) {
			t.Errorf("FailureReason(%q) = %q, want substring %q", tt.engine, got, tt.want)
		}
	}
}
