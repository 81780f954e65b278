package docpipe

import "time"

// Kind classifies an uploaded document as declared by the caller.
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindScanPDF Kind = "scan-pdf"
	KindDocx    Kind = "docx"
	KindXlsx    Kind = "xlsx"
	KindPptx    Kind = "pptx"
	KindNote    Kind = "note"
	KindEmail   Kind = "email"
	KindOther   Kind = "other"
)

// Language is the detected document language.
type Language string

const (
	LangGerman  Language = "de"
	LangEnglish Language = "en"
	LangUnknown Language = "unknown"
)

// Status is the processing verdict for a document.
type Status string

const (
	StatusReady       Status = "ready"
	StatusNeedsReview Status = "needs_review"
	StatusFailed      Status = "failed"
)

// Severity grades a quality problem.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Input is one document handed to the pipeline. Immutable per call.
//
// RawContent is either UTF-8 text or a "data:<mime>;base64,<payload>" URL
// carrying the original binary.
type Input struct {
	DocumentID        string
	CaseID            string
	WorkspaceID       string
	Title             string
	Kind              Kind
	RawContent        string
	MimeType          string
	ExpectedPageCount int
	SourceRef         string
	// OCROrigin marks text that came back from an OCR engine; it changes
	// quality scoring (short scans are penalised, no text-layer bonus).
	OCROrigin bool
	// OCRConfidence is the engine-reported quality (0..1) for OCR re-entry.
	OCRConfidence float64
}

// Entity is a single extracted named entity.
type Entity struct {
	Type  EntityType `json:"type"`
	Value string     `json:"value"`
}

// EntityType names an entity class.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityDate         EntityType = "date"
	EntityLegalRef     EntityType = "legal_reference"
	EntityAmount       EntityType = "amount"
	EntityCaseNumber   EntityType = "case_number"
	EntityAddress      EntityType = "address"
	EntityIBAN         EntityType = "iban"
)

// Chunk is a bounded span of normalised text with its own classification.
// Chunks are created once per processing run and superseded wholesale on
// reprocessing, never merged.
type Chunk struct {
	ID          string   `json:"id"`
	DocumentID  string   `json:"document_id"`
	CaseID      string   `json:"case_id"`
	WorkspaceID string   `json:"workspace_id"`
	Index       int      `json:"index"` // 0-based, order-significant
	Text        string   `json:"text"`
	Category    Category `json:"category"`
	Entities    []Entity `json:"entities"`
	Keywords    []string `json:"keywords"` // <=15, frequency-ranked
	Quality     float64  `json:"quality"`  // 0..1
}

// Problem is one quality finding on a document.
type Problem struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// ChecklistItem is a user-facing yes/no signal derived from quality data.
type ChecklistItem struct {
	Label string `json:"label"`
	OK    bool   `json:"ok"`
}

// QualityReport is the scoring verdict for one processing run. A new report
// supersedes the previous one per document.
type QualityReport struct {
	DocumentID      string          `json:"document_id"`
	OverallScore    int             `json:"overall_score"` // 0..100
	OCRConfidence   float64         `json:"ocr_confidence"`
	ExtractedPages  int             `json:"extracted_pages"`
	ExpectedPages   int             `json:"expected_pages,omitempty"`
	TotalChunks     int             `json:"total_chunks"`
	TotalEntities   int             `json:"total_entities"`
	Problems        []Problem       `json:"problems"`
	Checklist       []ChecklistItem `json:"checklist"`
	ProcessedAt     time.Time       `json:"processed_at"`
	ProcessingDurMs int64           `json:"processing_duration_ms"`
}

// Structure describes detected document layout.
type Structure struct {
	Headings    []string `json:"headings"`
	HasTables   bool     `json:"has_tables"`
	TableCount  int      `json:"table_count"`
	MultiColumn bool     `json:"multi_column"`
}

// Result is the full outcome of one pipeline run.
type Result struct {
	ExtractedText  string         `json:"extracted_text"`
	NormalizedText string         `json:"normalized_text"`
	Language       Language       `json:"language"`
	Chunks         []Chunk        `json:"chunks"`
	Quality        *QualityReport `json:"quality"`
	Status         Status         `json:"status"`
	// Engine tags the code path that produced the text (e.g. "json-parser",
	// "pdf-encrypted", "docx-empty"). Used for diagnostics and to derive the
	// human-readable failure reason.
	Engine      string     `json:"engine"`
	AllEntities []Entity   `json:"all_entities"`
	DurationMs  int64      `json:"duration_ms"`
	Structure   *Structure `json:"structure,omitempty"`
	Fingerprint string     `json:"fingerprint"`
	// NeedsOCR is set when no text layer was found and the document is a
	// candidate for OCR fallback instead of a terminal failure.
	NeedsOCR  bool `json:"needs_ocr"`
	PageCount int  `json:"page_count"`
}
