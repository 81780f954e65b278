// Package docpipe turns uploaded legal documents of arbitrary format into
// normalised text, semantic chunks, extracted entities and a quality verdict.
//
// The pipeline is synchronous and deterministic; documents that need OCR are
// flagged via Result.NeedsOCR and handled by the ocrjobs orchestrator, which
// re-enters this pipeline with OCR-derived text.
package docpipe

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/hazyhaar/lexpipe/idgen"
)

// Pipeline processes documents. Safe for concurrent use; per-call state only.
type Pipeline struct {
	cfg   Config
	log   *slog.Logger
	newID idgen.Generator
}

func New(cfg Config) *Pipeline {
	(&cfg).defaults()
	return &Pipeline{cfg: cfg, log: cfg.Logger, newID: idgen.Default}
}

// Process runs one document through the full pipeline: format dispatch,
// extraction, normalisation, structure analysis, chunking, entity extraction
// and quality assessment. It never panics on malformed input; extraction
// failures surface as a failed Result, not an error. The returned error is
// reserved for context cancellation.
func (p *Pipeline) Process(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started := time.Now()

	res := p.extract(in)
	res.Fingerprint = Fingerprint(in.Title, in.Kind, res.ExtractedText, in.SourceRef)

	if res.NeedsOCR {
		// OCR candidates are not scored here; the orchestrator re-enters the
		// pipeline with OCR text and scoring happens then.
		res.DurationMs = time.Since(started).Milliseconds()
		p.log.InfoContext(ctx, "document routed to ocr",
			"document_id", in.DocumentID, "engine", res.Engine)
		return res, nil
	}

	res.NormalizedText = Normalize(res.ExtractedText)
	res.Language = DetectLanguage(res.NormalizedText)
	// Structure analysis reads the raw extracted text: normalisation erases
	// the column gaps it keys on.
	res.Structure = AnalyzeStructure(res.ExtractedText)

	if !NearEmpty(res.NormalizedText) {
		res.Chunks = p.buildChunks(in, res.NormalizedText)
		res.AllEntities = p.collectEntities(res.Chunks)
	}

	quality, status := AssessQuality(in, res.NormalizedText, res.Chunks, res.AllEntities, res.Structure, res.PageCount, started)
	res.Quality = quality
	res.Status = status
	if status == StatusFailed {
		res.Chunks = nil
		quality.TotalChunks = 0
	}

	res.DurationMs = time.Since(started).Milliseconds()
	p.log.InfoContext(ctx, "document processed",
		"document_id", in.DocumentID,
		"engine", res.Engine,
		"status", res.Status,
		"score", quality.OverallScore,
		"chunks", len(res.Chunks),
		"duration_ms", res.DurationMs)
	return res, nil
}

// extract resolves the payload and dispatches to a format-specific extractor.
// Decision order: explicit file extension, then MIME, then declared kind.
func (p *Pipeline) extract(in Input) *Result {
	res := &Result{Status: StatusReady}

	pl, err := decodePayload(in.RawContent, p.cfg.MaxOfficeBase64)
	if err != nil {
		res.Engine = "invalid-payload"
		res.Status = StatusFailed
		return res
	}
	mime := in.MimeType
	if mime == "" {
		mime = pl.mime
	}
	mime = strings.ToLower(mime)

	ext := strings.ToLower(path.Ext(in.Title))

	if in.OCROrigin {
		res.Engine = "ocr-text"
		res.ExtractedText = pl.text
		if pl.isBinary() {
			res.ExtractedText = decodeBytesToText(pl.binary)
		}
		res.PageCount = in.ExpectedPageCount
		return res
	}

	switch ext {
	case ".docx":
		return p.extractZipFormat(res, pl, "docx-parser", func(ar *zipArchive) (string, int) {
			return extractDocx(ar)
		})
	case ".xlsx", ".xlsm":
		return p.extractZipFormat(res, pl, "xlsx-parser", func(ar *zipArchive) (string, int) {
			return extractXlsx(ar), 0
		})
	case ".pptx":
		return p.extractZipFormat(res, pl, "pptx-parser", func(ar *zipArchive) (string, int) {
			return extractPptx(ar)
		})
	case ".odt", ".ods":
		// ODF bundles (text and spreadsheet alike) carry their paragraphs
		// in content.xml, not in OOXML worksheet parts.
		return p.extractZipFormat(res, pl, "odt-parser", func(ar *zipArchive) (string, int) {
			return extractODT(ar), 0
		})
	case ".doc", ".xls", ".ppt":
		return p.extractLegacyOffice(res, pl)
	case ".rtf":
		return finishText(res, "rtf-parser", extractRTF(payloadText(pl)))
	case ".csv", ".tsv":
		return finishText(res, "csv-normalizer", extractCSV(payloadText(pl)))
	case ".json":
		return p.extractJSONPayload(res, payloadText(pl))
	case ".xml":
		return finishText(res, "xml-stripper", extractXML(payloadText(pl)))
	case ".md":
		return finishText(res, "markdown", payloadText(pl))
	case ".html", ".htm":
		return finishText(res, "html-stripper", stripHTML(payloadText(pl)))
	case ".pdf":
		return p.extractPDFPayload(res, in, pl, mime)
	}

	// No decisive extension: MIME sniffing as tiebreaker.
	switch {
	case strings.HasPrefix(mime, "image/"):
		res.Engine = "image"
		res.NeedsOCR = true
		return res
	case strings.Contains(mime, "pdf") || in.Kind == KindPDF || in.Kind == KindScanPDF:
		return p.extractPDFPayload(res, in, pl, mime)
	case strings.Contains(mime, "json"):
		return p.extractJSONPayload(res, payloadText(pl))
	case strings.Contains(mime, "xml"):
		return finishText(res, "xml-stripper", extractXML(payloadText(pl)))
	case strings.Contains(mime, "csv"):
		return finishText(res, "csv-normalizer", extractCSV(payloadText(pl)))
	case strings.Contains(mime, "html"):
		return finishText(res, "html-stripper", stripHTML(payloadText(pl)))
	case strings.Contains(mime, "rtf"):
		return finishText(res, "rtf-parser", extractRTF(payloadText(pl)))
	case strings.Contains(mime, "officedocument.wordprocessingml"):
		return p.extractZipFormat(res, pl, "docx-parser", func(ar *zipArchive) (string, int) {
			return extractDocx(ar)
		})
	case strings.Contains(mime, "officedocument.spreadsheetml"):
		return p.extractZipFormat(res, pl, "xlsx-parser", func(ar *zipArchive) (string, int) {
			return extractXlsx(ar), 0
		})
	case strings.Contains(mime, "officedocument.presentationml"):
		return p.extractZipFormat(res, pl, "pptx-parser", func(ar *zipArchive) (string, int) {
			return extractPptx(ar)
		})
	case strings.Contains(mime, "opendocument."):
		return p.extractZipFormat(res, pl, "odt-parser", func(ar *zipArchive) (string, int) {
			return extractODT(ar), 0
		})
	case strings.Contains(mime, "msword") || strings.Contains(mime, "ms-excel") || strings.Contains(mime, "ms-powerpoint"):
		return p.extractLegacyOffice(res, pl)
	}

	// Declared kind as last resort.
	switch in.Kind {
	case KindDocx:
		return p.extractZipFormat(res, pl, "docx-parser", func(ar *zipArchive) (string, int) {
			return extractDocx(ar)
		})
	case KindXlsx:
		return p.extractZipFormat(res, pl, "xlsx-parser", func(ar *zipArchive) (string, int) {
			return extractXlsx(ar), 0
		})
	case KindPptx:
		return p.extractZipFormat(res, pl, "pptx-parser", func(ar *zipArchive) (string, int) {
			return extractPptx(ar)
		})
	case KindEmail:
		return finishText(res, "email-parser", extractEmail(payloadText(pl)))
	}

	// Plain or binary-decoded text.
	text := payloadText(pl)
	if looksLikeHTML(text) {
		return finishText(res, "html-stripper", stripHTML(text))
	}
	return finishText(res, "plain-text", text)
}

func payloadText(pl payload) string {
	if pl.isBinary() {
		return decodeBytesToText(pl.binary)
	}
	return pl.text
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

// finishText records the engine tag and extracted text, appending the
// "-empty" suffix when nothing usable was extracted.
func finishText(res *Result, engine, text string) *Result {
	res.Engine = engine
	res.ExtractedText = text
	if NearEmpty(text) {
		res.Engine = engine + "-empty"
	}
	return res
}

func (p *Pipeline) extractZipFormat(res *Result, pl payload, engine string, extract func(*zipArchive) (string, int)) *Result {
	if !pl.isBinary() {
		// Some callers paste decoded XML straight into the content field.
		return finishText(res, engine, extractXML(pl.text))
	}
	ar, err := openZip(pl.binary)
	if err != nil {
		p.log.Debug("zip open failed", "engine", engine, "err", err)
		return finishText(res, engine, "")
	}
	text, pages := extract(ar)
	res.PageCount = pages
	return finishText(res, engine, text)
}

func (p *Pipeline) extractLegacyOffice(res *Result, pl payload) *Result {
	if !pl.isBinary() {
		return finishText(res, "doc-legacy", pl.text)
	}
	if isOLE2(pl.binary) {
		return finishText(res, "doc-legacy", extractDocLegacy(pl.binary))
	}
	// Modern payload behind a legacy extension.
	if ar, err := openZip(pl.binary); err == nil {
		text, pages := extractDocx(ar)
		res.PageCount = pages
		return finishText(res, "docx-parser", text)
	}
	return finishText(res, "doc-legacy", decodeBytesToText(pl.binary))
}

func (p *Pipeline) extractJSONPayload(res *Result, raw string) *Result {
	if text, ok := extractJSON(raw); ok {
		return finishText(res, "json-parser", text)
	}
	// Not valid JSON after all; fall back to plain text.
	return finishText(res, "plain-text", raw)
}

func (p *Pipeline) extractPDFPayload(res *Result, in Input, pl payload, mime string) *Result {
	data := pl.binary
	if data == nil {
		// A text payload under a PDF kind is already extracted text.
		return finishText(res, "pdf-passthrough", pl.text)
	}
	if len(data) > p.cfg.MaxPDFDecode {
		data = data[:p.cfg.MaxPDFDecode]
	}

	ex := extractPDF(data, len(pl.binary))
	res.PageCount = ex.pages
	if ex.encrypted {
		res.Engine = "pdf-encrypted"
		res.Status = StatusFailed
		return res
	}

	engine := "pdf-text"
	if ex.deep {
		engine = "pdf-stream"
	}
	if strings.TrimSpace(ex.text) == "" {
		res.Engine = "pdf-scan"
		res.NeedsOCR = true
		return res
	}
	if in.Kind == KindScanPDF && NearEmpty(ex.text) {
		res.Engine = "pdf-scan"
		res.NeedsOCR = true
		return res
	}
	return finishText(res, engine, ex.text)
}

func (p *Pipeline) buildChunks(in Input, normalized string) []Chunk {
	chunks := ChunkText(normalized, p.cfg)
	for i := range chunks {
		c := &chunks[i]
		c.ID = p.newID()
		c.DocumentID = in.DocumentID
		c.CaseID = in.CaseID
		c.WorkspaceID = in.WorkspaceID
		c.Category = Categorize(c.Text)
		c.Entities = ExtractEntities(c.Text)
		c.Keywords = ExtractKeywords(c.Text)
		c.Quality = chunkQuality(c.Text)
	}
	return chunks
}

func (p *Pipeline) collectEntities(chunks []Chunk) []Entity {
	all := make([][]Entity, len(chunks))
	for i, c := range chunks {
		all[i] = c.Entities
	}
	return MergeEntities(all...)
}

// chunkQuality is a cheap per-chunk confidence in [0,1]; short or garbled
// chunks score lower.
func chunkQuality(text string) float64 {
	q := 1.0
	if len(text) < 100 {
		q -= 0.2
	}
	if ratio := garbledRatio(text); ratio > 0.1 {
		q -= ratio
	}
	if q < 0 {
		q = 0
	}
	return q
}

// FailureMessage builds the user-facing failure text for a failed result.
func FailureMessage(res *Result) string {
	if res == nil {
		return FailureReason("")
	}
	return fmt.Sprintf("%s (engine: %s)", FailureReason(res.Engine), res.Engine)
}
