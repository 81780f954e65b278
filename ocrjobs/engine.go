package ocrjobs

import "context"

// EngineResult is the outcome of one OCR run over a document payload.
type EngineResult struct {
	Text string
	// Quality is the engine-reported confidence in [0,1].
	Quality float64
	// Pages is the number of pages processed, when the engine knows it.
	Pages int
	// Engine names the code path that produced the text.
	Engine string
	// Language is an ISO 639-1 hint from the engine, when available.
	Language string
}

// PageProgress reports per-page confidence during recognition. page is
// 1-based; total may be 0 when unknown.
type PageProgress func(page, total int, confidence float64)

// Engine is a local OCR backend. Implementations must honour ctx
// cancellation between pages and call progress (if non-nil) as pages
// complete.
type Engine interface {
	Recognize(ctx context.Context, data []byte, mimeType string, progress PageProgress) (EngineResult, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, data []byte, mimeType string, progress PageProgress) (EngineResult, error)

func (f EngineFunc) Recognize(ctx context.Context, data []byte, mimeType string, progress PageProgress) (EngineResult, error) {
	return f(ctx, data, mimeType, progress)
}
