// Package tesseract adapts gosseract to the ocrjobs.Engine interface. It is
// wired in only when a local Tesseract installation is available; the
// orchestrator treats a nil local engine as "remote only".
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/hazyhaar/lexpipe/ocrjobs"
)

// Config tunes the recognition run.
type Config struct {
	// Languages in tesseract notation, e.g. "deu+eng". Default "deu+eng".
	Languages string
	// DPI hint for images without density metadata. Default 300.
	DPI int
}

func (c *Config) defaults() {
	if c.Languages == "" {
		c.Languages = "deu+eng"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
}

// Engine runs Tesseract over image payloads. A fresh client is created per
// call; gosseract clients are not safe for concurrent reuse.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	cfg.defaults()
	return &Engine{cfg: cfg}
}

// Recognize OCRs one image payload and reports a confidence averaged over
// the recognised words.
func (e *Engine) Recognize(ctx context.Context, data []byte, mimeType string, progress ocrjobs.PageProgress) (ocrjobs.EngineResult, error) {
	if err := ctx.Err(); err != nil {
		return ocrjobs.EngineResult{}, err
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return ocrjobs.EngineResult{}, fmt.Errorf("tesseract: unsupported mime type %q", mimeType)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(e.cfg.Languages, "+")...); err != nil {
		return ocrjobs.EngineResult{}, fmt.Errorf("tesseract: set language: %w", err)
	}
	if err := client.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprintf("%d", e.cfg.DPI)); err != nil {
		return ocrjobs.EngineResult{}, fmt.Errorf("tesseract: set dpi: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return ocrjobs.EngineResult{}, fmt.Errorf("tesseract: set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return ocrjobs.EngineResult{}, fmt.Errorf("tesseract: recognize: %w", err)
	}

	confidence := wordConfidence(client)
	if progress != nil {
		progress(1, 1, confidence)
	}

	return ocrjobs.EngineResult{
		Text:    text,
		Quality: confidence,
		Pages:   1,
		Engine:  "tesseract-local",
	}, nil
}

// wordConfidence averages per-word confidences into [0,1]. Zero when the
// page produced no words.
func wordConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}
