package docpipe

import "log/slog"

// Config configures the document pipeline.
type Config struct {
	// MaxOfficeBase64 caps the Base64 length decoded for ZIP-based office
	// payloads. Longer payloads are truncated before decode to bound memory;
	// the result carries an "*-empty" engine suffix if nothing usable
	// survived truncation. Default: 20 MiB.
	MaxOfficeBase64 int `json:"max_office_base64" yaml:"max_office_base64"`

	// MaxPDFDecode caps the number of Base64 bytes decoded for the deep PDF
	// parser. Back-loaded text layers beyond the cap are missed; page count
	// then falls back to a size heuristic. Default: 10 MiB.
	MaxPDFDecode int `json:"max_pdf_decode" yaml:"max_pdf_decode"`

	// ChunkTarget, ChunkMax and ChunkOverlap control the semantic chunker.
	// Defaults: 800 / 1500 / 100 characters.
	ChunkTarget  int `json:"chunk_target" yaml:"chunk_target"`
	ChunkMax     int `json:"chunk_max" yaml:"chunk_max"`
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`

	// Logger for debug/error messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxOfficeBase64 <= 0 {
		c.MaxOfficeBase64 = 20 * 1024 * 1024
	}
	if c.MaxPDFDecode <= 0 {
		c.MaxPDFDecode = 10 * 1024 * 1024
	}
	if c.ChunkTarget <= 0 {
		c.ChunkTarget = 800
	}
	if c.ChunkMax <= 0 {
		c.ChunkMax = 1500
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = 100
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
