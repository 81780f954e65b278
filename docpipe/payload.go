package docpipe

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// payload is the decoded form of Input.RawContent.
type payload struct {
	binary []byte // set when the input carried a data: URL
	text   string // set for plain text inputs
	mime   string // MIME from the data: header, if any
}

func (p payload) isBinary() bool { return p.binary != nil }

// decodePayload splits a raw content string into binary or text form. The
// "data:<mime>;base64," header must be stripped before any decoder runs; an
// undecodable Base64 body is a terminal condition surfaced by the caller.
func decodePayload(raw string, maxBase64 int) (payload, error) {
	if mime, body, ok := splitDataURL(raw); ok {
		truncated := false
		if maxBase64 > 0 && len(body) > maxBase64 {
			// Base64 works in 4-char quanta; cut on a boundary.
			body = body[:maxBase64-maxBase64%4]
			truncated = true
		}
		data, err := base64.StdEncoding.DecodeString(body)
		if err != nil && truncated {
			// A truncated tail may still carry padding issues; retry raw.
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(body, "="))
		}
		if err != nil {
			return payload{}, errInvalidBase64
		}
		return payload{binary: data, mime: mime}, nil
	}
	return payload{text: raw}, nil
}

// DecodeDataURL decodes a "data:<mime>;base64,<payload>" URL into its raw
// bytes and MIME type. Plain text input decodes to its UTF-8 bytes with an
// empty MIME. The OCR orchestrator uses this to park original binaries.
func DecodeDataURL(raw string) ([]byte, string, error) {
	if mime, body, ok := splitDataURL(raw); ok {
		data, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, "", errInvalidBase64
		}
		return data, mime, nil
	}
	return []byte(raw), "", nil
}

// splitDataURL recognises "data:<mime>;base64,<payload>" URLs.
func splitDataURL(raw string) (mime, body string, ok bool) {
	if !strings.HasPrefix(raw, "data:") {
		return "", "", false
	}
	comma := strings.Index(raw, ",")
	if comma < 0 {
		return "", "", false
	}
	header := raw[len("data:"):comma]
	if !strings.HasSuffix(header, ";base64") {
		return "", "", false
	}
	return strings.TrimSuffix(header, ";base64"), raw[comma+1:], true
}

// decodeBytesToText decodes bytes of unknown charset to a string. UTF-8
// strict first, then Windows-1252 (preserves umlauts from legacy exports),
// then lossy UTF-8 as last resort. Never fails.
func decodeBytesToText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	if s, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil {
		return string(s)
	}
	return strings.ToValidUTF8(string(data), "")
}
