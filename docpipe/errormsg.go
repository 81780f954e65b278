package docpipe

import (
	"errors"
	"strings"
)

var errInvalidBase64 = errors.New("invalid base64 payload")

// FailureReason derives a human-readable failure description from the engine
// tag of a failed run. The mapping is deterministic so the same failure
// always reads the same in the UI and in audit entries.
func FailureReason(engine string) string {
	if msg, ok := strings.CutPrefix(engine, "crash-recovery:"); ok {
		return "Verarbeitung abgebrochen: " + msg
	}
	switch {
	case engine == "pdf-encrypted":
		return "Das PDF ist passwortgeschützt und kann nicht gelesen werden."
	case engine == "invalid-payload":
		return "Der Dateiinhalt ist beschädigt oder kein gültiges Base64."
	case strings.HasSuffix(engine, "-empty"):
		return "Aus dem Dokument konnte kein Text extrahiert werden."
	case engine == "ocr-failed":
		return "Die Texterkennung (OCR) ist fehlgeschlagen."
	default:
		return "Das Dokument konnte nicht verarbeitet werden."
	}
}
