package docpipe

import (
	"fmt"
	"strings"
)

// emptyMarker replaces near-empty content in the fingerprint sample. Such
// fingerprints are recognisable downstream and never treated as duplicates,
// so blank uploads cannot shadow each other.
const emptyMarker = "__empty_document__"

// Fingerprint computes a content fingerprint in O(1) of the content size by
// hashing fixed sample windows instead of the full payload. Two independent
// rolling hashes (FNV-1a and DJB2) are concatenated so a collision in one
// does not produce a false duplicate.
func Fingerprint(title string, kind Kind, content, sourceRef string) string {
	sample := fingerprintSample(title, kind, content, sourceRef)
	return fmt.Sprintf("%016x%08x", fnv1a(sample), djb2(sample))
}

// NearEmpty reports whether content falls below the usable threshold. Such
// documents get a marker fingerprint and must be excluded from duplicate
// detection by the caller.
func NearEmpty(content string) bool {
	return len(strings.TrimSpace(content)) < minUsableChars
}

func fingerprintSample(title string, kind Kind, content, sourceRef string) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteByte('|')
	b.WriteString(string(kind))
	b.WriteByte('|')
	fmt.Fprintf(&b, "%d", len(content))
	b.WriteByte('|')
	b.WriteString(sourceRef)
	b.WriteByte('|')

	if NearEmpty(content) {
		b.WriteString(emptyMarker)
		return b.String()
	}

	n := len(content)
	window := func(start, size int) {
		if start < 0 {
			start = 0
		}
		end := start + size
		if end > n {
			end = n
		}
		if start < end {
			b.WriteString(content[start:end])
		}
	}

	window(0, 4096)
	if n > 8192 {
		window(n-4096, 4096)
	}
	if n > 12288 {
		window(n/2-2048, 4096)
	}
	if n > 20480 {
		window(n/4, 512)
		window(3*n/4, 512)
	}
	return b.String()
}

func fnv1a(s string) uint64 {
	var h uint64 = 0xcbf29ce484222325
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 0x100000001b3
	}
	return h
}

func djb2(s string) uint32 {
	var h uint32 = 5381
	for i := 0; i < len(s); i++ {
		h = h*33 + uint32(s[i])
	}
	return h
}
