package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7Unique(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := gen()
		if seen[id] {
			t.Fatalf("duplicate ID after %d iterations: %s", i, id)
		}
		seen[id] = true
	}
}

func TestUUIDv7Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 100; i++ {
		id := gen()
		if id < prev {
			t.Fatalf("UUIDv7 not monotonic: %s < %s", id, prev)
		}
		prev = id
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("doc_", Default)
	id := gen()
	if !strings.HasPrefix(id, "doc_") {
		t.Errorf("expected doc_ prefix, got %s", id)
	}
	if len(id) <= len("doc_") {
		t.Errorf("prefixed ID has no body: %s", id)
	}
}

func TestNanoID(t *testing.T) {
	gen := NanoID(12)
	id := gen()
	if len(id) != 12 {
		t.Errorf("expected length 12, got %d (%s)", len(id), id)
	}
	for _, r := range id {
		if !strings.ContainsRune("0123456789abcdefghijklmnopqrstuvwxyz", r) {
			t.Errorf("unexpected rune %q in %s", r, id)
		}
	}
}
