package ocrjobs

import "sync"

// binCache holds raw document payloads between intake and OCR completion.
// It is deliberately separate from the persisted record so megabyte-scale
// payloads are never serialised on store writes; the stored document carries
// a placeholder sentinel plus a blob key instead.
//
// Lifecycle: written once at intake, read by OCR attempts, deleted on
// success, crash, or a failure the re-queue pass cannot retry; a retryable
// failure keeps the entry so the next attempt skips the blob read.
// The orchestrator owns it exclusively; the
// mutex covers callers that run intake and the queue consumer concurrently.
type binCache struct {
	mu      sync.RWMutex
	entries map[string]binEntry
}

type binEntry struct {
	data []byte
	mime string
}

func newBinCache() *binCache {
	return &binCache{entries: make(map[string]binEntry)}
}

func (c *binCache) set(documentID string, data []byte, mime string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[documentID] = binEntry{data: data, mime: mime}
}

func (c *binCache) get(documentID string) ([]byte, string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[documentID]
	return e.data, e.mime, ok
}

func (c *binCache) delete(documentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, documentID)
}

func (c *binCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
