// Package blobstore persists raw uploaded binaries content-addressed by
// SHA-256. The OCR orchestrator uses it to self-heal its in-memory binary
// cache after a restart: the content key recorded on the document record is
// enough to reload the original payload.
//
// Layout: <root>/<first two hex chars>/<full hex digest> with a small JSON
// sidecar holding the MIME type. Writes are atomic (tmp file + rename), so a
// crashed writer never leaves a half-written blob under its final key.
package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Blob is a stored payload with its MIME type.
type Blob struct {
	Data []byte
	MIME string
}

// Store is a filesystem-backed content-addressed blob store.
type Store struct {
	root string
}

// Open creates the store root if needed and returns a handle.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: create root: %w", err)
	}
	return &Store{root: root}, nil
}

// Key computes the content address for a payload without storing it.
func Key(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Set stores a payload and returns its content key. Storing the same bytes
// twice is a no-op returning the same key.
func (s *Store) Set(data []byte, mime string) (string, error) {
	key := Key(data)
	dir := filepath.Join(s.root, key[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("blobstore: mkdir: %w", err)
	}

	path := filepath.Join(dir, key)
	if _, err := os.Stat(path); err == nil {
		return key, nil // already stored, content-addressed
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("blobstore: write blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("blobstore: finalize blob: %w", err)
	}

	meta, err := json.Marshal(map[string]string{"mime": mime})
	if err != nil {
		return "", fmt.Errorf("blobstore: marshal meta: %w", err)
	}
	if err := os.WriteFile(path+".json", meta, 0o644); err != nil {
		return "", fmt.Errorf("blobstore: write meta: %w", err)
	}
	return key, nil
}

// Get returns the payload for a content key, or nil if it does not exist.
func (s *Store) Get(key string) (*Blob, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	path := filepath.Join(s.root, key[:2], key)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("blobstore: read blob: %w", err)
	}

	// Integrity check: the stored bytes must still match their address.
	if Key(data) != key {
		return nil, fmt.Errorf("blobstore: blob %s corrupt: content hash mismatch", key)
	}

	blob := &Blob{Data: data}
	if meta, err := os.ReadFile(path + ".json"); err == nil {
		var m map[string]string
		if json.Unmarshal(meta, &m) == nil {
			blob.MIME = m["mime"]
		}
	}
	return blob, nil
}

// Delete removes a blob and its sidecar. Missing blobs are not an error.
func (s *Store) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	path := filepath.Join(s.root, key[:2], key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blobstore: delete blob: %w", err)
	}
	os.Remove(path + ".json")
	return nil
}

// validateKey rejects keys that are not plain hex digests, so a stored key
// can never escape the store root through path components.
func validateKey(key string) error {
	if len(key) != 64 {
		return fmt.Errorf("blobstore: invalid key length %d", len(key))
	}
	if strings.ContainsAny(key, "/\\.") {
		return fmt.Errorf("blobstore: invalid key %q: path characters", key)
	}
	if _, err := hex.DecodeString(key); err != nil {
		return fmt.Errorf("blobstore: invalid key %q: not hex", key)
	}
	return nil
}
