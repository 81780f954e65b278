// Package graphstore is the persistence collaborator of the pipeline: legal
// document records, semantic chunks, quality reports, OCR job bookkeeping,
// the audit trail and permission evaluation, all backed by SQLite.
//
// Huge payloads never enter the store. Documents carry a content-addressed
// blob key plus a placeholder sentinel; the raw bytes live in the blobstore
// and the orchestrator's binary cache.
package graphstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/lexpipe/docpipe"
)

// BinaryPlaceholder is stored in place of a binary payload. The real bytes
// are reachable through BlobKey.
const BinaryPlaceholder = "__binary_cached__"

// DocumentStatus is the lifecycle state of a stored document.
type DocumentStatus string

const (
	DocStatusOCRPending DocumentStatus = "ocr_pending"
	DocStatusOCRRunning DocumentStatus = "ocr_running"
	DocStatusIndexed    DocumentStatus = "indexed"
	DocStatusFailed     DocumentStatus = "failed"
	DocStatusExcluded   DocumentStatus = "excluded"
)

// Document is one legal document record.
type Document struct {
	ID            string           `json:"id"`
	CaseID        string           `json:"case_id"`
	WorkspaceID   string           `json:"workspace_id"`
	Title         string           `json:"title"`
	Kind          docpipe.Kind     `json:"kind"`
	Status        DocumentStatus   `json:"status"`
	Fingerprint   string           `json:"fingerprint"`
	MimeType      string           `json:"mime_type,omitempty"`
	SourceRef     string           `json:"source_ref,omitempty"`
	Language      docpipe.Language `json:"language,omitempty"`
	Engine        string           `json:"engine,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
	PageCount     int              `json:"page_count,omitempty"`
	// BlobKey addresses the original binary in the blob store; Content is
	// either normalized text or the BinaryPlaceholder sentinel.
	BlobKey   string    `json:"blob_key,omitempty"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrNotFound is returned by point lookups for absent rows.
var ErrNotFound = errors.New("graphstore: not found")

// Options configures a Store.
type Options struct {
	// Role is the caller role used for permission evaluation.
	// Default: "member".
	Role string
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Role == "" {
		o.Role = "member"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Store is the SQLite-backed persistence handle.
type Store struct {
	db   *sql.DB
	opts Options
}

// New creates a store handle. Call Init once at startup.
func New(db *sql.DB, opts Options) *Store {
	opts.defaults()
	return &Store{db: db, opts: opts}
}

// Init creates the schema if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS legal_documents (
			id             TEXT PRIMARY KEY,
			case_id        TEXT NOT NULL,
			workspace_id   TEXT NOT NULL DEFAULT '',
			title          TEXT NOT NULL,
			kind           TEXT NOT NULL,
			status         TEXT NOT NULL,
			fingerprint    TEXT NOT NULL DEFAULT '',
			mime_type      TEXT NOT NULL DEFAULT '',
			source_ref     TEXT NOT NULL DEFAULT '',
			language       TEXT NOT NULL DEFAULT '',
			engine         TEXT NOT NULL DEFAULT '',
			failure_reason TEXT NOT NULL DEFAULT '',
			page_count     INTEGER NOT NULL DEFAULT 0,
			blob_key       TEXT NOT NULL DEFAULT '',
			content        TEXT NOT NULL DEFAULT '',
			created_at     INTEGER NOT NULL,
			updated_at     INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_docs_case ON legal_documents (case_id);
		CREATE INDEX IF NOT EXISTS idx_docs_fingerprint ON legal_documents (case_id, fingerprint);

		CREATE TABLE IF NOT EXISTS semantic_chunks (
			id           TEXT PRIMARY KEY,
			document_id  TEXT NOT NULL,
			case_id      TEXT NOT NULL DEFAULT '',
			workspace_id TEXT NOT NULL DEFAULT '',
			idx          INTEGER NOT NULL,
			content      TEXT NOT NULL,
			category     TEXT NOT NULL DEFAULT '',
			entities     TEXT NOT NULL DEFAULT '[]',
			keywords     TEXT NOT NULL DEFAULT '[]',
			quality      REAL NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_doc ON semantic_chunks (document_id, idx);

		CREATE TABLE IF NOT EXISTS quality_reports (
			document_id    TEXT PRIMARY KEY,
			overall_score  INTEGER NOT NULL,
			ocr_confidence REAL NOT NULL DEFAULT 0,
			pages          INTEGER NOT NULL DEFAULT 0,
			expected_pages INTEGER NOT NULL DEFAULT 0,
			total_chunks   INTEGER NOT NULL DEFAULT 0,
			total_entities INTEGER NOT NULL DEFAULT 0,
			problems       TEXT NOT NULL DEFAULT '[]',
			checklist      TEXT NOT NULL DEFAULT '[]',
			processed_at   INTEGER NOT NULL,
			duration_ms    INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS ocr_jobs (
			id                TEXT PRIMARY KEY,
			document_id       TEXT NOT NULL,
			status            TEXT NOT NULL,
			progress          INTEGER NOT NULL DEFAULT 0,
			stage             TEXT NOT NULL DEFAULT '',
			current_page      INTEGER NOT NULL DEFAULT 0,
			total_pages       INTEGER NOT NULL DEFAULT 0,
			engine            TEXT NOT NULL DEFAULT '',
			error_message     TEXT NOT NULL DEFAULT '',
			queued_at         INTEGER NOT NULL,
			started_at        INTEGER,
			finished_at       INTEGER,
			last_heartbeat_at INTEGER
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_active
			ON ocr_jobs (document_id) WHERE status IN ('queued','running');

		CREATE TABLE IF NOT EXISTS audit_trail (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			action     TEXT NOT NULL,
			severity   TEXT NOT NULL DEFAULT 'info',
			details    TEXT NOT NULL DEFAULT '',
			metadata   TEXT NOT NULL DEFAULT '{}',
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_trail (action, created_at);

		CREATE TABLE IF NOT EXISTS permissions (
			role       TEXT NOT NULL,
			capability TEXT NOT NULL,
			allowed    INTEGER NOT NULL,
			PRIMARY KEY (role, capability)
		);
	`)
	if err != nil {
		return fmt.Errorf("graphstore: init schema: %w", err)
	}
	return s.seedPermissions(ctx)
}

// UpsertDocument inserts or fully replaces a document record. UpdatedAt is
// set by the store; CreatedAt of an existing row wins.
func (s *Store) UpsertDocument(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		return fmt.Errorf("graphstore: document id required")
	}
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO legal_documents
			(id, case_id, workspace_id, title, kind, status, fingerprint,
			 mime_type, source_ref, language, engine, failure_reason,
			 page_count, blob_key, content, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			case_id = excluded.case_id,
			workspace_id = excluded.workspace_id,
			title = excluded.title,
			kind = excluded.kind,
			status = excluded.status,
			fingerprint = excluded.fingerprint,
			mime_type = excluded.mime_type,
			source_ref = excluded.source_ref,
			language = excluded.language,
			engine = excluded.engine,
			failure_reason = excluded.failure_reason,
			page_count = excluded.page_count,
			blob_key = excluded.blob_key,
			content = excluded.content,
			updated_at = excluded.updated_at`,
		doc.ID, doc.CaseID, doc.WorkspaceID, doc.Title, string(doc.Kind),
		string(doc.Status), doc.Fingerprint, doc.MimeType, doc.SourceRef,
		string(doc.Language), doc.Engine, doc.FailureReason, doc.PageCount,
		doc.BlobKey, doc.Content, now, now,
	)
	if err != nil {
		return fmt.Errorf("graphstore: upsert document %s: %w", doc.ID, err)
	}
	return nil
}

// UpdateDocumentStatus changes only the status (and failure reason) of a
// document, leaving the rest of the record untouched.
func (s *Store) UpdateDocumentStatus(ctx context.Context, id string, status DocumentStatus, failureReason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE legal_documents
		SET status = ?, failure_reason = ?, updated_at = ?
		WHERE id = ?`,
		string(status), failureReason, time.Now().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("graphstore: update status of %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetDocument returns one document or ErrNotFound.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, case_id, workspace_id, title, kind, status, fingerprint,
		       mime_type, source_ref, language, engine, failure_reason,
		       page_count, blob_key, content, created_at, updated_at
		FROM legal_documents WHERE id = ?`, id)
	return scanDocument(row)
}

// ListDocuments returns all documents of a case, newest first.
func (s *Store) ListDocuments(ctx context.Context, caseID string) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, case_id, workspace_id, title, kind, status, fingerprint,
		       mime_type, source_ref, language, engine, failure_reason,
		       page_count, blob_key, content, created_at, updated_at
		FROM legal_documents WHERE case_id = ?
		ORDER BY created_at DESC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("graphstore: list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// FindDuplicate looks for a non-failed document in the same case with an
// equal fingerprint. Failed matches stay eligible for retry and are not
// duplicates; callers must also skip the lookup entirely for near-empty
// content (docpipe.NearEmpty).
func (s *Store) FindDuplicate(ctx context.Context, caseID, fingerprint, excludeID string) (*Document, error) {
	if fingerprint == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, case_id, workspace_id, title, kind, status, fingerprint,
		       mime_type, source_ref, language, engine, failure_reason,
		       page_count, blob_key, content, created_at, updated_at
		FROM legal_documents
		WHERE case_id = ? AND fingerprint = ? AND id != ? AND status != ?
		ORDER BY created_at ASC LIMIT 1`,
		caseID, fingerprint, excludeID, string(DocStatusFailed))
	doc, err := scanDocument(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return doc, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var d Document
	var kind, status, lang string
	var created, updated int64
	err := row.Scan(&d.ID, &d.CaseID, &d.WorkspaceID, &d.Title, &kind, &status,
		&d.Fingerprint, &d.MimeType, &d.SourceRef, &lang, &d.Engine,
		&d.FailureReason, &d.PageCount, &d.BlobKey, &d.Content, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("graphstore: scan document: %w", err)
	}
	d.Kind = docpipe.Kind(kind)
	d.Status = DocumentStatus(status)
	d.Language = docpipe.Language(lang)
	d.CreatedAt = time.UnixMilli(created)
	d.UpdatedAt = time.UnixMilli(updated)
	return &d, nil
}
