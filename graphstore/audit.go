package graphstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/lexpipe/docpipe"
)

// AuditEntry is one row of the operational audit trail.
type AuditEntry struct {
	ID        int64            `json:"id"`
	Action    string           `json:"action"`
	Severity  docpipe.Severity `json:"severity"`
	Details   string           `json:"details"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// AuditFilter narrows an audit query. Zero values mean "any".
type AuditFilter struct {
	Action   string
	Severity docpipe.Severity
	Since    time.Time
	Limit    int
}

// AppendAuditEntry records one audit event. Audit writes are load-bearing
// for compliance, so errors are returned, not swallowed; callers on
// best-effort paths log and continue.
func (s *Store) AppendAuditEntry(ctx context.Context, e *AuditEntry) error {
	if e.Severity == "" {
		e.Severity = docpipe.SeverityInfo
	}
	meta := []byte("{}")
	if e.Metadata != nil {
		var err error
		if meta, err = json.Marshal(e.Metadata); err != nil {
			return fmt.Errorf("graphstore: marshal audit metadata: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_trail (action, severity, details, metadata, created_at)
		VALUES (?,?,?,?,?)`,
		e.Action, string(e.Severity), e.Details, string(meta), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("graphstore: append audit entry %q: %w", e.Action, err)
	}
	return nil
}

// ListAuditEntries returns matching entries, newest first.
func (s *Store) ListAuditEntries(ctx context.Context, f AuditFilter) ([]*AuditEntry, error) {
	query := `SELECT id, action, severity, details, metadata, created_at
		FROM audit_trail WHERE 1=1`
	var args []any
	if f.Action != "" {
		query += ` AND action = ?`
		args = append(args, f.Action)
	}
	if f.Severity != "" {
		query += ` AND severity = ?`
		args = append(args, string(f.Severity))
	}
	if !f.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, f.Since.UnixMilli())
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("graphstore: list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		var severity string
		var meta []byte
		var created int64
		if err := rows.Scan(&e.ID, &e.Action, &severity, &e.Details, &meta, &created); err != nil {
			return nil, fmt.Errorf("graphstore: scan audit entry: %w", err)
		}
		e.Severity = docpipe.Severity(severity)
		e.CreatedAt = time.UnixMilli(created)
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf("graphstore: unmarshal audit metadata: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
