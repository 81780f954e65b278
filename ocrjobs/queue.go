package ocrjobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// queueItem is one scheduled OCR job.
type queueItem struct {
	JobID      string
	DocumentID string
	VisibleAt  time.Time
	CreatedAt  time.Time
	Attempts   int
}

// errDocumentQueued signals that the document already has a queued item.
var errDocumentQueued = errors.New("ocrjobs: document already queued")

// Queue schedules OCR jobs through a SQLite visibility-timeout table. A
// claimed item is invisible for the visibility window; if the worker crashes
// the item reappears and another pass picks it up, which gives boot-time
// crash recovery for free. Extend pushes the window forward while a long OCR
// run heartbeats.
type Queue struct {
	db         *sql.DB
	visibility time.Duration
}

// NewQueue creates a queue handle. Call EnsureTable once at startup.
func NewQueue(db *sql.DB, visibility time.Duration) *Queue {
	if visibility <= 0 {
		visibility = 2 * time.Minute
	}
	return &Queue{db: db, visibility: visibility}
}

func (q *Queue) EnsureTable(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ocr_queue (
			job_id      TEXT PRIMARY KEY,
			document_id TEXT NOT NULL UNIQUE,
			visible_at  INTEGER NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL,
			attempts    INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_ocr_queue_visible ON ocr_queue (visible_at);
	`)
	if err != nil {
		return fmt.Errorf("ocrjobs: ensure queue table: %w", err)
	}
	return nil
}

// Publish inserts an immediately visible item. One item per document: a
// second publish for the same document returns errDocumentQueued.
func (q *Queue) Publish(ctx context.Context, jobID, documentID string) error {
	now := time.Now().UnixMilli()
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO ocr_queue (job_id, document_id, visible_at, created_at) VALUES (?,?,?,?)`,
		jobID, documentID, now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errDocumentQueued
		}
		return fmt.Errorf("ocrjobs: publish job %s: %w", jobID, err)
	}
	return nil
}

// Claim atomically picks the oldest visible item and hides it for the
// visibility window. Returns nil, nil when nothing is visible.
func (q *Queue) Claim(ctx context.Context) (*queueItem, error) {
	now := time.Now()
	hideUntil := now.Add(q.visibility).UnixMilli()

	row := q.db.QueryRowContext(ctx, `
		UPDATE ocr_queue
		SET visible_at = ?, attempts = attempts + 1
		WHERE job_id = (
			SELECT job_id FROM ocr_queue
			WHERE visible_at <= ?
			ORDER BY created_at ASC
			LIMIT 1
		)
		RETURNING job_id, document_id, visible_at, created_at, attempts`,
		hideUntil, now.UnixMilli(),
	)

	var it queueItem
	var visAt, creAt int64
	err := row.Scan(&it.JobID, &it.DocumentID, &visAt, &creAt, &it.Attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ocrjobs: claim: %w", err)
	}
	it.VisibleAt = time.UnixMilli(visAt)
	it.CreatedAt = time.UnixMilli(creAt)
	return &it, nil
}

// Ack removes a finished item.
func (q *Queue) Ack(ctx context.Context, jobID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM ocr_queue WHERE job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("ocrjobs: ack %s: %w", jobID, err)
	}
	return nil
}

// Nack makes an item immediately visible again.
func (q *Queue) Nack(ctx context.Context, jobID string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE ocr_queue SET visible_at = 0 WHERE job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("ocrjobs: nack %s: %w", jobID, err)
	}
	return nil
}

// Extend pushes the visibility window forward for an item still being
// processed (heartbeat pattern).
func (q *Queue) Extend(ctx context.Context, jobID string, extra time.Duration) error {
	hideUntil := time.Now().Add(extra).UnixMilli()
	_, err := q.db.ExecContext(ctx,
		`UPDATE ocr_queue SET visible_at = ? WHERE job_id = ?`, hideUntil, jobID)
	if err != nil {
		return fmt.Errorf("ocrjobs: extend %s: %w", jobID, err)
	}
	return nil
}

// Len returns the number of items (visible and hidden).
func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ocr_queue`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ocrjobs: len: %w", err)
	}
	return n, nil
}
