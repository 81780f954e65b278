package graphstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobStatus is the OCR job lifecycle state.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// OcrJob is one OCR attempt for a document. At most one active (queued or
// running) job may exist per document; the schema enforces this with a
// partial unique index.
type OcrJob struct {
	ID              string     `json:"id"`
	DocumentID      string     `json:"document_id"`
	Status          JobStatus  `json:"status"`
	Progress        int        `json:"progress"` // 0..100
	Stage           string     `json:"stage"`
	CurrentPage     int        `json:"current_page"`
	TotalPages      int        `json:"total_pages"`
	Engine          string     `json:"engine,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	QueuedAt        time.Time  `json:"queued_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	LastHeartbeatAt *time.Time `json:"last_heartbeat_at,omitempty"`
}

// ErrActiveJobExists signals that the document already has a queued or
// running job; intake must not create a second one.
var ErrActiveJobExists = errors.New("graphstore: active ocr job exists for document")

// UpsertOcrJob inserts or updates a job row. Creating a second active job
// for the same document returns ErrActiveJobExists.
func (s *Store) UpsertOcrJob(ctx context.Context, j *OcrJob) error {
	if j.ID == "" || j.DocumentID == "" {
		return fmt.Errorf("graphstore: job id and document id required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ocr_jobs
			(id, document_id, status, progress, stage, current_page, total_pages,
			 engine, error_message, queued_at, started_at, finished_at, last_heartbeat_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			stage = excluded.stage,
			current_page = excluded.current_page,
			total_pages = excluded.total_pages,
			engine = excluded.engine,
			error_message = excluded.error_message,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			last_heartbeat_at = excluded.last_heartbeat_at`,
		j.ID, j.DocumentID, string(j.Status), j.Progress, j.Stage,
		j.CurrentPage, j.TotalPages, j.Engine, j.ErrorMessage,
		j.QueuedAt.UnixMilli(), milliPtr(j.StartedAt), milliPtr(j.FinishedAt),
		milliPtr(j.LastHeartbeatAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "idx_jobs_active") ||
			strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrActiveJobExists
		}
		return fmt.Errorf("graphstore: upsert ocr job %s: %w", j.ID, err)
	}
	return nil
}

// GetOcrJob returns one job or ErrNotFound.
func (s *Store) GetOcrJob(ctx context.Context, id string) (*OcrJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, status, progress, stage, current_page, total_pages,
		       engine, error_message, queued_at, started_at, finished_at, last_heartbeat_at
		FROM ocr_jobs WHERE id = ?`, id)
	return scanJob(row)
}

// ActiveJobForDocument returns the queued or running job of a document, or
// nil when none is active.
func (s *Store) ActiveJobForDocument(ctx context.Context, documentID string) (*OcrJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, status, progress, stage, current_page, total_pages,
		       engine, error_message, queued_at, started_at, finished_at, last_heartbeat_at
		FROM ocr_jobs
		WHERE document_id = ? AND status IN ('queued','running')`, documentID)
	j, err := scanJob(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return j, err
}

// ListJobs returns jobs in a status, oldest first, in discovery order.
func (s *Store) ListJobs(ctx context.Context, status JobStatus, limit int) ([]*OcrJob, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, status, progress, stage, current_page, total_pages,
		       engine, error_message, queued_at, started_at, finished_at, last_heartbeat_at
		FROM ocr_jobs WHERE status = ?
		ORDER BY queued_at ASC LIMIT ?`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("graphstore: list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*OcrJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// OcrRetryCandidates returns failed documents that are still OCR-eligible
// (scanned PDF or image route, not a terminal encryption/payload failure)
// and have no active job. The orchestrator re-queues these on its next pass.
func (s *Store) OcrRetryCandidates(ctx context.Context, limit int) ([]*Document, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.case_id, d.workspace_id, d.title, d.kind, d.status, d.fingerprint,
		       d.mime_type, d.source_ref, d.language, d.engine, d.failure_reason,
		       d.page_count, d.blob_key, d.content, d.created_at, d.updated_at
		FROM legal_documents d
		WHERE d.status = ?
		  AND (d.kind = 'scan-pdf' OR d.mime_type LIKE 'image/%'
		       OR (d.kind = 'pdf' AND d.mime_type LIKE '%pdf%'))
		  AND d.engine NOT IN ('pdf-encrypted', 'invalid-payload')
		  AND NOT EXISTS (
			SELECT 1 FROM ocr_jobs j
			WHERE j.document_id = d.id AND j.status IN ('queued', 'running')
		  )
		ORDER BY d.updated_at ASC LIMIT ?`, string(DocStatusFailed), limit)
	if err != nil {
		return nil, fmt.Errorf("graphstore: ocr retry candidates: %w", err)
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

func scanJob(row rowScanner) (*OcrJob, error) {
	var j OcrJob
	var status string
	var queued int64
	var started, finished, heartbeat sql.NullInt64
	err := row.Scan(&j.ID, &j.DocumentID, &status, &j.Progress, &j.Stage,
		&j.CurrentPage, &j.TotalPages, &j.Engine, &j.ErrorMessage,
		&queued, &started, &finished, &heartbeat)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("graphstore: scan ocr job: %w", err)
	}
	j.Status = JobStatus(status)
	j.QueuedAt = time.UnixMilli(queued)
	j.StartedAt = timePtr(started)
	j.FinishedAt = timePtr(finished)
	j.LastHeartbeatAt = timePtr(heartbeat)
	return &j, nil
}

func milliPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}
