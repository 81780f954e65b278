package graphstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/lexpipe/docpipe"
)

// UpsertChunks replaces the full chunk set of a document in one transaction.
// Chunks are superseded wholesale on reprocessing, never merged.
func (s *Store) UpsertChunks(ctx context.Context, documentID string, chunks []docpipe.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("graphstore: begin chunk tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM semantic_chunks WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("graphstore: clear chunks of %s: %w", documentID, err)
	}

	for _, c := range chunks {
		entities, err := json.Marshal(c.Entities)
		if err != nil {
			return fmt.Errorf("graphstore: marshal entities: %w", err)
		}
		keywords, err := json.Marshal(c.Keywords)
		if err != nil {
			return fmt.Errorf("graphstore: marshal keywords: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO semantic_chunks
				(id, document_id, case_id, workspace_id, idx, content,
				 category, entities, keywords, quality)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			c.ID, documentID, c.CaseID, c.WorkspaceID, c.Index, c.Text,
			string(c.Category), string(entities), string(keywords), c.Quality,
		); err != nil {
			return fmt.Errorf("graphstore: insert chunk %d of %s: %w", c.Index, documentID, err)
		}
	}
	return tx.Commit()
}

// GetChunks returns a document's chunks in index order.
func (s *Store) GetChunks(ctx context.Context, documentID string) ([]docpipe.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, case_id, workspace_id, idx, content,
		       category, entities, keywords, quality
		FROM semantic_chunks WHERE document_id = ?
		ORDER BY idx ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("graphstore: get chunks of %s: %w", documentID, err)
	}
	defer rows.Close()

	var chunks []docpipe.Chunk
	for rows.Next() {
		var c docpipe.Chunk
		var category string
		var entities, keywords []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.CaseID, &c.WorkspaceID,
			&c.Index, &c.Text, &category, &entities, &keywords, &c.Quality); err != nil {
			return nil, fmt.Errorf("graphstore: scan chunk: %w", err)
		}
		c.Category = docpipe.Category(category)
		if err := json.Unmarshal(entities, &c.Entities); err != nil {
			return nil, fmt.Errorf("graphstore: unmarshal entities: %w", err)
		}
		if err := json.Unmarshal(keywords, &c.Keywords); err != nil {
			return nil, fmt.Errorf("graphstore: unmarshal keywords: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// UpsertQualityReport stores the scoring verdict for a document; a new report
// supersedes the previous one.
func (s *Store) UpsertQualityReport(ctx context.Context, r *docpipe.QualityReport) error {
	problems, err := json.Marshal(r.Problems)
	if err != nil {
		return fmt.Errorf("graphstore: marshal problems: %w", err)
	}
	checklist, err := json.Marshal(r.Checklist)
	if err != nil {
		return fmt.Errorf("graphstore: marshal checklist: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quality_reports
			(document_id, overall_score, ocr_confidence, pages, expected_pages,
			 total_chunks, total_entities, problems, checklist, processed_at, duration_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(document_id) DO UPDATE SET
			overall_score = excluded.overall_score,
			ocr_confidence = excluded.ocr_confidence,
			pages = excluded.pages,
			expected_pages = excluded.expected_pages,
			total_chunks = excluded.total_chunks,
			total_entities = excluded.total_entities,
			problems = excluded.problems,
			checklist = excluded.checklist,
			processed_at = excluded.processed_at,
			duration_ms = excluded.duration_ms`,
		r.DocumentID, r.OverallScore, r.OCRConfidence, r.ExtractedPages,
		r.ExpectedPages, r.TotalChunks, r.TotalEntities, string(problems),
		string(checklist), r.ProcessedAt.UnixMilli(), r.ProcessingDurMs,
	)
	if err != nil {
		return fmt.Errorf("graphstore: upsert quality report %s: %w", r.DocumentID, err)
	}
	return nil
}

// GetQualityReport returns the stored report for a document or ErrNotFound.
func (s *Store) GetQualityReport(ctx context.Context, documentID string) (*docpipe.QualityReport, error) {
	var r docpipe.QualityReport
	var problems, checklist []byte
	var processedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT document_id, overall_score, ocr_confidence, pages, expected_pages,
		       total_chunks, total_entities, problems, checklist, processed_at, duration_ms
		FROM quality_reports WHERE document_id = ?`, documentID,
	).Scan(&r.DocumentID, &r.OverallScore, &r.OCRConfidence, &r.ExtractedPages,
		&r.ExpectedPages, &r.TotalChunks, &r.TotalEntities, &problems,
		&checklist, &processedAt, &r.ProcessingDurMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("graphstore: get quality report %s: %w", documentID, err)
	}
	if err := json.Unmarshal(problems, &r.Problems); err != nil {
		return nil, fmt.Errorf("graphstore: unmarshal problems: %w", err)
	}
	if err := json.Unmarshal(checklist, &r.Checklist); err != nil {
		return nil, fmt.Errorf("graphstore: unmarshal checklist: %w", err)
	}
	r.ProcessedAt = time.UnixMilli(processedAt)
	return &r, nil
}
