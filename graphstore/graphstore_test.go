package graphstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hazyhaar/lexpipe/dbopen"
	"github.com/hazyhaar/lexpipe/docpipe"
	_ "modernc.org/sqlite"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t)
	s := New(db, Options{Role: "member"})
	if err := s.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestUpsertAndGetDocument(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	doc := &Document{
		ID:          "doc_1",
		CaseID:      "case_1",
		WorkspaceID: "ws_1",
		Title:       "klage.pdf",
		Kind:        docpipe.KindPDF,
		Status:      DocStatusIndexed,
		Fingerprint: "abc123",
		Language:    docpipe.LangGerman,
		Engine:      "pdf-text",
		PageCount:   3,
		BlobKey:     "deadbeef",
		Content:     BinaryPlaceholder,
	}
	if err := s.UpsertDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetDocument(ctx, "doc_1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "klage.pdf" || got.Status != DocStatusIndexed || got.PageCount != 3 {
		t.Errorf("unexpected document %+v", got)
	}
	if got.Content != BinaryPlaceholder {
		t.Errorf("content = %q, want placeholder sentinel", got.Content)
	}

	// Upsert replaces in place.
	doc.Status = DocStatusFailed
	doc.FailureReason = "kaputt"
	if err := s.UpsertDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetDocument(ctx, "doc_1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != DocStatusFailed || got.FailureReason != "kaputt" {
		t.Errorf("upsert did not replace: %+v", got)
	}

	if _, err := s.GetDocument(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFindDuplicate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	mustUpsert := func(id string, status DocumentStatus, fp string) {
		t.Helper()
		if err := s.UpsertDocument(ctx, &Document{
			ID: id, CaseID: "case_1", Title: id, Kind: docpipe.KindPDF,
			Status: status, Fingerprint: fp,
		}); err != nil {
			t.Fatal(err)
		}
	}
	mustUpsert("doc_a", DocStatusIndexed, "fp1")
	mustUpsert("doc_b", DocStatusFailed, "fp2")

	dup, err := s.FindDuplicate(ctx, "case_1", "fp1", "doc_new")
	if err != nil {
		t.Fatal(err)
	}
	if dup == nil || dup.ID != "doc_a" {
		t.Errorf("expected doc_a as duplicate, got %+v", dup)
	}

	// Failed documents stay eligible for retry and are not duplicates.
	dup, err = s.FindDuplicate(ctx, "case_1", "fp2", "doc_new")
	if err != nil {
		t.Fatal(err)
	}
	if dup != nil {
		t.Errorf("failed match must not count as duplicate: %+v", dup)
	}

	// Other case, same fingerprint: no match.
	dup, err = s.FindDuplicate(ctx, "case_2", "fp1", "doc_new")
	if err != nil {
		t.Fatal(err)
	}
	if dup != nil {
		t.Errorf("cross-case duplicate: %+v", dup)
	}

	// A document is never its own duplicate.
	dup, err = s.FindDuplicate(ctx, "case_1", "fp1", "doc_a")
	if err != nil {
		t.Fatal(err)
	}
	if dup != nil {
		t.Errorf("self-duplicate: %+v", dup)
	}
}

func TestUpsertChunksFullReplace(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first := []docpipe.Chunk{
		{ID: "c1", DocumentID: "doc_1", Index: 0, Text: "alt eins", Category: docpipe.CategorySonstiges, Keywords: []string{"alt"}},
		{ID: "c2", DocumentID: "doc_1", Index: 1, Text: "alt zwei", Category: docpipe.CategorySonstiges},
	}
	if err := s.UpsertChunks(ctx, "doc_1", first); err != nil {
		t.Fatal(err)
	}

	second := []docpipe.Chunk{
		{ID: "c3", DocumentID: "doc_1", Index: 0, Text: "neu", Category: docpipe.CategoryVertrag,
			Entities: []docpipe.Entity{{Type: docpipe.EntityDate, Value: "01.01.2025"}}},
	}
	if err := s.UpsertChunks(ctx, "doc_1", second); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetChunks(ctx, "doc_1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("chunks = %d, want full replace to 1", len(got))
	}
	if got[0].ID != "c3" || got[0].Text != "neu" || got[0].Category != docpipe.CategoryVertrag {
		t.Errorf("unexpected chunk %+v", got[0])
	}
	if len(got[0].Entities) != 1 || got[0].Entities[0].Value != "01.01.2025" {
		t.Errorf("entities lost: %+v", got[0].Entities)
	}
}

func TestQualityReportSupersedes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	r := &docpipe.QualityReport{
		DocumentID:   "doc_1",
		OverallScore: 80,
		TotalChunks:  3,
		Problems:     []docpipe.Problem{{Type: "possible_truncation", Severity: docpipe.SeverityInfo}},
		Checklist:    []docpipe.ChecklistItem{{Label: "Text extrahiert", OK: true}},
		ProcessedAt:  time.Now(),
	}
	if err := s.UpsertQualityReport(ctx, r); err != nil {
		t.Fatal(err)
	}
	r.OverallScore = 95
	r.Problems = nil
	if err := s.UpsertQualityReport(ctx, r); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetQualityReport(ctx, "doc_1")
	if err != nil {
		t.Fatal(err)
	}
	if got.OverallScore != 95 {
		t.Errorf("score = %d, want superseded 95", got.OverallScore)
	}
	if len(got.Problems) != 0 {
		t.Errorf("problems not superseded: %+v", got.Problems)
	}
	if len(got.Checklist) != 1 || !got.Checklist[0].OK {
		t.Errorf("checklist lost: %+v", got.Checklist)
	}
}

func TestOcrJobSingleActive(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	j1 := &OcrJob{ID: "job_1", DocumentID: "doc_1", Status: JobQueued, QueuedAt: time.Now()}
	if err := s.UpsertOcrJob(ctx, j1); err != nil {
		t.Fatal(err)
	}

	// A second active job for the same document must be rejected.
	j2 := &OcrJob{ID: "job_2", DocumentID: "doc_1", Status: JobQueued, QueuedAt: time.Now()}
	if err := s.UpsertOcrJob(ctx, j2); !errors.Is(err, ErrActiveJobExists) {
		t.Fatalf("expected ErrActiveJobExists, got %v", err)
	}

	active, err := s.ActiveJobForDocument(ctx, "doc_1")
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || active.ID != "job_1" {
		t.Fatalf("active job = %+v", active)
	}

	// Completing the job frees the slot.
	now := time.Now()
	j1.Status = JobCompleted
	j1.FinishedAt = &now
	j1.Progress = 100
	if err := s.UpsertOcrJob(ctx, j1); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertOcrJob(ctx, j2); err != nil {
		t.Fatalf("slot not freed after completion: %v", err)
	}

	active, err = s.ActiveJobForDocument(ctx, "doc_1")
	if err != nil {
		t.Fatal(err)
	}
	if active == nil || active.ID != "job_2" {
		t.Fatalf("active job after completion = %+v", active)
	}
}

func TestAuditEntries(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	entries := []*AuditEntry{
		{Action: "document_processed", Details: "ok"},
		{Action: "partial_failure", Severity: docpipe.SeverityError,
			Metadata: map[string]any{"crashed": 1, "total": 4}},
	}
	for _, e := range entries {
		if err := s.AppendAuditEntry(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListAuditEntries(ctx, AuditFilter{Action: "partial_failure"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("entries = %d, want 1", len(got))
	}
	if got[0].Severity != docpipe.SeverityError {
		t.Errorf("severity = %q", got[0].Severity)
	}
	if got[0].Metadata["total"] != float64(4) {
		t.Errorf("metadata = %+v", got[0].Metadata)
	}

	all, err := s.ListAuditEntries(ctx, AuditFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("all entries = %d, want 2", len(all))
	}
}

func TestEvaluatePermission(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	dec, err := s.EvaluatePermission(ctx, CapabilityRemoteOCR)
	if err != nil {
		t.Fatal(err)
	}
	if !dec.OK || dec.Role != "member" {
		t.Errorf("member remote_ocr = %+v, want allowed", dec)
	}

	viewer := New(s.db, Options{Role: "viewer"})
	dec, err = viewer.EvaluatePermission(ctx, CapabilityRemoteOCR)
	if err != nil {
		t.Fatal(err)
	}
	if dec.OK {
		t.Errorf("viewer remote_ocr = %+v, want denied", dec)
	}
	if dec.Message == "" {
		t.Error("denial should carry a message")
	}

	dec, err = s.EvaluatePermission(ctx, "unknown_capability")
	if err != nil {
		t.Fatal(err)
	}
	if dec.OK {
		t.Error("unknown capability must deny")
	}
}
