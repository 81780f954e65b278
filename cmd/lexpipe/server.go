package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/lexpipe/docpipe"
	"github.com/hazyhaar/lexpipe/graphstore"
	"github.com/hazyhaar/lexpipe/observability"
	"github.com/hazyhaar/lexpipe/ocrjobs"
)

type server struct {
	store     *graphstore.Store
	orch      *ocrjobs.Orchestrator
	db        *sql.DB
	obsDB     *sql.DB
	batchSize int
	log       *slog.Logger
}

func (s *server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/documents", s.handleIntake)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Get("/documents/{id}/chunks", s.handleGetChunks)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Post("/jobs/run", s.handleRunJobs)
		r.Get("/audit", s.handleAudit)
		r.Get("/health", s.handleHealth)
	})
	return r
}

type intakeRequest struct {
	DocumentID        string `json:"document_id,omitempty"`
	CaseID            string `json:"case_id"`
	WorkspaceID       string `json:"workspace_id,omitempty"`
	Title             string `json:"title"`
	Kind              string `json:"kind"`
	Content           string `json:"content"`
	MimeType          string `json:"mime_type,omitempty"`
	SourceRef         string `json:"source_ref,omitempty"`
	ExpectedPageCount int    `json:"expected_page_count,omitempty"`
}

type intakeResponse struct {
	Document *graphstore.Document `json:"document"`
	Engine   string               `json:"engine"`
	Status   docpipe.Status       `json:"status,omitempty"`
	NeedsOCR bool                 `json:"needs_ocr"`
	Chunks   int                  `json:"chunks"`
}

func (s *server) handleIntake(w http.ResponseWriter, r *http.Request) {
	var req intakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	doc, res, err := s.orch.Intake(r.Context(), docpipe.Input{
		DocumentID:        req.DocumentID,
		CaseID:            req.CaseID,
		WorkspaceID:       req.WorkspaceID,
		Title:             req.Title,
		Kind:              docpipe.Kind(req.Kind),
		RawContent:        req.Content,
		MimeType:          req.MimeType,
		SourceRef:         req.SourceRef,
		ExpectedPageCount: req.ExpectedPageCount,
	})
	if err != nil {
		s.log.ErrorContext(r.Context(), "intake failed", "error", err)
		writeError(w, http.StatusInternalServerError, "intake failed")
		return
	}

	writeJSON(w, http.StatusCreated, intakeResponse{
		Document: doc,
		Engine:   res.Engine,
		Status:   res.Status,
		NeedsOCR: res.NeedsOCR,
		Chunks:   len(res.Chunks),
	})
}

func (s *server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.store.GetDocument(r.Context(), id)
	if errors.Is(err, graphstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	quality, err := s.store.GetQualityReport(r.Context(), id)
	if err != nil && !errors.Is(err, graphstore.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document": doc,
		"quality":  quality,
	})
}

func (s *server) handleGetChunks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetDocument(r.Context(), id); err != nil {
		if errors.Is(err, graphstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	chunks, err := s.store.GetChunks(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chunks": chunks})
}

func (s *server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.GetOcrJob(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, graphstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *server) handleRunJobs(w http.ResponseWriter, r *http.Request) {
	report, err := s.orch.ProcessQueue(r.Context(), s.batchSize)
	if err != nil {
		s.log.ErrorContext(r.Context(), "queue pass failed", "error", err)
		writeError(w, http.StatusInternalServerError, "queue pass failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *server) handleAudit(w http.ResponseWriter, r *http.Request) {
	f := graphstore.AuditFilter{
		Action:   r.URL.Query().Get("action"),
		Severity: docpipe.Severity(r.URL.Query().Get("severity")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}
	if v := r.URL.Query().Get("since"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		f.Since = ts
	}
	entries, err := s.store.ListAuditEntries(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "audit query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{"status": "ok"}
	code := http.StatusOK

	if err := s.db.PingContext(r.Context()); err != nil {
		health["status"] = "degraded"
		health["db"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if s.obsDB != nil {
		hb, err := observability.LatestHeartbeat(r.Context(), s.obsDB, "lexpipe-consumer", time.Minute)
		if err == nil && hb != nil {
			health["consumer_alive"] = hb.Alive
			health["consumer_last_seen"] = hb.Timestamp.Format(time.RFC3339)
		}
	}
	health["cached_payloads"] = s.orch.CachedPayloads()
	writeJSON(w, code, health)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
