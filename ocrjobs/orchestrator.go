// Package ocrjobs turns OCR-routed uploads into indexed documents. Intake
// runs the synchronous pipeline first; documents without a text layer are
// persisted as ocr_pending, their raw payload parked in an in-memory binary
// cache (with a blob-store key for self-heal), and a job is scheduled on a
// SQLite visibility-timeout queue. A batch pass claims jobs in order,
// arbitrates between remote and local OCR, and re-enters the pipeline with
// the recognised text. Every job runs inside its own failure boundary so a
// single crash never aborts the rest of the batch.
package ocrjobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/lexpipe/blobstore"
	"github.com/hazyhaar/lexpipe/docpipe"
	"github.com/hazyhaar/lexpipe/graphstore"
	"github.com/hazyhaar/lexpipe/idgen"
	"github.com/hazyhaar/lexpipe/residency"
)

// ErrBinaryLost signals that neither the cache, the stored record nor the
// blob store can produce the document payload.
var ErrBinaryLost = errors.New("ocrjobs: binary payload lost")

const (
	progressFloor = 30
	progressCeil  = 90

	stagePreparing   = "preparing"
	stageRecognizing = "recognizing"
	stageIndexing    = "indexing"
	stageCompleted   = "completed"
	stageFailed      = "failed"

	failureRemoteUnreachable = "OCR-Dienst nicht erreichbar und lokale Texterkennung fehlgeschlagen."
	failureEmptyResult       = "Die Texterkennung lieferte keinen verwertbaren Text."
	failureBinaryLost        = "Binärdaten nicht mehr verfügbar, bitte Dokument erneut hochladen."
)

// Config wires the orchestrator's collaborators. Store, Queue and Pipeline
// are required; Remote, Local and Blobs are optional (a missing engine is
// simply not consulted).
type Config struct {
	Store    *graphstore.Store
	Queue    *Queue
	Blobs    *blobstore.Store
	Remote   *RemoteClient
	Local    Engine
	Pipeline *docpipe.Pipeline
	Policy   residency.Policy
	Logger   *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Orchestrator owns the OCR job lifecycle and the binary cache.
type Orchestrator struct {
	store  *graphstore.Store
	queue  *Queue
	blobs  *blobstore.Store
	remote *RemoteClient
	local  Engine
	pipe   *docpipe.Pipeline
	policy residency.Policy
	log    *slog.Logger
	cache  *binCache

	newJobID idgen.Generator
	newDocID idgen.Generator
}

func New(cfg Config) *Orchestrator {
	cfg.defaults()
	return &Orchestrator{
		store:    cfg.Store,
		queue:    cfg.Queue,
		blobs:    cfg.Blobs,
		remote:   cfg.Remote,
		local:    cfg.Local,
		pipe:     cfg.Pipeline,
		policy:   cfg.Policy,
		log:      cfg.Logger,
		cache:    newBinCache(),
		newJobID: idgen.Prefixed("job_", idgen.Default),
		newDocID: idgen.Prefixed("doc_", idgen.Default),
	}
}

// CachedPayloads reports how many raw payloads are parked pending OCR.
func (o *Orchestrator) CachedPayloads() int { return o.cache.len() }

// Intake runs one upload through the pipeline and persists the outcome.
// Duplicates (same case, same fingerprint, existing match not failed) are
// stored as excluded without chunks. OCR-routed documents get a queued job;
// everything else is indexed or failed in place. Intake never returns an
// error for a bad document, only for storage failures.
func (o *Orchestrator) Intake(ctx context.Context, in docpipe.Input) (*graphstore.Document, *docpipe.Result, error) {
	if in.DocumentID == "" {
		in.DocumentID = o.newDocID()
	}

	res, err := o.pipe.Process(ctx, in)
	if err != nil {
		return nil, nil, err
	}

	doc := &graphstore.Document{
		ID:          in.DocumentID,
		CaseID:      in.CaseID,
		WorkspaceID: in.WorkspaceID,
		Title:       in.Title,
		Kind:        in.Kind,
		Fingerprint: res.Fingerprint,
		MimeType:    in.MimeType,
		SourceRef:   in.SourceRef,
		Language:    res.Language,
		Engine:      res.Engine,
		PageCount:   res.PageCount,
		Content:     res.NormalizedText,
	}

	if !docpipe.NearEmpty(res.ExtractedText) {
		dup, err := o.store.FindDuplicate(ctx, in.CaseID, res.Fingerprint, in.DocumentID)
		if err != nil {
			return nil, nil, err
		}
		if dup != nil {
			doc.Status = graphstore.DocStatusExcluded
			doc.FailureReason = "Duplikat von " + dup.Title
			if err := o.store.UpsertDocument(ctx, doc); err != nil {
				return nil, nil, err
			}
			o.audit(ctx, "duplicate_excluded", docpipe.SeverityInfo,
				fmt.Sprintf("document %s excluded as duplicate of %s", doc.ID, dup.ID),
				map[string]any{"document_id": doc.ID, "duplicate_of": dup.ID, "fingerprint": res.Fingerprint})
			return doc, res, nil
		}
	}

	if res.NeedsOCR {
		return o.enqueueForOCR(ctx, in, res, doc)
	}

	switch res.Status {
	case docpipe.StatusFailed:
		doc.Status = graphstore.DocStatusFailed
		doc.FailureReason = docpipe.FailureReason(res.Engine)
	default:
		doc.Status = graphstore.DocStatusIndexed
	}
	if err := o.store.UpsertDocument(ctx, doc); err != nil {
		return nil, nil, err
	}
	if err := o.persistResult(ctx, in.DocumentID, res); err != nil {
		return nil, nil, err
	}
	if doc.Status == graphstore.DocStatusFailed {
		o.audit(ctx, "document_failed", docpipe.SeverityWarning, doc.FailureReason,
			map[string]any{"document_id": doc.ID, "engine": res.Engine})
	}
	return doc, res, nil
}

// IntakeBatch processes uploads strictly in input order. A failing document
// does not stop the batch; storage errors do.
func (o *Orchestrator) IntakeBatch(ctx context.Context, inputs []docpipe.Input) ([]*graphstore.Document, error) {
	docs := make([]*graphstore.Document, 0, len(inputs))
	for _, in := range inputs {
		doc, _, err := o.Intake(ctx, in)
		if err != nil {
			return docs, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (o *Orchestrator) enqueueForOCR(ctx context.Context, in docpipe.Input, res *docpipe.Result, doc *graphstore.Document) (*graphstore.Document, *docpipe.Result, error) {
	data, mime, ok := rawPayload(in)
	if ok && o.blobs != nil {
		key, err := o.blobs.Set(data, mime)
		if err != nil {
			o.log.WarnContext(ctx, "blob persist failed", "document_id", doc.ID, "error", err)
		} else {
			doc.BlobKey = key
		}
	}
	if ok {
		o.cache.set(doc.ID, data, mime)
		doc.Content = graphstore.BinaryPlaceholder
	}

	doc.Status = graphstore.DocStatusOCRPending
	if err := o.store.UpsertDocument(ctx, doc); err != nil {
		return nil, nil, err
	}

	job := &graphstore.OcrJob{
		ID:         o.newJobID(),
		DocumentID: doc.ID,
		Status:     graphstore.JobQueued,
		Stage:      "queued",
		QueuedAt:   time.Now(),
	}
	if err := o.store.UpsertOcrJob(ctx, job); err != nil {
		if errors.Is(err, graphstore.ErrActiveJobExists) {
			// Someone already queued this document; keep their job.
			return doc, res, nil
		}
		return nil, nil, err
	}
	if err := o.queue.Publish(ctx, job.ID, doc.ID); err != nil && !errors.Is(err, errDocumentQueued) {
		return nil, nil, err
	}

	o.log.InfoContext(ctx, "document queued for ocr",
		"document_id", doc.ID, "job_id", job.ID, "engine", res.Engine)
	return doc, res, nil
}

// rawPayload extracts the binary behind a data URL, or the raw text bytes.
func rawPayload(in docpipe.Input) ([]byte, string, bool) {
	data, mime, err := docpipe.DecodeDataURL(in.RawContent)
	if err != nil {
		return nil, "", false
	}
	if mime == "" {
		mime = in.MimeType
	}
	return data, mime, len(data) > 0
}

// BatchReport summarises one queue pass.
type BatchReport struct {
	Total     int
	Completed int
	Failed    int
	Crashed   int
	Blocked   bool
	Requeued  int
}

// ProcessQueue drains up to batchSize jobs sequentially. The residency
// policy is consulted once up front: a denial blocks the whole batch and is
// recorded as a single audit entry, and no job runs. Failed OCR-eligible
// documents without an active job are re-queued first, then claimed jobs run
// oldest first, each inside its own crash boundary. If any job crashed, one
// aggregate partial_failure audit entry is emitted after the loop.
func (o *Orchestrator) ProcessQueue(ctx context.Context, batchSize int) (*BatchReport, error) {
	if batchSize <= 0 {
		batchSize = 10
	}
	report := &BatchReport{}

	decision := o.policy.AssertCapabilityAllowed(residency.CapabilityRemoteOCR)
	if !decision.OK {
		report.Blocked = true
		o.audit(ctx, "blocked_by_residency_policy", docpipe.SeverityWarning, decision.Reason,
			map[string]any{"policy_mode": string(decision.Policy), "capability": residency.CapabilityRemoteOCR})
		o.log.WarnContext(ctx, "ocr batch blocked by residency policy",
			"mode", decision.Policy, "reason", decision.Reason)
		return report, nil
	}

	remoteAllowed := o.remote.Configured()
	if remoteAllowed {
		perm, err := o.store.EvaluatePermission(ctx, graphstore.CapabilityRemoteOCR)
		if err != nil {
			return report, err
		}
		if !perm.OK {
			// Permission denial is softer than residency: local OCR still runs.
			remoteAllowed = false
			o.log.InfoContext(ctx, "remote ocr denied by permission", "role", perm.Role, "message", perm.Message)
		}
	}

	n, err := o.requeueFailed(ctx, batchSize)
	if err != nil {
		return report, err
	}
	report.Requeued = n

	for report.Total < batchSize {
		item, err := o.queue.Claim(ctx)
		if err != nil {
			return report, err
		}
		if item == nil {
			break
		}
		report.Total++

		outcome := o.runJobIsolated(ctx, item, remoteAllowed)
		switch outcome {
		case jobCompleted:
			report.Completed++
		case jobFailed:
			report.Failed++
		case jobCrashed:
			report.Crashed++
		}
	}

	if report.Crashed > 0 {
		o.audit(ctx, "partial_failure", docpipe.SeverityError,
			fmt.Sprintf("%d of %d ocr jobs crashed", report.Crashed, report.Total),
			map[string]any{"crashed": report.Crashed, "total": report.Total, "completed": report.Completed})
	}
	return report, nil
}

// requeueFailed creates fresh jobs for failed OCR-eligible documents that
// have no active job.
func (o *Orchestrator) requeueFailed(ctx context.Context, limit int) (int, error) {
	docs, err := o.store.OcrRetryCandidates(ctx, limit)
	if err != nil {
		return 0, err
	}
	requeued := 0
	for _, doc := range docs {
		job := &graphstore.OcrJob{
			ID:         o.newJobID(),
			DocumentID: doc.ID,
			Status:     graphstore.JobQueued,
			Stage:      "queued",
			QueuedAt:   time.Now(),
		}
		if err := o.store.UpsertOcrJob(ctx, job); err != nil {
			if errors.Is(err, graphstore.ErrActiveJobExists) {
				continue
			}
			return requeued, err
		}
		if err := o.queue.Publish(ctx, job.ID, doc.ID); err != nil {
			if errors.Is(err, errDocumentQueued) {
				continue
			}
			return requeued, err
		}
		if err := o.store.UpdateDocumentStatus(ctx, doc.ID, graphstore.DocStatusOCRPending, ""); err != nil {
			return requeued, err
		}
		requeued++
	}
	return requeued, nil
}

type jobOutcome int

const (
	jobCompleted jobOutcome = iota
	jobFailed
	jobCrashed
)

// runJobIsolated wraps runJob in a recover boundary. A panic marks the job
// and document failed with a crash tag and the batch continues.
func (o *Orchestrator) runJobIsolated(ctx context.Context, item *queueItem, remoteAllowed bool) (outcome jobOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = jobCrashed
			msg := fmt.Sprint(r)
			o.log.ErrorContext(ctx, "ocr job crashed", "job_id", item.JobID, "panic", msg)
			o.recordCrash(ctx, item, msg)
		}
	}()

	if err := o.runJob(ctx, item, remoteAllowed); err != nil {
		o.log.WarnContext(ctx, "ocr job failed", "job_id", item.JobID, "error", err)
		return jobFailed
	}
	return jobCompleted
}

func (o *Orchestrator) recordCrash(ctx context.Context, item *queueItem, msg string) {
	engine := "crash-recovery:" + msg
	now := time.Now()
	job, err := o.store.GetOcrJob(ctx, item.JobID)
	if err != nil {
		job = &graphstore.OcrJob{ID: item.JobID, DocumentID: item.DocumentID, QueuedAt: item.CreatedAt}
	}
	job.Status = graphstore.JobFailed
	job.Stage = stageFailed
	job.ErrorMessage = docpipe.FailureReason(engine)
	job.FinishedAt = &now
	if err := o.store.UpsertOcrJob(ctx, job); err != nil {
		o.log.ErrorContext(ctx, "crash record job update failed", "job_id", item.JobID, "error", err)
	}
	if err := o.store.UpdateDocumentStatus(ctx, item.DocumentID, graphstore.DocStatusFailed, docpipe.FailureReason(engine)); err != nil {
		o.log.ErrorContext(ctx, "crash record doc update failed", "document_id", item.DocumentID, "error", err)
	}
	o.cache.delete(item.DocumentID)
	if err := o.queue.Ack(ctx, item.JobID); err != nil {
		o.log.ErrorContext(ctx, "crash record ack failed", "job_id", item.JobID, "error", err)
	}
}

func (o *Orchestrator) runJob(ctx context.Context, item *queueItem, remoteAllowed bool) error {
	job, err := o.store.GetOcrJob(ctx, item.JobID)
	if err != nil {
		// Job row gone; drop the queue item rather than spinning on it.
		o.queue.Ack(ctx, item.JobID)
		return fmt.Errorf("load job %s: %w", item.JobID, err)
	}
	doc, err := o.store.GetDocument(ctx, job.DocumentID)
	if err != nil {
		o.queue.Ack(ctx, item.JobID)
		return o.failJob(ctx, job, nil, fmt.Errorf("load document %s: %w", job.DocumentID, err), failureBinaryLost)
	}

	now := time.Now()
	job.Status = graphstore.JobRunning
	job.Stage = stagePreparing
	job.Progress = 10
	job.StartedAt = &now
	job.LastHeartbeatAt = &now
	if err := o.store.UpsertOcrJob(ctx, job); err != nil {
		return err
	}
	if err := o.store.UpdateDocumentStatus(ctx, doc.ID, graphstore.DocStatusOCRRunning, ""); err != nil {
		return err
	}

	data, mime, err := o.resolvePayload(doc)
	if err != nil {
		o.cache.delete(doc.ID)
		o.queue.Ack(ctx, item.JobID)
		return o.failJob(ctx, job, doc, err, failureBinaryLost)
	}

	hb := o.startHeartbeats(ctx, job)
	result, engineErrs := o.recognize(ctx, doc, data, mime, hb, remoteAllowed)
	hb.stop()

	if len(strings.TrimSpace(result.Text)) < 10 {
		o.queue.Ack(ctx, item.JobID)
		msg := failureEmptyResult
		if engineErrs.remoteUnreachable && engineErrs.localFailed {
			msg = failureRemoteUnreachable
		}
		return o.failJob(ctx, job, doc, errors.New("no usable ocr text"), msg)
	}

	job.Stage = stageIndexing
	job.Progress = progressCeil
	job.Engine = result.Engine
	o.heartbeat(ctx, job)

	in := docpipe.Input{
		DocumentID:        doc.ID,
		CaseID:            doc.CaseID,
		WorkspaceID:       doc.WorkspaceID,
		Title:             doc.Title,
		Kind:              doc.Kind,
		RawContent:        result.Text,
		MimeType:          "text/plain",
		ExpectedPageCount: doc.PageCount,
		SourceRef:         doc.SourceRef,
		OCROrigin:         true,
		OCRConfidence:     result.Quality,
	}
	res, err := o.pipe.Process(ctx, in)
	if err != nil {
		return err
	}

	doc.Content = res.NormalizedText
	doc.Language = res.Language
	doc.Engine = res.Engine
	doc.Fingerprint = res.Fingerprint
	if result.Pages > 0 {
		doc.PageCount = result.Pages
	}
	if res.Status == docpipe.StatusFailed {
		doc.Status = graphstore.DocStatusFailed
		doc.FailureReason = docpipe.FailureReason(res.Engine)
	} else {
		doc.Status = graphstore.DocStatusIndexed
		doc.FailureReason = ""
	}
	if err := o.store.UpsertDocument(ctx, doc); err != nil {
		return err
	}
	if err := o.persistResult(ctx, doc.ID, res); err != nil {
		return err
	}

	finished := time.Now()
	job.Status = graphstore.JobCompleted
	job.Stage = stageCompleted
	job.Progress = 100
	job.FinishedAt = &finished
	if err := o.store.UpsertOcrJob(ctx, job); err != nil {
		return err
	}

	o.cache.delete(doc.ID)
	if err := o.queue.Ack(ctx, item.JobID); err != nil {
		return err
	}

	o.audit(ctx, "ocr_completed", docpipe.SeverityInfo,
		fmt.Sprintf("document %s recognised via %s", doc.ID, result.Engine),
		map[string]any{"document_id": doc.ID, "job_id": job.ID, "engine": result.Engine,
			"quality": result.Quality, "chars": len(res.NormalizedText)})
	o.log.InfoContext(ctx, "ocr job completed",
		"job_id", job.ID, "document_id", doc.ID, "engine", result.Engine,
		"quality", result.Quality, "status", doc.Status)
	return nil
}

// resolvePayload finds the bytes to recognise: binary cache first, then the
// stored record text, then blob-store self-heal via the content-addressed
// key. The cache is repopulated on self-heal so retries stay cheap.
func (o *Orchestrator) resolvePayload(doc *graphstore.Document) ([]byte, string, error) {
	if data, mime, ok := o.cache.get(doc.ID); ok {
		return data, mime, nil
	}
	if doc.Content != "" && doc.Content != graphstore.BinaryPlaceholder {
		return []byte(doc.Content), doc.MimeType, nil
	}
	if o.blobs != nil && doc.BlobKey != "" {
		blob, err := o.blobs.Get(doc.BlobKey)
		if err == nil && blob != nil {
			o.cache.set(doc.ID, blob.Data, blob.MIME)
			return blob.Data, blob.MIME, nil
		}
	}
	return nil, "", fmt.Errorf("%w: document %s", ErrBinaryLost, doc.ID)
}

type engineFailures struct {
	remoteUnreachable bool
	localFailed       bool
}

// recognize runs remote OCR (strong results accepted outright), falls back
// to the local engine and arbitrates between the two: higher quality wins
// when scores differ by more than 0.05, else the longer text.
func (o *Orchestrator) recognize(ctx context.Context, doc *graphstore.Document, data []byte, mime string, hb *heartbeater, remoteAllowed bool) (EngineResult, engineFailures) {
	var fails engineFailures
	var remote, local EngineResult
	var haveRemote, haveLocal bool

	if remoteAllowed && o.remote.Configured() {
		res, err := o.remote.Recognize(ctx, doc.Title, data, mime, doc.SourceRef, string(doc.Language), string(doc.Kind))
		if err != nil {
			fails.remoteUnreachable = errors.Is(err, ErrRemoteUnreachable)
			o.log.WarnContext(ctx, "remote ocr failed", "document_id", doc.ID, "error", err)
		} else {
			remote, haveRemote = res, true
			hb.page(1, 1, res.Quality)
			if res.Quality >= 0.65 && len(res.Text) >= 300 {
				return res, fails
			}
		}
	}

	if o.local != nil {
		res, err := o.local.Recognize(ctx, data, mime, hb.page)
		if err != nil {
			fails.localFailed = true
			o.log.WarnContext(ctx, "local ocr failed", "document_id", doc.ID, "error", err)
		} else {
			local, haveLocal = res, true
		}
	} else if !haveRemote {
		fails.localFailed = true
	}

	switch {
	case haveRemote && haveLocal:
		diff := remote.Quality - local.Quality
		if diff > 0.05 {
			return remote, fails
		}
		if diff < -0.05 {
			return local, fails
		}
		if len(local.Text) > len(remote.Text) {
			return local, fails
		}
		return remote, fails
	case haveRemote:
		return remote, fails
	case haveLocal:
		return local, fails
	default:
		return EngineResult{}, fails
	}
}

// retryEligible mirrors the predicate of graphstore.OcrRetryCandidates. Only
// documents this accepts are ever picked back up by the re-queue pass, so the
// cached binary is worth keeping for them and worth freeing for everything
// else.
func retryEligible(doc *graphstore.Document) bool {
	if doc == nil {
		return false
	}
	if doc.Engine == "pdf-encrypted" || doc.Engine == "invalid-payload" {
		return false
	}
	switch {
	case doc.Kind == docpipe.KindScanPDF:
		return true
	case strings.HasPrefix(doc.MimeType, "image/"):
		return true
	case doc.Kind == docpipe.KindPDF && strings.Contains(doc.MimeType, "pdf"):
		return true
	}
	return false
}

func (o *Orchestrator) failJob(ctx context.Context, job *graphstore.OcrJob, doc *graphstore.Document, cause error, message string) error {
	now := time.Now()
	job.Status = graphstore.JobFailed
	job.Stage = stageFailed
	job.ErrorMessage = message
	job.FinishedAt = &now
	if err := o.store.UpsertOcrJob(ctx, job); err != nil {
		return err
	}
	if !retryEligible(doc) {
		o.cache.delete(job.DocumentID)
	}
	if err := o.store.UpdateDocumentStatus(ctx, job.DocumentID, graphstore.DocStatusFailed, message); err != nil {
		return err
	}
	o.audit(ctx, "ocr_failed", docpipe.SeverityError, message,
		map[string]any{"document_id": job.DocumentID, "job_id": job.ID})
	return fmt.Errorf("job %s: %s: %w", job.ID, message, cause)
}

// heartbeater maps page-confidence callbacks into the 30..90 progress band
// and additionally ticks every 5 seconds so silent phases still move. Writes
// are best-effort; failures are logged and swallowed.
type heartbeater struct {
	o      *Orchestrator
	ctx    context.Context
	mu     sync.Mutex
	job    *graphstore.OcrJob
	cancel context.CancelFunc
	done   chan struct{}
}

func (o *Orchestrator) startHeartbeats(ctx context.Context, job *graphstore.OcrJob) *heartbeater {
	tickCtx, cancel := context.WithCancel(ctx)
	hb := &heartbeater{o: o, ctx: ctx, job: job, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(hb.done)
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
				hb.mu.Lock()
				hb.write()
				hb.mu.Unlock()
			}
		}
	}()
	return hb
}

// page is the PageProgress callback handed to OCR engines.
func (hb *heartbeater) page(page, total int, confidence float64) {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	hb.job.Stage = stageRecognizing
	hb.job.CurrentPage = page
	hb.job.TotalPages = total
	if total > 0 {
		span := progressCeil - progressFloor
		hb.job.Progress = progressFloor + span*page/total
	} else if hb.job.Progress < progressFloor {
		hb.job.Progress = progressFloor
	}
	hb.write()
}

// write persists the current job snapshot and extends the queue visibility.
// Caller holds hb.mu.
func (hb *heartbeater) write() {
	now := time.Now()
	hb.job.LastHeartbeatAt = &now
	if err := hb.o.store.UpsertOcrJob(hb.ctx, hb.job); err != nil {
		hb.o.log.DebugContext(hb.ctx, "heartbeat write failed", "job_id", hb.job.ID, "error", err)
	}
	if err := hb.o.queue.Extend(hb.ctx, hb.job.ID, 2*time.Minute); err != nil {
		hb.o.log.DebugContext(hb.ctx, "queue extend failed", "job_id", hb.job.ID, "error", err)
	}
}

func (hb *heartbeater) stop() {
	hb.cancel()
	<-hb.done
}

func (o *Orchestrator) heartbeat(ctx context.Context, job *graphstore.OcrJob) {
	now := time.Now()
	job.LastHeartbeatAt = &now
	if err := o.store.UpsertOcrJob(ctx, job); err != nil {
		o.log.DebugContext(ctx, "job update failed", "job_id", job.ID, "error", err)
	}
}

func (o *Orchestrator) persistResult(ctx context.Context, documentID string, res *docpipe.Result) error {
	if err := o.store.UpsertChunks(ctx, documentID, res.Chunks); err != nil {
		return err
	}
	if res.Quality != nil {
		if err := o.store.UpsertQualityReport(ctx, res.Quality); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) audit(ctx context.Context, action string, severity docpipe.Severity, details string, metadata map[string]any) {
	err := o.store.AppendAuditEntry(ctx, &graphstore.AuditEntry{
		Action:   action,
		Severity: severity,
		Details:  details,
		Metadata: metadata,
	})
	if err != nil {
		o.log.WarnContext(ctx, "audit write failed", "action", action, "error", err)
	}
}
