package ocrjobs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrRemoteUnreachable wraps failures where no attempt produced a usable
// response (timeouts, connection errors, retryable status codes exhausted).
var ErrRemoteUnreachable = errors.New("ocrjobs: remote OCR unreachable")

const (
	remoteMaxTries       = 3
	remoteAttemptTimeout = 45 * time.Second
	remoteBackoffStep    = 750 * time.Millisecond
)

type remoteRequest struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	SourceRef    string `json:"sourceRef,omitempty"`
	LanguageHint string `json:"languageHint,omitempty"`
	Kind         string `json:"kind"`
}

type remoteResponse struct {
	Text         string  `json:"text"`
	Language     string  `json:"language,omitempty"`
	QualityScore float64 `json:"qualityScore,omitempty"`
	PageCount    int     `json:"pageCount,omitempty"`
	Engine       string  `json:"engine,omitempty"`
}

// RemoteClient calls a configured OCR service. Attempts are bounded by a
// per-try timeout and retried with linear backoff only on timeout, 408, 429
// and 5xx responses; any other non-2xx or a malformed body fails immediately.
type RemoteClient struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewRemoteClient builds a client for the given endpoint. An empty token
// sends no Authorization header.
func NewRemoteClient(endpoint, token string) *RemoteClient {
	return &RemoteClient{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{},
	}
}

// Configured reports whether an endpoint is set.
func (c *RemoteClient) Configured() bool {
	return c != nil && c.endpoint != ""
}

// Recognize submits the payload for OCR. data is sent base64-encoded.
func (c *RemoteClient) Recognize(ctx context.Context, title string, data []byte, mimeType, sourceRef, languageHint, kind string) (EngineResult, error) {
	req := remoteRequest{
		Title:        title,
		Content:      base64.StdEncoding.EncodeToString(data),
		SourceRef:    sourceRef,
		LanguageHint: languageHint,
		Kind:         kind,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return EngineResult{}, fmt.Errorf("ocrjobs: encode remote request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= remoteMaxTries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return EngineResult{}, fmt.Errorf("%w: %w", ErrRemoteUnreachable, ctx.Err())
			case <-time.After(remoteBackoffStep * time.Duration(attempt-1)):
			}
		}

		res, retryable, err := c.attempt(ctx, body)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !retryable {
			return EngineResult{}, err
		}
	}
	return EngineResult{}, fmt.Errorf("%w: %d attempts: %w", ErrRemoteUnreachable, remoteMaxTries, lastErr)
}

func (c *RemoteClient) attempt(ctx context.Context, body []byte) (EngineResult, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, remoteAttemptTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return EngineResult{}, false, fmt.Errorf("ocrjobs: build remote request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		// Timeouts and connection errors are transient.
		return EngineResult{}, true, fmt.Errorf("ocrjobs: remote call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode == http.StatusRequestTimeout ||
			resp.StatusCode == http.StatusTooManyRequests ||
			resp.StatusCode >= 500
		return EngineResult{}, retryable, fmt.Errorf("ocrjobs: remote status %d", resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return EngineResult{}, false, fmt.Errorf("ocrjobs: decode remote response: %w", err)
	}

	engine := out.Engine
	if engine == "" {
		engine = "remote-ocr"
	}
	return EngineResult{
		Text:     out.Text,
		Quality:  out.QualityScore,
		Pages:    out.PageCount,
		Engine:   engine,
		Language: out.Language,
	}, false, nil
}
