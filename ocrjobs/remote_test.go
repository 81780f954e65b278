package ocrjobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestRemoteRecognizeSuccess(t *testing.T) {
	var gotAuth string
	var gotReq remoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(remoteResponse{
			Text:         "Klageschrift wegen Schadenersatz",
			Language:     "de",
			QualityScore: 0.91,
			PageCount:    3,
			Engine:       "cloud-ocr-v2",
		})
	}))
	defer srv.Close()

	c := NewRemoteClient(srv.URL, "secret-token")
	res, err := c.Recognize(context.Background(), "klage.pdf", []byte("raw-bytes"), "application/pdf", "upload", "de", "scan-pdf")
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotReq.Title != "klage.pdf" || gotReq.Kind != "scan-pdf" || gotReq.Content == "" {
		t.Errorf("unexpected request: %+v", gotReq)
	}
	if res.Text != "Klageschrift wegen Schadenersatz" || res.Quality != 0.91 || res.Pages != 3 {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Engine != "cloud-ocr-v2" {
		t.Errorf("engine = %q", res.Engine)
	}
}

func TestRemoteRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(remoteResponse{Text: "recovered"})
	}))
	defer srv.Close()

	c := NewRemoteClient(srv.URL, "")
	res, err := c.Recognize(context.Background(), "t", []byte("x"), "image/png", "", "", "scan-pdf")
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if res.Text != "recovered" {
		t.Errorf("text = %q", res.Text)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestRemoteGivesUpAfterThreeTries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewRemoteClient(srv.URL, "")
	_, err := c.Recognize(context.Background(), "t", []byte("x"), "image/png", "", "", "scan-pdf")
	if !errors.Is(err, ErrRemoteUnreachable) {
		t.Fatalf("err = %v, want ErrRemoteUnreachable", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestRemoteNonRetryableStatusFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewRemoteClient(srv.URL, "")
	_, err := c.Recognize(context.Background(), "t", []byte("x"), "image/png", "", "", "scan-pdf")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrRemoteUnreachable) {
		t.Fatalf("422 should not read as unreachable: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestRemoteMalformedBodyFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	c := NewRemoteClient(srv.URL, "")
	_, err := c.Recognize(context.Background(), "t", []byte("x"), "image/png", "", "", "scan-pdf")
	if err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRemoteConfigured(t *testing.T) {
	if NewRemoteClient("", "").Configured() {
		t.Error("empty endpoint reads configured")
	}
	var nilClient *RemoteClient
	if nilClient.Configured() {
		t.Error("nil client reads configured")
	}
	if !NewRemoteClient("http://ocr.internal", "").Configured() {
		t.Error("endpoint not recognised")
	}
}
