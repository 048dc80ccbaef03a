package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTimeout_DefaultPath(t *testing.T) {
	cfg := TimeoutConfig{
		Default:          50 * time.Millisecond,
		Extended:         100 * time.Millisecond,
		ExtendedPatterns: []string{"/find-websites"},
	}

	handler := Timeout(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestTimeout_ExtendedPath(t *testing.T) {
	cfg := TimeoutConfig{
		Default:          10 * time.Millisecond,
		Extended:         100 * time.Millisecond,
		ExtendedPatterns: []string{"/find-websites"},
	}

	handler := Timeout(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Longer than default, shorter than extended
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses/find-websites", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d (extended timeout should allow request)", rec.Code, http.StatusOK)
	}
}

func TestTimeout_SkipPath(t *testing.T) {
	cfg := TimeoutConfig{
		Default:      10 * time.Millisecond,
		Extended:     50 * time.Millisecond,
		SkipPatterns: []string{"/health"},
	}

	handler := Timeout(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d (skip pattern should bypass timeout)", rec.Code, http.StatusOK)
	}
}

func TestTimeout_DefaultTimedOut(t *testing.T) {
	cfg := TimeoutConfig{
		Default:          10 * time.Millisecond,
		Extended:         100 * time.Millisecond,
		ExtendedPatterns: []string{"/find-websites"},
	}

	handler := Timeout(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want %d (should timeout)", rec.Code, http.StatusGatewayTimeout)
	}
}
