package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequestTimeout_PassesFastHandler(t *testing.T) {
	h := RequestTimeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":"ok"}`))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != `{"data":"ok"}` {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestRequestTimeout_CutsOffSlowHandler(t *testing.T) {
	handlerDone := make(chan struct{})
	h := RequestTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(handlerDone)
		time.Sleep(80 * time.Millisecond)
		// This write arrives after the deadline response and must be dropped.
		if _, err := w.Write([]byte(`{"data":"late"}`)); err != http.ErrHandlerTimeout {
			t.Errorf("expected ErrHandlerTimeout for a late write, got %v", err)
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reservations", nil))
	<-handlerDone

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if rec.Body.String() != `{"error":"Request took too long to complete"}` {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}
