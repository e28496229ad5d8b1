package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// deadlineWriter suppresses handler writes once the deadline response has
// gone out, so a late handler cannot corrupt the reply.
type deadlineWriter struct {
	http.ResponseWriter
	mu      sync.Mutex
	expired bool
	started bool
}

func (w *deadlineWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.expired || w.started {
		return
	}
	w.started = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *deadlineWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.expired {
		return 0, http.ErrHandlerTimeout
	}
	w.started = true
	return w.ResponseWriter.Write(b)
}

// expire marks the writer dead and reports whether the handler had already
// started the response.
func (w *deadlineWriter) expire() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.expired = true
	return w.started
}

// RequestTimeout bounds every reservation request. The context deadline it
// installs is what cuts off lock waits and retry loops downstream; when it
// fires before the handler responds, the client gets a 503.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			dw := &deadlineWriter{ResponseWriter: w}

			done := make(chan struct{})
			go func() {
				next.ServeHTTP(dw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if started := dw.expire(); !started {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusServiceUnavailable)
					_, _ = w.Write([]byte(`{"error":"Request took too long to complete"}`))
				}
			}
		})
	}
}
