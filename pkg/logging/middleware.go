package logging

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags each request with the caller's X-Request-ID or a
// new uuid, echoes it back and logs the outcome. Rejected requests log at
// Warn, server errors at Error.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := WithRequestID(r.Context(), id)
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		DebugContext(ctx, "request started", "method", r.Method, "path", r.URL.Path, "remoteAddr", r.RemoteAddr)

		next.ServeHTTP(rec, r.WithContext(ctx))

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.written,
			"durationMs", time.Since(start).Milliseconds(),
		}
		switch {
		case rec.status >= 500:
			ErrorContext(ctx, "request failed", attrs...)
		case rec.status >= 400:
			WarnContext(ctx, "request rejected", attrs...)
		default:
			InfoContext(ctx, "request completed", attrs...)
		}
	})
}

// statusRecorder remembers the status code and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush lets SSE handlers stream through the recorder.
func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
