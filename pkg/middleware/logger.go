package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// NewStructuredLogger logs one line per request. Responses of 500 and above are logged at error level.
// The Idempotency-Key header is logged so replays of the same command can be correlated.
func NewStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			start := time.Now()
			defer func() {
				status := ww.Status()

				requestAttrs := []any{
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
				}
				if reqID := middleware.GetReqID(r.Context()); reqID != "" {
					requestAttrs = append(requestAttrs, slog.String("request_id", reqID))
				}
				if key := r.Header.Get("Idempotency-Key"); key != "" {
					requestAttrs = append(requestAttrs, slog.String("idempotency_key", key))
				}

				responseAttrs := slog.Group("response",
					slog.Int("status", status),
					slog.Int("bytes", ww.BytesWritten()),
					slog.String("latency", time.Since(start).String()),
				)

				if status >= http.StatusInternalServerError {
					logger.ErrorContext(r.Context(), "server error", slog.Group("request", requestAttrs...), responseAttrs)
				} else {
					logger.InfoContext(r.Context(), "request completed", slog.Group("request", requestAttrs...), responseAttrs)
				}
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
