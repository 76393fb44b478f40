package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Logger emits one line per request. Document and session identifiers
// are attached when the matched route carries them, so a log line can be
// correlated with the scheduler and reconciler output for the same
// document.
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
				zap.String("remote_addr", r.RemoteAddr),
			}
			// Route params are populated once the handler has run.
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if id := rctx.URLParam("workflowID"); id != "" {
					fields = append(fields, zap.String("workflow_id", id))
				}
				if id := rctx.URLParam("sessionID"); id != "" {
					fields = append(fields, zap.String("session_id", id))
				}
			}
			logger.Info("http request", fields...)
		})
	}
}
