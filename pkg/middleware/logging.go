package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/celldb/celldb/pkg/httputil"
	"github.com/celldb/celldb/pkg/observability"
)

// RequestLogging tags each request with an id and logs method, path,
// status and duration on completion.
func RequestLogging(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)
			ctx := observability.WithRequestID(r.Context(), requestID)

			start := time.Now()
			rec := httputil.NewStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			entry := logger.WithFields(map[string]interface{}{
				"request_id": requestID,
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.Status,
				"duration":   time.Since(start).String(),
			})
			if id := IdentityFrom(ctx); id != nil {
				entry = entry.WithField("user_id", id.UserID)
			}
			entry.Info("request completed")
		})
	}
}

// Recovery converts handler panics into 500 responses.
func Recovery(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.WithField("panic", rec).Error("handler panic")
					httputil.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
