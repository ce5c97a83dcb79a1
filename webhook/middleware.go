package webhook

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/m3rciful/flotabot/core/logger"
)

// WithRequestID tags each request context with a correlation id. Inbound
// requests may already carry one from a fronting proxy.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx := logger.WithRID(r.Context(), rid)
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithRecovery turns handler panics into 500 responses instead of dropped
// connections.
func WithRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Hook.Error("handler panic",
					slog.String("event", "hook.panic"),
					slog.String("rid", logger.RIDFrom(r.Context())),
					slog.Any("panic", rec),
					slog.String("status", "fail"),
				)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
