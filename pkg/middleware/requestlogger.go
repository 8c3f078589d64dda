package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/addressbook/pkg/logger"
)

// RequestLogger stores a logger enriched with the request's correlation, user,
// store and trace IDs in the context. Mount it after RequestLogging, Tracing
// and the store middleware so those IDs are present. Handlers retrieve it
// with logger.FromContext.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := UserIDFromContext(ctx); id != "" {
				ctx = logger.WithUserID(ctx, id)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
