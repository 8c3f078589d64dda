package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/addressbook/internal/store"
	"github.com/utafrali/addressbook/pkg/httputil"
	"github.com/utafrali/addressbook/pkg/logger"
	"github.com/utafrali/addressbook/pkg/middleware"
)

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:      "UNSUPPORTED_MEDIA_TYPE",
						Message:   "Content-Type must be application/json",
						RequestID: logger.CorrelationIDFromContext(r.Context()),
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// StoreContext resolves the store named by the X-Store-ID header, falling
// back to the registry default, and stores it in the request context.
func StoreContext(stores *store.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := stores.Default()
			if raw := strings.TrimSpace(r.Header.Get(middleware.StoreIDHeader)); raw != "" {
				id, err := strconv.Atoi(raw)
				cfg, ok := stores.Get(id)
				if err != nil || !ok {
					httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
						Error: &httputil.ErrorResponse{
							Code:      "UNKNOWN_STORE",
							Message:   "unknown store: " + raw,
							RequestID: logger.CorrelationIDFromContext(r.Context()),
						},
					})
					return
				}
				st = cfg
			}

			ctx := store.NewContext(r.Context(), st)
			ctx = logger.WithStoreID(ctx, st.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type memberIDKey struct{}

// MemberAccess parses the {memberID} path parameter and rejects callers that
// are neither that member nor an admin.
func MemberAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "memberID")
		memberID, ok := httputil.ParseID(w, "member id", raw)
		if !ok {
			return
		}

		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "user not authenticated")
			return
		}
		if !claims.IsAdmin() && claims.UserID != strconv.FormatInt(memberID, 10) {
			writeError(w, r, http.StatusForbidden, "FORBIDDEN", "access to member addresses denied")
			return
		}

		ctx := context.WithValue(r.Context(), memberIDKey{}, memberID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func memberIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(memberIDKey{}).(int64)
	return id
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	httputil.WriteJSON(w, status, httputil.Response{
		Error: &httputil.ErrorResponse{
			Code:      code,
			Message:   message,
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}
