/*
middleware.go - Authentication and request logging middleware

AUTHENTICATION:
  Bearer token in the Authorization header. The token is verified by
  auth.Service and the proven identity is placed in the request context;
  handlers read it back with identityFrom. Role checks stay in the
  handlers because most routes allow several roles with different views.

LOGGING:
  One structured line per request with method, path, status, and
  duration. Bodies are not logged; they carry credentials and amounts.
*/
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/juanbytes/campuspay/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// identityFrom returns the verified identity placed by RequireAuth.
// Zero value means the route was misconfigured (no auth middleware).
func identityFrom(ctx context.Context) auth.Identity {
	id, _ := ctx.Value(identityKey).(auth.Identity)
	return id
}

// RequireAuth verifies the bearer token and stores the identity in the
// request context. Missing or bad tokens end the request with 401.
func RequireAuth(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token", nil)
				return
			}

			id, err := svc.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token", nil)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger logs one line per request and feeds the HTTP metrics.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			start := time.Now()
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", elapsed),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
