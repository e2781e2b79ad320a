package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/portones-fc/access/internal/platform/auth"
	"github.com/portones-fc/access/pkg/logger"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

// RequireResident authenticates a resident bearer token and stores its claims
// in the request context. The resident id also lands in the logging context.
func RequireResident(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			http.Error(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}
		raw := strings.TrimPrefix(authz, "Bearer ")
		claims, err := auth.Parse(raw)
		if err != nil {
			http.Error(w, "invalid authorization token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), CtxClaims, claims)
		ctx = context.WithValue(ctx, logger.ResidentIDKey, claims.ResidentID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func Claims(r *http.Request) *auth.Claims {
	v := r.Context().Value(CtxClaims)
	if v == nil {
		return nil
	}
	return v.(*auth.Claims)
}
