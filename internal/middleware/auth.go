package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"soil-bknd/internal/auth"

	"go.uber.org/zap"
)

// TokenVerifier validates a raw bearer token.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
	logr     *zap.Logger
}

type contextKey string

const ContextClaimsKey contextKey = "claims"

// NewAuthMiddleware returns a middleware instance. A nil verifier lets every
// request through.
func NewAuthMiddleware(verifier TokenVerifier, logr *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, logr: logr}
}

// ClaimsFrom returns the verified claims attached by JWTAuth, if any.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(ContextClaimsKey).(*auth.Claims)
	return c, ok
}

// JWTAuth validates the bearer token and attaches its claims to the request context.
func (m *AuthMiddleware) JWTAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.verifier == nil {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			unauthorized(w, "missing authorization header")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			unauthorized(w, "invalid token format")
			return
		}

		claims, err := m.verifier.VerifyToken(tokenString)
		if err != nil {
			m.logr.Warn("token verification failed", zap.Error(err))
			unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ContextClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
}
