package middleware

import (
	"net/http"
	"strings"

	"github.com/rulebook-ai/backend/identity"
	"github.com/rulebook-ai/backend/models"
	"github.com/rulebook-ai/backend/repositories"
	"github.com/rulebook-ai/backend/utils"
	"go.uber.org/zap"
)

// AuthMiddleware verifies provider tokens and resolves the user record.
// A user row is created or refreshed on first contact, so every request
// past this middleware has a persisted user in context.
type AuthMiddleware struct {
	verifier identity.Verifier
	users    repositories.UserRepository
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier identity.Verifier, users repositories.UserRepository, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		users:    users,
		logger:   logger,
	}
}

// RequireAuth is a middleware that requires a valid provider token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractBearerToken(r)
		if token == "" {
			m.logger.Warn("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.verifier.VerifyToken(ctx, token)
		if err != nil {
			m.logger.Warn("token verification failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		user, err := m.users.Upsert(ctx, models.NewUser(claims.UID, claims.Email, claims.DisplayName, claims.PhotoURL))
		if err != nil {
			m.logger.Error("failed to resolve user",
				zap.String("request_id", requestID),
				zap.String("uid", claims.UID),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		ctx = WithClaims(ctx, claims)
		ctx = WithUser(ctx, user)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("uid", claims.UID),
			zap.String("email", claims.Email))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
