package middleware

import (
	"context"
	"net/http"
	"strings"

	"healthsync-api/internal/domain/entity"
	"healthsync-api/internal/service"
	"healthsync-api/pkg/jwt"
	"healthsync-api/pkg/response"

	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "user_email"
	RoleKey      contextKey = "role"
	TokenIDKey   contextKey = "token_id"
)

type AuthMiddleware struct {
	jwtService *jwt.JWTService
	tokenStore service.TokenStore
}

func NewAuthMiddleware(jwtService *jwt.JWTService, tokenStore service.TokenStore) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		tokenStore: tokenStore,
	}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header is required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		if claims.TokenType != jwt.AccessToken {
			response.Unauthorized(w, "Invalid token type")
			return
		}

		role, ok := entity.ParseRole(claims.Role)
		if !ok {
			response.Unauthorized(w, "Invalid token role")
			return
		}

		// Revoked tokens are removed from the store
		exists, err := m.tokenStore.Exists(r.Context(), jwt.AccessToken, claims.UserID, claims.TokenID)
		if err != nil {
			response.InternalServerError(w, "Failed to validate token")
			return
		}
		if !exists {
			response.Unauthorized(w, "Token has been revoked")
			return
		}

		ctx := WithIdentity(r.Context(), claims.UserID, claims.Email, role, claims.TokenID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithIdentity stores the authenticated caller on ctx.
func WithIdentity(ctx context.Context, userID uuid.UUID, email string, role entity.Role, tokenID string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, UserEmailKey, email)
	ctx = context.WithValue(ctx, RoleKey, role)
	return context.WithValue(ctx, TokenIDKey, tokenID)
}

// GetUserIDFromContext extracts user ID from context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetUserEmailFromContext extracts user email from context
func GetUserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(UserEmailKey).(string)
	return email, ok
}

// GetTokenIDFromContext extracts token ID from context
func GetTokenIDFromContext(ctx context.Context) (string, bool) {
	tokenID, ok := ctx.Value(TokenIDKey).(string)
	return tokenID, ok
}

// GetRoleFromContext extracts the caller's role from context
func GetRoleFromContext(ctx context.Context) (entity.Role, bool) {
	role, ok := ctx.Value(RoleKey).(entity.Role)
	return role, ok
}
