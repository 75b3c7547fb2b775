package middleware

import (
	"net/http"

	"healthsync-api/internal/domain/entity"
	"healthsync-api/pkg/response"
)

// RequireRole creates a middleware that checks if the user has any of the required roles
// Role is read from context (set by AuthMiddleware from JWT claims)
func RequireRole(allowedRoles ...entity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetRoleFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Role information not found")
				return
			}

			allowed := false
			for _, allowedRole := range allowedRoles {
				if role == allowedRole {
					allowed = true
					break
				}
			}

			if !allowed {
				response.Forbidden(w, "You don't have permission to access this resource")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is a convenience middleware for admin-only endpoints
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(entity.RoleAdmin)(next)
}

// RequireDoctor is a convenience middleware for doctor-only endpoints
func RequireDoctor(next http.Handler) http.Handler {
	return RequireRole(entity.RoleDoctor)(next)
}

// RequirePatient is a convenience middleware for patient-only endpoints
func RequirePatient(next http.Handler) http.Handler {
	return RequireRole(entity.RolePatient)(next)
}
