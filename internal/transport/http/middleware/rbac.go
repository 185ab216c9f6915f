package middleware

import (
	"net/http"

	"github.com/localmart/marketplace-service/internal/domain"
	"github.com/localmart/marketplace-service/internal/transport/http/response"
)

// RequireAtLeast enforces the role hierarchy admin >= moderator >= user.
// Must run after Require; a request without a role in context is treated as
// a wiring mistake and rejected.
func RequireAtLeast(minRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := Role(r)
			if role == "" {
				response.WriteError(w, r, domain.ErrTokenInvalid())
				return
			}
			if !domain.IsValidRole(role) || !domain.IsValidRole(minRole) {
				response.WriteError(w, r, domain.ErrForbidden())
				return
			}
			if domain.RoleRank(role) < domain.RoleRank(minRole) {
				response.WriteError(w, r, domain.ErrInsufficientRole(minRole))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
