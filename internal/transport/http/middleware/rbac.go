package middleware

import (
	"log/slog"
	"net/http"

	"ems/internal/transport/http/api"
	"ems/internal/transport/http/shared"
)

// PermissionChecker answers whether a role holds a permission.
type PermissionChecker interface {
	Allowed(role, permission string) (bool, error)
}

// RequirePermission lets the request through only when the actor's role
// holds permission.
func RequirePermission(permission string, perms PermissionChecker) func(http.Handler) http.Handler {
	return RequireAnyPermission(perms, permission)
}

// RequireAnyPermission passes when the role holds at least one of permissions.
// A denial names the permissions that would have been accepted.
func RequireAnyPermission(perms PermissionChecker, permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r.Context())
			if !ok {
				shared.Unauthorized(w, r)
				return
			}
			reqID := GetRequestID(r.Context())
			for _, permission := range permissions {
				allowed, err := perms.Allowed(actor.Role, permission)
				if err != nil {
					slog.Error("permission check failed", "role", actor.Role, "permission", permission, "err", err)
					api.Fail(w, http.StatusInternalServerError, "permission_error", "permission check failed", reqID)
					return
				}
				if allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			api.FailWithDetails(w, http.StatusForbidden, "forbidden", "insufficient permissions",
				map[string]any{"required": permissions}, reqID)
		})
	}
}
