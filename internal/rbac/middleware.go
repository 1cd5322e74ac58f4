package rbac

import (
	"net/http"
)

var defaultChecker = NewChecker(nil)

// Require enforces a single permission.
func Require(perm string) func(http.Handler) http.Handler {
	return guard(func(role string) bool { return defaultChecker.Has(role, perm) })
}

// RequireAny enforces that the role has at least one of the permissions.
func RequireAny(perms ...string) func(http.Handler) http.Handler {
	return guard(func(role string) bool { return defaultChecker.Any(role, perms...) })
}

// RequireAll enforces that the role has every one of the permissions.
func RequireAll(perms ...string) func(http.Handler) http.Handler {
	return guard(func(role string) bool { return defaultChecker.All(role, perms...) })
}

// guard answers 401 when no role is in the context and 403 when the role
// lacks the permission.
func guard(allowed func(role string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			switch {
			case role == "":
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
			case !allowed(role):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
