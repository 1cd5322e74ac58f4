package rbac

import (
	"context"
	"sort"
	"strings"
)

// Checker resolves permissions of the form "resource:action". A trailing "*"
// in a granted permission matches any suffix; "*" alone matches everything.
type Checker struct {
	RolePermissions map[string][]string
}

func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	return &Checker{RolePermissions: rp}
}

func (c *Checker) Has(role, perm string) bool {
	for _, p := range c.RolePermissions[role] {
		if matchPerm(p, perm) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

func (c *Checker) All(role string, perms ...string) bool {
	for _, p := range perms {
		if !c.Has(role, p) {
			return false
		}
	}
	return true
}

// Granted lists which of the known class permissions role holds, sorted.
func (c *Checker) Granted(role string) []string {
	out := []string{}
	for _, p := range ClassPermissions {
		if c.Has(role, p) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func matchPerm(pattern, perm string) bool {
	if pattern == "*" || pattern == perm {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(perm, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

// ---- principal in context ----

// Principal is the authenticated caller as seen by handlers and services.
type Principal struct {
	Subject string
	Role    string
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// WithRole sets the role, keeping any subject already in ctx.
func WithRole(ctx context.Context, role string) context.Context {
	p := PrincipalFromContext(ctx)
	p.Role = role
	return WithPrincipal(ctx, p)
}

func PrincipalFromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(ctxKey{}).(Principal)
	return p
}

func RoleFromContext(ctx context.Context) string    { return PrincipalFromContext(ctx).Role }
func SubjectFromContext(ctx context.Context) string { return PrincipalFromContext(ctx).Subject }
