package auth

import "context"

// Role names carried in token claims
const (
	RoleAdmin     = "admin"
	RoleEstimator = "estimator"
	RoleViewer    = "viewer"
)

// UserContext holds the authenticated caller's identity. Snapshots record
// the ID and name of whoever created them.
type UserContext struct {
	ID    string
	Name  string
	Email string
	Roles []string
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUser adds the user context to the request context
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext extracts the user context, if any
func UserFromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// HasRole checks if the user carries a specific role
func (u *UserContext) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if the user carries any of the given roles
func (u *UserContext) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// CanEdit reports whether the user may mutate documents
func (u *UserContext) CanEdit() bool {
	return u.HasAnyRole(RoleAdmin, RoleEstimator)
}
