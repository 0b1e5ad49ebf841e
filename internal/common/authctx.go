package common

import "context"

type ctxKey string

const (
	staffIDKey ctxKey = "auth/staff-id"
	rolesKey   ctxKey = "auth/roles"
)

// WithStaff stores the authenticated staff identifier and roles on the context.
func WithStaff(ctx context.Context, id string, roles []string) context.Context {
	ctx = context.WithValue(ctx, staffIDKey, id)
	return context.WithValue(ctx, rolesKey, roles)
}

// StaffID extracts the authenticated staff identifier from the context.
func StaffID(ctx context.Context) (string, bool) {
	v := ctx.Value(staffIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// HasRole reports whether the authenticated staff member carries the role.
func HasRole(ctx context.Context, role string) bool {
	roles, ok := ctx.Value(rolesKey).([]string)
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
