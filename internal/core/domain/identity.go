package domain

import (
	"context"
	"fmt"
)

// Role is the enumerated authorization level carried by an Identity.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole accepts only the canonical upper-case role names.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

func (r Role) String() string { return string(r) }

// Identity is the unit of authorization: who the caller is and what role
// they hold. It is established once from a verified credential and never
// mutated afterwards.
type Identity struct {
	Subject string
	Role    Role
}

// IsZero reports whether no identity has been established.
func (i Identity) IsZero() bool {
	return i.Subject == "" && i.Role == ""
}

// IsAdmin reports whether the identity holds the elevated role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type identityCtxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext extracts the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	if !ok || id.IsZero() {
		return Identity{}, false
	}
	return id, true
}
