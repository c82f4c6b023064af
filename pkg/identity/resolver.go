package identity

import (
	"context"

	"github.com/celldb/celldb/pkg/acl"
)

// RoleSource resolves the role names attached to a user id.
type RoleSource interface {
	RolesForUser(ctx context.Context, userID string) ([]string, error)
}

// Resolver composes an Authenticator with a RoleSource to produce the full
// identity evaluated by the permission layer.
type Resolver struct {
	auth  Authenticator
	roles RoleSource
}

// NewResolver creates a resolver.
func NewResolver(auth Authenticator, roles RoleSource) *Resolver {
	return &Resolver{auth: auth, roles: roles}
}

// Resolve authenticates token and attaches the user's roles.
func (r *Resolver) Resolve(ctx context.Context, token string) (*acl.Identity, error) {
	userID, err := r.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	roleNames, err := r.roles.RolesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &acl.Identity{UserID: userID, Roles: roleNames}, nil
}
