// Package authz holds the acting principal and the capability checks each
// lifecycle operation runs before touching data.
package authz

import (
	"context"

	"storefront/internal/apperr"
	"storefront/internal/model"
)

// Principal is the verified identity of the caller. It is trusted verbatim.
type Principal struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }

// Authorizer decides whether a principal may act on data.
type Authorizer interface {
	// Own fails with Forbidden(denied) unless p owns the record.
	Own(p Principal, ownerID uint, denied string) error
	// ReadAll fails with Forbidden unless p may read every user's records.
	ReadAll(p Principal) error
}

// Roles is the default Authorizer: owners act on their own records, admins read everything.
type Roles struct{}

func (Roles) Own(p Principal, ownerID uint, denied string) error {
	if p.ID == 0 || p.ID != ownerID {
		return apperr.Forbidden("%s", denied)
	}
	return nil
}

func (Roles) ReadAll(p Principal) error {
	if !p.IsAdmin() {
		return apperr.Forbidden("Admin access required")
	}
	return nil
}

type ctxKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
