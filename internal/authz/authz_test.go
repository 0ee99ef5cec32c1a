package authz

import (
	"context"
	"testing"

	"storefront/internal/apperr"
	"storefront/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoles_Own(t *testing.T) {
	var az Roles
	owner := Principal{ID: 7, Role: model.RoleCustomer}
	admin := Principal{ID: 1, Role: model.RoleAdmin}

	assert.NoError(t, az.Own(owner, 7, "nope"))

	err := az.Own(owner, 8, "You can only delete your own orders")
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.Equal(t, "You can only delete your own orders", apperr.MessageOf(err))

	// admin does not bypass ownership on writes
	assert.Error(t, az.Own(admin, 7, "nope"))
	assert.Error(t, az.Own(Principal{}, 0, "nope"))
}

func TestRoles_ReadAll(t *testing.T) {
	var az Roles
	assert.NoError(t, az.ReadAll(Principal{ID: 1, Role: model.RoleAdmin}))
	assert.ErrorIs(t, az.ReadAll(Principal{ID: 2, Role: model.RoleCustomer}), apperr.ErrForbidden)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{ID: 3, Email: "a@b.c"})
	p, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, uint(3), p.ID)
}
