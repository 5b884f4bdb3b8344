package authz

import (
	"testing"

	"campusfind/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorPredicates(t *testing.T) {
	assert.True(t, Actor{}.Anonymous())
	assert.False(t, Actor{ID: 7}.Anonymous())

	admin := Actor{ID: 1, Roles: models.RoleList{models.RoleAdmin}}
	member := Actor{ID: 2, Roles: models.RoleList{}}
	assert.True(t, admin.IsAdmin())
	assert.False(t, member.IsAdmin())
}

func TestRequireAuthenticated(t *testing.T) {
	assert.NoError(t, RequireAuthenticated(Actor{ID: 3}))

	err := RequireAuthenticated(Actor{})
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

func TestRequireAdmin(t *testing.T) {
	admin := Actor{ID: 1, Roles: models.RoleList{models.RoleAdmin}}
	assert.NoError(t, RequireAdmin(admin))

	member := Actor{ID: 2}
	require.Error(t, RequireAdmin(member))
	require.Error(t, RequireAdmin(Actor{}), "anonymous is rejected before the role check")
}

func TestRequireOwnerOrAdmin(t *testing.T) {
	owner := Actor{ID: 5}
	admin := Actor{ID: 1, Roles: models.RoleList{models.RoleAdmin}}
	stranger := Actor{ID: 9}

	assert.NoError(t, RequireOwnerOrAdmin(owner, 5))
	assert.NoError(t, RequireOwnerOrAdmin(admin, 5))
	require.Error(t, RequireOwnerOrAdmin(stranger, 5))
	require.Error(t, RequireOwnerOrAdmin(Actor{}, 5))
}
