package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tbjornsen/grantor/internal/models"
	apperrors "github.com/tbjornsen/grantor/pkg/errors"
)

func TestGrantToRoleLifecycle(t *testing.T) {
	db := newServiceTestDB(t)
	inv := &countingInvalidator{}
	svc, err := NewGrantService(db, nil, inv)
	require.NoError(t, err)
	ctx := context.Background()

	role := createTestRole(t, db, "viewer")
	perm := createTestPermission(t, db, models.EntitySetUser, models.PermissionRead, nil)

	grant, err := svc.GrantToRole(ctx, role.ID, perm.ID)
	require.NoError(t, err)
	require.Equal(t, role.ID, grant.RoleID)
	require.Equal(t, int64(1), inv.calls.Load())

	// Duplicate grant conflicts.
	_, err = svc.GrantToRole(ctx, role.ID, perm.ID)
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	require.Equal(t, 409, appErr.StatusCode)

	perms, err := svc.RolePermissions(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	require.Equal(t, perm.ID, perms[0].ID)

	require.NoError(t, svc.RevokeFromRole(ctx, role.ID, perm.ID))
	require.Equal(t, int64(2), inv.calls.Load())

	// Second revoke finds nothing.
	require.ErrorIs(t, svc.RevokeFromRole(ctx, role.ID, perm.ID), apperrors.ErrNotFound)
}

func TestGrantToUserLifecycle(t *testing.T) {
	db := newServiceTestDB(t)
	svc, err := NewGrantService(db, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	user := createTestUser(t, db, "direct")
	entity := int64(7)
	perm := createTestPermission(t, db, models.EntitySetUser, models.PermissionRead, &entity)

	grant, err := svc.GrantToUser(ctx, user.ID, perm.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, grant.UserID)

	_, err = svc.GrantToUser(ctx, user.ID, perm.ID)
	require.Error(t, err)

	perms, err := svc.UserPermissions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, perms, 1)

	require.NoError(t, svc.RevokeFromUser(ctx, user.ID, perm.ID))
	require.ErrorIs(t, svc.RevokeFromUser(ctx, user.ID, perm.ID), apperrors.ErrNotFound)
}

func TestGrantRejectsMissingSubjects(t *testing.T) {
	db := newServiceTestDB(t)
	svc, err := NewGrantService(db, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	role := createTestRole(t, db, "viewer")
	perm := createTestPermission(t, db, models.EntitySetUser, models.PermissionRead, nil)

	_, err = svc.GrantToRole(ctx, 9999, perm.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.GrantToRole(ctx, role.ID, 9999)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.GrantToUser(ctx, 9999, perm.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPermissionHolders(t *testing.T) {
	db := newServiceTestDB(t)
	svc, err := NewGrantService(db, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	perm := createTestPermission(t, db, models.EntitySetUser, models.PermissionShare, nil)
	alpha := createTestRole(t, db, "alpha")
	beta := createTestRole(t, db, "beta")
	owner := createTestUser(t, db, "owner")

	_, err = svc.GrantToRole(ctx, alpha.ID, perm.ID)
	require.NoError(t, err)
	_, err = svc.GrantToRole(ctx, beta.ID, perm.ID)
	require.NoError(t, err)
	_, err = svc.GrantToUser(ctx, owner.ID, perm.ID)
	require.NoError(t, err)

	roles, err := svc.PermissionRoles(ctx, perm.ID)
	require.NoError(t, err)
	require.Len(t, roles, 2)

	users, err := svc.PermissionUsers(ctx, perm.ID)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, owner.ID, users[0].ID)
}
