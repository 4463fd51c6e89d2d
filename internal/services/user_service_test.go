package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tbjornsen/grantor/internal/models"
	apperrors "github.com/tbjornsen/grantor/pkg/errors"
)

func TestUserCreateHashesPassword(t *testing.T) {
	db := newServiceTestDB(t)
	svc, err := NewUserService(db, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{
		Name:     "Ada",
		Email:    "Ada@Example.com",
		Password: "s3cret",
	})
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	require.Equal(t, "ada@example.com", user.Email)
	require.NotEqual(t, "s3cret", user.Password)

	verified, err := svc.VerifyCredentials(ctx, "ada@example.com", "s3cret")
	require.NoError(t, err)
	require.Equal(t, user.ID, verified.ID)

	_, err = svc.VerifyCredentials(ctx, "ada@example.com", "wrong")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = svc.VerifyCredentials(ctx, "ghost@example.com", "s3cret")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestUserCreateWithRoles(t *testing.T) {
	db := newServiceTestDB(t)
	inv := &countingInvalidator{}
	svc, err := NewUserService(db, nil, inv)
	require.NoError(t, err)
	ctx := context.Background()

	role := createTestRole(t, db, "staff")

	user, err := svc.Create(ctx, CreateUserInput{
		Name:     "Grace",
		Email:    "grace@example.com",
		Password: "s3cret",
		RoleIDs:  []uint{role.ID},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), inv.calls.Load())

	var count int64
	require.NoError(t, db.Model(&models.UserRole{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestUserCreateWithUnknownRoleRollsBack(t *testing.T) {
	db := newServiceTestDB(t)
	svc, err := NewUserService(db, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Create(ctx, CreateUserInput{
		Name:     "Niels",
		Email:    "niels@example.com",
		Password: "s3cret",
		RoleIDs:  []uint{9999},
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.Zero(t, count, "failed role assignment must roll back the user row")
}

func TestUserDuplicateEmailConflicts(t *testing.T) {
	db := newServiceTestDB(t)
	svc, err := NewUserService(db, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Create(ctx, CreateUserInput{Name: "A", Email: "dup@example.com", Password: "x"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateUserInput{Name: "B", Email: "dup@example.com", Password: "y"})
	require.Error(t, err)
	require.Equal(t, 409, apperrors.FromError(err).StatusCode)
}

func TestUserUpdateAndDelete(t *testing.T) {
	db := newServiceTestDB(t)
	inv := &countingInvalidator{}
	svc, err := NewUserService(db, nil, inv)
	require.NoError(t, err)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{Name: "Old", Email: "old@example.com", Password: "x"})
	require.NoError(t, err)

	name := "New"
	updated, err := svc.Update(ctx, user.ID, UpdateUserInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "New", updated.Name)

	// Deleting removes memberships and direct grants alongside the user.
	role := createTestRole(t, db, "staff")
	perm := createTestPermission(t, db, models.EntitySetUser, models.PermissionRead, nil)
	require.NoError(t, db.Create(&models.UserRole{UserID: user.ID, RoleID: role.ID}).Error)
	require.NoError(t, db.Create(&models.UserPermission{UserID: user.ID, PermissionID: perm.ID}).Error)

	require.NoError(t, svc.Delete(ctx, user.ID))

	var count int64
	require.NoError(t, db.Model(&models.UserRole{}).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.UserPermission{}).Count(&count).Error)
	require.Zero(t, count)

	_, err = svc.GetByID(ctx, user.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
