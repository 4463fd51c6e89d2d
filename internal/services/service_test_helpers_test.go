package services

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tbjornsen/grantor/internal/database/testutil"
	"github.com/tbjornsen/grantor/internal/models"
)

func newServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

// countingInvalidator records decision-cache invalidations.
type countingInvalidator struct {
	calls atomic.Int64
}

func (c *countingInvalidator) InvalidateDecisions() {
	c.calls.Add(1)
}

func createTestUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{Name: name, Email: name + "@example.com", Password: "hashed"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestRole(t *testing.T, db *gorm.DB, name string) *models.Role {
	t.Helper()
	role := &models.Role{Name: name}
	require.NoError(t, db.Create(role).Error)
	return role
}

func createTestPermission(t *testing.T, db *gorm.DB, set models.EntitySet, typ models.PermissionType, entity *int64) *models.Permission {
	t.Helper()
	perm := &models.Permission{EntitySet: set, Type: typ, Entity: entity}
	require.NoError(t, db.Create(perm).Error)
	return perm
}
