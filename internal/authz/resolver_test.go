package authz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tbjornsen/grantor/internal/database/testutil"
	"github.com/tbjornsen/grantor/internal/models"
)

type fixture struct {
	t  *testing.T
	db *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{t: t, db: testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())}
}

func (f *fixture) user(name string) *models.User {
	user := &models.User{Name: name, Email: name + "@example.com", Password: "hashed"}
	require.NoError(f.t, f.db.Create(user).Error)
	return user
}

func (f *fixture) role(name string) *models.Role {
	role := &models.Role{Name: name}
	require.NoError(f.t, f.db.Create(role).Error)
	return role
}

func (f *fixture) permission(set models.EntitySet, typ models.PermissionType, entity *int64) *models.Permission {
	perm := &models.Permission{EntitySet: set, Type: typ, Entity: entity}
	require.NoError(f.t, f.db.Create(perm).Error)
	return perm
}

func (f *fixture) grantToRole(role *models.Role, perm *models.Permission) {
	require.NoError(f.t, f.db.Create(&models.RolePermission{RoleID: role.ID, PermissionID: perm.ID}).Error)
}

func (f *fixture) grantToUser(user *models.User, perm *models.Permission) {
	require.NoError(f.t, f.db.Create(&models.UserPermission{UserID: user.ID, PermissionID: perm.ID}).Error)
}

func (f *fixture) addMember(user *models.User, role *models.Role) {
	require.NoError(f.t, f.db.Create(&models.UserRole{UserID: user.ID, RoleID: role.ID}).Error)
}

func (f *fixture) resolver(opts ...Option) *Resolver {
	r, err := NewResolver(f.db, opts...)
	require.NoError(f.t, err)
	return r
}

func entityID(id int64) *int64 {
	return &id
}

func TestNewResolverRequiresDB(t *testing.T) {
	_, err := NewResolver(nil)
	require.Error(t, err)
}

func TestCheckAccessUnionOfGrantPaths(t *testing.T) {
	f := newFixture(t)
	r := f.resolver()
	ctx := context.Background()

	perm := f.permission(models.EntitySetUser, models.PermissionRead, entityID(42))

	roleOnly := f.user("role-only")
	viewer := f.role("viewer")
	f.addMember(roleOnly, viewer)
	f.grantToRole(viewer, perm)

	directOnly := f.user("direct-only")
	f.grantToUser(directOnly, perm)

	both := f.user("both")
	f.addMember(both, viewer)
	f.grantToUser(both, perm)

	neither := f.user("neither")

	for _, tc := range []struct {
		name string
		user *models.User
		want bool
	}{
		{"role path alone grants", roleOnly, true},
		{"direct path alone grants", directOnly, true},
		{"both paths grant", both, true},
		{"no path denies", neither, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := r.CheckAccess(ctx, tc.user.ID, models.EntitySetUser, models.PermissionRead, Instance(42))
			require.NoError(t, err)
			require.Equal(t, tc.want, ok)
		})
	}
}

func TestCheckAccessWildcardSubsumesEveryInstance(t *testing.T) {
	f := newFixture(t)
	r := f.resolver()
	ctx := context.Background()

	wildcard := f.permission(models.EntitySetRole, models.PermissionUpdate, nil)
	admin := f.role("admin")
	user := f.user("admin-user")
	f.addMember(user, admin)
	f.grantToRole(admin, wildcard)

	for _, id := range []int64{1, 7, 9999} {
		ok, err := r.CheckAccess(ctx, user.ID, models.EntitySetRole, models.PermissionUpdate, Instance(id))
		require.NoError(t, err)
		require.True(t, ok, "wildcard must cover entity %d", id)
	}

	list, err := r.AccessibleEntities(ctx, user.ID, models.EntitySetRole, models.PermissionUpdate)
	require.NoError(t, err)
	require.True(t, list.SetLevel)
}

func TestCheckAccessSetLevelScopeIsAQueryOfItsOwn(t *testing.T) {
	f := newFixture(t)
	r := f.resolver()
	ctx := context.Background()

	// An instance grant does not answer the set-level question.
	instPerm := f.permission(models.EntitySetUser, models.PermissionDelete, entityID(3))
	user := f.user("inst-holder")
	f.grantToUser(user, instPerm)

	ok, err := r.CheckAccess(ctx, user.ID, models.EntitySetUser, models.PermissionDelete, SetLevel())
	require.NoError(t, err)
	require.False(t, ok)

	setPerm := f.permission(models.EntitySetUser, models.PermissionDelete, nil)
	f.grantToUser(user, setPerm)

	ok, err = r.CheckAccess(ctx, user.ID, models.EntitySetUser, models.PermissionDelete, SetLevel())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCheckAccessDistinguishesTypeAndSet(t *testing.T) {
	f := newFixture(t)
	r := f.resolver()
	ctx := context.Background()

	perm := f.permission(models.EntitySetUser, models.PermissionRead, entityID(1))
	user := f.user("narrow")
	f.grantToUser(user, perm)

	ok, err := r.CheckAccess(ctx, user.ID, models.EntitySetUser, models.PermissionUpdate, Instance(1))
	require.NoError(t, err)
	require.False(t, ok, "different permission type must not match")

	ok, err = r.CheckAccess(ctx, user.ID, models.EntitySetRole, models.PermissionRead, Instance(1))
	require.NoError(t, err)
	require.False(t, ok, "different entity set must not match")
}

func TestCheckAccessAllIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	r := f.resolver()
	ctx := context.Background()

	user := f.user("batch")
	f.grantToUser(user, f.permission(models.EntitySetUser, models.PermissionRead, entityID(7)))

	ok, err := r.CheckAccessAll(ctx, user.ID, models.EntitySetUser, models.PermissionRead, []int64{7})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = r.CheckAccessAll(ctx, user.ID, models.EntitySetUser, models.PermissionRead, []int64{7, 8})
	require.NoError(t, err)
	require.False(t, ok, "one missing entity denies the whole batch")

	f.grantToUser(user, f.permission(models.EntitySetUser, models.PermissionRead, entityID(8)))

	ok, err = r.CheckAccessAll(ctx, user.ID, models.EntitySetUser, models.PermissionRead, []int64{7, 8})
	require.NoError(t, err)
	require.True(t, ok)

	// Duplicate ids in the request must not inflate the granted count.
	ok, err = r.CheckAccessAll(ctx, user.ID, models.EntitySetUser, models.PermissionRead, []int64{7, 7, 8})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCheckAccessAllWildcardShortCircuits(t *testing.T) {
	f := newFixture(t)
	r := f.resolver()
	ctx := context.Background()

	user := f.user("blanket")
	f.grantToUser(user, f.permission(models.EntitySetUser, models.PermissionRead, nil))

	ok, err := r.CheckAccessAll(ctx, user.ID, models.EntitySetUser, models.PermissionRead, []int64{1, 2, 3})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCheckAccessAllGrantsFromBothPathsCombine(t *testing.T) {
	f := newFixture(t)
	r := f.resolver()
	ctx := context.Background()

	user := f.user("split")
	editors := f.role("editors")
	f.addMember(user, editors)

	f.grantToRole(editors, f.permission(models.EntitySetUser, models.PermissionRead, entityID(1)))
	f.grantToUser(user, f.permission(models.EntitySetUser, models.PermissionRead, entityID(2)))

	ok, err := r.CheckAccessAll(ctx, user.ID, models.EntitySetUser, models.PermissionRead, []int64{1, 2})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAccessibleEntitiesEmptyMeansDeny(t *testing.T) {
	f := newFixture(t)
	r := f.resolver()

	user := f.user("nobody")

	list, err := r.AccessibleEntities(context.Background(), user.ID, models.EntitySetUser, models.PermissionRead)
	require.NoError(t, err, "deny travels on the result channel, not as an error")
	require.True(t, list.Empty())
	require.False(t, list.Allows(1))
}

func TestAccessibleEntitiesMergesPathsAndSorts(t *testing.T) {
	f := newFixture(t)
	r := f.resolver()
	ctx := context.Background()

	user := f.user("merger")
	team := f.role("team")
	f.addMember(user, team)

	shared := f.permission(models.EntitySetUser, models.PermissionRead, entityID(5))
	f.grantToRole(team, shared)
	f.grantToUser(user, shared) // same entity via both paths: must not duplicate
	f.grantToRole(team, f.permission(models.EntitySetUser, models.PermissionRead, entityID(9)))
	f.grantToUser(user, f.permission(models.EntitySetUser, models.PermissionRead, entityID(2)))

	list, err := r.AccessibleEntities(ctx, user.ID, models.EntitySetUser, models.PermissionRead)
	require.NoError(t, err)
	require.False(t, list.SetLevel)
	require.Equal(t, []int64{2, 5, 9}, list.Entities)
	require.True(t, list.Allows(5))
	require.False(t, list.Allows(6))
}

func TestPermissionTypesUnionIncludesSetLevel(t *testing.T) {
	f := newFixture(t)
	r := f.resolver()
	ctx := context.Background()

	user := f.user("typed")
	readers := f.role("readers")
	f.addMember(user, readers)

	f.grantToRole(readers, f.permission(models.EntitySetUser, models.PermissionRead, nil))
	f.grantToUser(user, f.permission(models.EntitySetUser, models.PermissionUpdate, entityID(4)))
	// read granted twice for entity 4: set level via role and instance direct
	f.grantToUser(user, f.permission(models.EntitySetUser, models.PermissionRead, entityID(4)))

	types, err := r.PermissionTypes(ctx, user.ID, models.EntitySetUser, Instance(4))
	require.NoError(t, err)
	require.Equal(t, []models.PermissionType{models.PermissionRead, models.PermissionUpdate}, types)

	setTypes, err := r.PermissionTypes(ctx, user.ID, models.EntitySetUser, SetLevel())
	require.NoError(t, err)
	require.Equal(t, []models.PermissionType{models.PermissionRead}, setTypes)
}

func TestPermissionTypesForEntitiesEffectiveUnionsSetLevel(t *testing.T) {
	f := newFixture(t)
	r := f.resolver()
	ctx := context.Background()

	user := f.user("batch-typed")
	f.grantToUser(user, f.permission(models.EntitySetUser, models.PermissionRead, nil))
	f.grantToUser(user, f.permission(models.EntitySetUser, models.PermissionUpdate, entityID(1)))
	f.grantToUser(user, f.permission(models.EntitySetUser, models.PermissionShare, entityID(2)))

	grants, err := r.PermissionTypesForEntities(ctx, user.ID, models.EntitySetUser, []int64{1, 2, 3})
	require.NoError(t, err)

	require.Equal(t, []models.PermissionType{models.PermissionRead}, grants.SetLevel)
	require.Equal(t, []models.PermissionType{models.PermissionUpdate}, grants.ByEntity[1])
	require.Equal(t, []models.PermissionType{models.PermissionShare}, grants.ByEntity[2])

	require.Equal(t, []models.PermissionType{models.PermissionRead, models.PermissionUpdate}, grants.Effective(1))
	require.Equal(t, []models.PermissionType{models.PermissionRead, models.PermissionShare}, grants.Effective(2))
	require.Equal(t, []models.PermissionType{models.PermissionRead}, grants.Effective(3))
}

func TestRevokeIsIdempotentPerPath(t *testing.T) {
	f := newFixture(t)
	r := f.resolver()
	ctx := context.Background()

	perm := f.permission(models.EntitySetUser, models.PermissionRead, entityID(11))
	user := f.user("revoked")
	viewers := f.role("viewers")
	f.addMember(user, viewers)
	f.grantToRole(viewers, perm)
	f.grantToUser(user, perm)

	// Revoke the role path; the direct grant must keep access alive.
	require.NoError(t, f.db.Delete(&models.RolePermission{RoleID: viewers.ID, PermissionID: perm.ID}).Error)

	ok, err := r.CheckAccess(ctx, user.ID, models.EntitySetUser, models.PermissionRead, Instance(11))
	require.NoError(t, err)
	require.True(t, ok)

	// Revoke the direct path too; now the decision flips to deny.
	require.NoError(t, f.db.Delete(&models.UserPermission{UserID: user.ID, PermissionID: perm.ID}).Error)

	ok, err = r.CheckAccess(ctx, user.ID, models.EntitySetUser, models.PermissionRead, Instance(11))
	require.NoError(t, err)
	require.False(t, ok)
}

// Mirrors the canonical scenario: an admin role with a set-level read grant,
// and a second user with a single direct instance grant.
func TestAdminWildcardAndOwnershipScenario(t *testing.T) {
	f := newFixture(t)
	r := f.resolver()
	ctx := context.Background()

	setRead := f.permission(models.EntitySetUser, models.PermissionRead, nil)
	admin := f.role("site-admin")
	f.grantToRole(admin, setRead)

	u1 := f.user("u1")
	f.addMember(u1, admin)
	u2 := f.user("u2")

	ok, err := r.CheckAccess(ctx, u1.ID, models.EntitySetUser, models.PermissionRead, Instance(42))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = r.CheckAccess(ctx, u2.ID, models.EntitySetUser, models.PermissionRead, Instance(42))
	require.NoError(t, err)
	require.False(t, ok)

	f.grantToUser(u2, f.permission(models.EntitySetUser, models.PermissionRead, entityID(7)))

	ok, err = r.CheckAccess(ctx, u2.ID, models.EntitySetUser, models.PermissionRead, Instance(7))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = r.CheckAccess(ctx, u2.ID, models.EntitySetUser, models.PermissionRead, Instance(8))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = r.CheckAccessAll(ctx, u2.ID, models.EntitySetUser, models.PermissionRead, []int64{7, 8})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAuthorizationSummary(t *testing.T) {
	f := newFixture(t)
	r := f.resolver()
	ctx := context.Background()

	user := f.user("summarised")
	ops := f.role("ops")
	f.addMember(user, ops)

	f.grantToRole(ops, f.permission(models.EntitySetRole, models.PermissionRead, nil))
	f.grantToRole(ops, f.permission(models.EntitySetRole, models.PermissionUpdate, nil))
	f.grantToUser(user, f.permission(models.EntitySetUser, models.PermissionRead, entityID(1)))

	summary, err := r.AuthorizationSummary(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, summary, 2)

	require.Equal(t, []models.PermissionType{models.PermissionRead, models.PermissionUpdate}, summary[models.EntitySetRole].SetLevel)
	require.Empty(t, summary[models.EntitySetRole].Instances)
	require.Equal(t, []models.PermissionType{models.PermissionRead}, summary[models.EntitySetUser].Instances)
	require.Empty(t, summary[models.EntitySetUser].SetLevel)
}

func TestResolverRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	r := f.resolver()
	ctx := context.Background()

	_, err := r.CheckAccess(ctx, 0, models.EntitySetUser, models.PermissionRead, SetLevel())
	require.Error(t, err)

	_, err = r.CheckAccess(ctx, 1, models.EntitySet("spaceship"), models.PermissionRead, SetLevel())
	require.Error(t, err)

	_, err = r.CheckAccess(ctx, 1, models.EntitySetUser, models.PermissionType("fly"), SetLevel())
	require.Error(t, err)
}

func TestDecisionCacheInvalidation(t *testing.T) {
	f := newFixture(t)
	r := f.resolver(WithDecisionCache(time.Minute))
	ctx := context.Background()

	perm := f.permission(models.EntitySetUser, models.PermissionRead, entityID(1))
	user := f.user("cached")

	ok, err := r.CheckAccess(ctx, user.ID, models.EntitySetUser, models.PermissionRead, Instance(1))
	require.NoError(t, err)
	require.False(t, ok)

	f.grantToUser(user, perm)

	// The stale deny is served until the mutation invalidates it.
	ok, err = r.CheckAccess(ctx, user.ID, models.EntitySetUser, models.PermissionRead, Instance(1))
	require.NoError(t, err)
	require.False(t, ok)

	r.InvalidateDecisions()

	ok, err = r.CheckAccess(ctx, user.ID, models.EntitySetUser, models.PermissionRead, Instance(1))
	require.NoError(t, err)
	require.True(t, ok)
}
