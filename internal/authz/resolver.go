package authz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/tbjornsen/grantor/internal/models"
)

// Resolver answers authorization questions by combining two grant paths:
// role-derived (user_roles -> role_permissions -> permissions) and direct
// (user_permissions -> permissions). Grants are purely additive, so every
// decision is the union of both paths; there is no precedence or deny rule.
//
// The resolver holds no state besides the database handle and an optional
// decision cache. Each operation issues one or two set-based queries rather
// than per-entity lookups.
type Resolver struct {
	db    *gorm.DB
	cache *decisionCache
}

// Option customises resolver construction.
type Option func(*Resolver)

// WithDecisionCache memoises CheckAccess outcomes for the given TTL. The
// cache is cleared through InvalidateDecisions whenever a grant, membership
// or catalog mutation happens.
func WithDecisionCache(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.cache = newDecisionCache(ttl)
		}
	}
}

// NewResolver constructs a resolver backed by the provided database.
func NewResolver(db *gorm.DB, opts ...Option) (*Resolver, error) {
	if db == nil {
		return nil, errors.New("authz: db is required")
	}

	r := &Resolver{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// InvalidateDecisions drops all memoised decisions.
func (r *Resolver) InvalidateDecisions() {
	if r.cache != nil {
		r.cache.clear()
	}
}

// AccessList enumerates the entities a user may act on for one
// (set, type) pair. SetLevel true means the user holds the wildcard grant
// and may act on every instance; callers must check it before treating
// Entities as an allow-list.
type AccessList struct {
	SetLevel bool    `json:"set_level"`
	Entities []int64 `json:"entities"`
}

// Allows reports whether the list covers the given entity.
func (l AccessList) Allows(entity int64) bool {
	if l.SetLevel {
		return true
	}
	for _, id := range l.Entities {
		if id == entity {
			return true
		}
	}
	return false
}

// Empty reports whether the list grants nothing at all.
func (l AccessList) Empty() bool {
	return !l.SetLevel && len(l.Entities) == 0
}

// TypeGrants holds the permission types a user has per entity for one entity
// set. SetLevel carries the blanket types that apply to every instance.
type TypeGrants struct {
	SetLevel []models.PermissionType          `json:"set_level"`
	ByEntity map[int64][]models.PermissionType `json:"by_entity"`
}

// Effective returns the union of set-level and instance-specific types for
// the given entity, in canonical order.
func (g TypeGrants) Effective(entity int64) []models.PermissionType {
	return mergeTypes(g.SetLevel, g.ByEntity[entity])
}

// SummaryEntry describes a user's standing on one entity set: the types held
// at set level and the types held on at least one individual instance.
type SummaryEntry struct {
	SetLevel  []models.PermissionType `json:"set_level"`
	Instances []models.PermissionType `json:"instances"`
}

// Summary maps each entity set the user has any grant on to its entry.
type Summary map[models.EntitySet]SummaryEntry

// CheckAccess reports whether the user may perform the permission type on
// the scoped target. A set-level permission row (NULL entity) satisfies any
// instance scope; an instance row satisfies only its own id. Asking with
// SetLevel() checks specifically for the wildcard grant.
//
// A false result is the normal deny outcome, not an error; errors are
// reserved for store failures.
func (r *Resolver) CheckAccess(ctx context.Context, userID uint, set models.EntitySet, typ models.PermissionType, scope Scope) (bool, error) {
	if err := validateQuery(userID, set, typ); err != nil {
		return false, err
	}

	key := decisionKey(userID, set, typ, scope)
	if r.cache != nil {
		if allowed, ok := r.cache.get(key); ok {
			return allowed, nil
		}
	}

	roleQ := applyScope(r.rolePath(ctx, userID, set).Where("permissions.type = ?", typ), scope).Select("1")
	directQ := applyScope(r.directPath(ctx, userID, set).Where("permissions.type = ?", typ), scope).Select("1")

	var allowed bool
	err := r.db.WithContext(ctx).
		Raw("SELECT EXISTS (?) OR EXISTS (?)", roleQ, directQ).
		Scan(&allowed).Error
	if err != nil {
		return false, fmt.Errorf("authz: check access: %w", err)
	}

	if r.cache != nil {
		r.cache.put(key, allowed)
	}
	return allowed, nil
}

// CheckAccessAll reports whether the user may perform the permission type on
// every listed entity. The check is all-or-nothing: one missing entity denies
// the whole batch. A set-level grant short-circuits the batch to true.
func (r *Resolver) CheckAccessAll(ctx context.Context, userID uint, set models.EntitySet, typ models.PermissionType, entities []int64) (bool, error) {
	if err := validateQuery(userID, set, typ); err != nil {
		return false, err
	}

	wildcard, err := r.CheckAccess(ctx, userID, set, typ, SetLevel())
	if err != nil {
		return false, err
	}
	if wildcard {
		return true, nil
	}

	ids := dedupe(entities)
	if len(ids) == 0 {
		return false, nil
	}

	roleQ := r.rolePath(ctx, userID, set).
		Where("permissions.type = ?", typ).
		Where("permissions.entity IN ?", ids).
		Select("permissions.entity")
	directQ := r.directPath(ctx, userID, set).
		Where("permissions.type = ?", typ).
		Where("permissions.entity IN ?", ids).
		Select("permissions.entity")

	// UNION collapses duplicate grants across paths and roles, so the count
	// is the number of distinct granted entities among the requested ids.
	var granted int64
	err = r.db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM (? UNION ?) AS grants", roleQ, directQ).
		Scan(&granted).Error
	if err != nil {
		return false, fmt.Errorf("authz: check batch access: %w", err)
	}

	return granted == int64(len(ids)), nil
}

// AccessibleEntities returns every entity the user can reach for the
// (set, type) pair. An empty result is the deny signal; it is delivered on
// the normal return path, never as an error.
func (r *Resolver) AccessibleEntities(ctx context.Context, userID uint, set models.EntitySet, typ models.PermissionType) (AccessList, error) {
	if err := validateQuery(userID, set, typ); err != nil {
		return AccessList{}, err
	}

	roleQ := r.rolePath(ctx, userID, set).Where("permissions.type = ?", typ).Select("permissions.entity")
	directQ := r.directPath(ctx, userID, set).Where("permissions.type = ?", typ).Select("permissions.entity")

	var rows []struct{ Entity *int64 }
	err := r.db.WithContext(ctx).
		Raw("SELECT entity FROM (? UNION ?) AS grants", roleQ, directQ).
		Scan(&rows).Error
	if err != nil {
		return AccessList{}, fmt.Errorf("authz: accessible entities: %w", err)
	}

	var list AccessList
	for _, row := range rows {
		if row.Entity == nil {
			list.SetLevel = true
			continue
		}
		list.Entities = append(list.Entities, *row.Entity)
	}
	sort.Slice(list.Entities, func(i, j int) bool { return list.Entities[i] < list.Entities[j] })
	return list, nil
}

// PermissionTypes returns the de-duplicated union of permission types the
// user holds on the scoped target across both grant paths. For an instance
// scope the set-level types are included, since they apply to every
// instance. The result advertises allowed actions; it does not gate access.
func (r *Resolver) PermissionTypes(ctx context.Context, userID uint, set models.EntitySet, scope Scope) ([]models.PermissionType, error) {
	if userID == 0 {
		return nil, errors.New("authz: user id is required")
	}
	if !set.Valid() {
		return nil, fmt.Errorf("authz: invalid entity set %q", set)
	}

	roleQ := applyScope(r.rolePath(ctx, userID, set), scope).Select("permissions.type")
	directQ := applyScope(r.directPath(ctx, userID, set), scope).Select("permissions.type")

	var raw []string
	err := r.db.WithContext(ctx).
		Raw("SELECT type FROM (? UNION ?) AS grants", roleQ, directQ).
		Scan(&raw).Error
	if err != nil {
		return nil, fmt.Errorf("authz: permission types: %w", err)
	}

	types := make([]models.PermissionType, 0, len(raw))
	for _, value := range raw {
		types = append(types, models.PermissionType(value))
	}
	sortTypes(types)
	return types, nil
}

// PermissionTypesForEntities is the batched variant of PermissionTypes. The
// SetLevel entry carries blanket grants; Effective unions them into any
// per-entity answer.
func (r *Resolver) PermissionTypesForEntities(ctx context.Context, userID uint, set models.EntitySet, entities []int64) (TypeGrants, error) {
	if userID == 0 {
		return TypeGrants{}, errors.New("authz: user id is required")
	}
	if !set.Valid() {
		return TypeGrants{}, fmt.Errorf("authz: invalid entity set %q", set)
	}

	ids := dedupe(entities)
	cond := func(q *gorm.DB) *gorm.DB {
		if len(ids) == 0 {
			return q.Where("permissions.entity IS NULL")
		}
		return q.Where("permissions.entity IS NULL OR permissions.entity IN ?", ids)
	}

	roleQ := cond(r.rolePath(ctx, userID, set)).Select("permissions.entity, permissions.type")
	directQ := cond(r.directPath(ctx, userID, set)).Select("permissions.entity, permissions.type")

	var rows []struct {
		Entity *int64
		Type   string
	}
	err := r.db.WithContext(ctx).
		Raw("SELECT entity, type FROM (? UNION ?) AS grants", roleQ, directQ).
		Scan(&rows).Error
	if err != nil {
		return TypeGrants{}, fmt.Errorf("authz: permission types for entities: %w", err)
	}

	grants := TypeGrants{ByEntity: make(map[int64][]models.PermissionType)}
	for _, row := range rows {
		typ := models.PermissionType(row.Type)
		if row.Entity == nil {
			grants.SetLevel = append(grants.SetLevel, typ)
			continue
		}
		grants.ByEntity[*row.Entity] = append(grants.ByEntity[*row.Entity], typ)
	}

	sortTypes(grants.SetLevel)
	for id := range grants.ByEntity {
		sortTypes(grants.ByEntity[id])
	}
	return grants, nil
}

// AuthorizationSummary reports, per entity set, which permission types the
// user holds at set level and which on individual instances. Login responses
// embed it so clients can shape their navigation without issuing one check
// per affordance.
func (r *Resolver) AuthorizationSummary(ctx context.Context, userID uint) (Summary, error) {
	if userID == 0 {
		return nil, errors.New("authz: user id is required")
	}

	roleQ := r.db.Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", userID).
		Select("permissions.entity_set, permissions.type, permissions.entity IS NULL AS set_level")
	directQ := r.db.Table("permissions").
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.id").
		Where("user_permissions.user_id = ?", userID).
		Select("permissions.entity_set, permissions.type, permissions.entity IS NULL AS set_level")

	var rows []struct {
		EntitySet string
		Type      string
		SetLevel  bool
	}
	err := r.db.WithContext(ctx).
		Raw("SELECT entity_set, type, set_level FROM (? UNION ?) AS grants", roleQ, directQ).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("authz: authorization summary: %w", err)
	}

	summary := make(Summary)
	for _, row := range rows {
		set := models.EntitySet(row.EntitySet)
		entry := summary[set]
		typ := models.PermissionType(row.Type)
		if row.SetLevel {
			entry.SetLevel = appendUniqueType(entry.SetLevel, typ)
		} else {
			entry.Instances = appendUniqueType(entry.Instances, typ)
		}
		summary[set] = entry
	}

	for set, entry := range summary {
		sortTypes(entry.SetLevel)
		sortTypes(entry.Instances)
		summary[set] = entry
	}
	return summary, nil
}

func (r *Resolver) rolePath(ctx context.Context, userID uint, set models.EntitySet) *gorm.DB {
	return r.db.WithContext(ctx).Table("permissions").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", userID).
		Where("permissions.entity_set = ?", set)
}

func (r *Resolver) directPath(ctx context.Context, userID uint, set models.EntitySet) *gorm.DB {
	return r.db.WithContext(ctx).Table("permissions").
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.id").
		Where("user_permissions.user_id = ?", userID).
		Where("permissions.entity_set = ?", set)
}

func applyScope(q *gorm.DB, scope Scope) *gorm.DB {
	if id, ok := scope.Entity(); ok {
		return q.Where("permissions.entity IS NULL OR permissions.entity = ?", id)
	}
	return q.Where("permissions.entity IS NULL")
}

func validateQuery(userID uint, set models.EntitySet, typ models.PermissionType) error {
	if userID == 0 {
		return errors.New("authz: user id is required")
	}
	if !set.Valid() {
		return fmt.Errorf("authz: invalid entity set %q", set)
	}
	if !typ.Valid() {
		return fmt.Errorf("authz: invalid permission type %q", typ)
	}
	return nil
}

var typeOrder = map[models.PermissionType]int{
	models.PermissionCreate: 0,
	models.PermissionRead:   1,
	models.PermissionUpdate: 2,
	models.PermissionDelete: 3,
	models.PermissionShare:  4,
}

func sortTypes(types []models.PermissionType) {
	sort.Slice(types, func(i, j int) bool { return typeOrder[types[i]] < typeOrder[types[j]] })
}

func mergeTypes(groups ...[]models.PermissionType) []models.PermissionType {
	var merged []models.PermissionType
	for _, group := range groups {
		for _, typ := range group {
			merged = appendUniqueType(merged, typ)
		}
	}
	sortTypes(merged)
	return merged
}

func appendUniqueType(types []models.PermissionType, typ models.PermissionType) []models.PermissionType {
	for _, existing := range types {
		if existing == typ {
			return types
		}
	}
	return append(types, typ)
}

func dedupe(values []int64) []int64 {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(values))
	var out []int64
	for _, value := range values {
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
