package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbjornsen/grantor/internal/authz"
	"github.com/tbjornsen/grantor/internal/models"
	apperrors "github.com/tbjornsen/grantor/pkg/errors"
)

// PermissionService owns the permission catalog: the rows that grants point
// at. It never decides access; that is the resolver's job.
type PermissionService struct {
	db           *gorm.DB
	auditService *AuditService
	invalidator  authz.Invalidator
}

// NewPermissionService constructs a PermissionService using the provided database handle.
func NewPermissionService(db *gorm.DB, audit *AuditService, inv authz.Invalidator) (*PermissionService, error) {
	if db == nil {
		return nil, errors.New("permission service: db is required")
	}
	return &PermissionService{
		db:           db,
		auditService: audit,
		invalidator:  inv,
	}, nil
}

// GenerateSetPermissions creates the full set-level tuple family for an
// entity set: one permission per type with a nil entity. The batch is atomic;
// if any tuple already exists the whole call fails with a conflict and the
// catalog is left untouched.
func (s *PermissionService) GenerateSetPermissions(ctx context.Context, set models.EntitySet) ([]models.Permission, error) {
	ctx = ensureContext(ctx)

	if !set.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown entity set %q", set))
	}

	perms := make([]models.Permission, 0, len(models.PermissionTypes()))
	for _, typ := range models.PermissionTypes() {
		perms = append(perms, models.Permission{EntitySet: set, Type: typ})
	}

	created, err := s.insertBatch(ctx, set, nil, perms)
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "permission.generate_set",
		Resource: string(set),
		Result:   "success",
		Metadata: map[string]any{"count": len(created)},
	})

	invalidate(s.invalidator)
	return created, nil
}

// GenerateEntityPermissions creates the instance tuple family for one entity:
// every type except create, scoped to the given id. Atomic like
// GenerateSetPermissions.
func (s *PermissionService) GenerateEntityPermissions(ctx context.Context, set models.EntitySet, entityID int64) ([]models.Permission, error) {
	ctx = ensureContext(ctx)

	if !set.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown entity set %q", set))
	}
	if entityID <= 0 {
		return nil, apperrors.NewBadRequest("entity id must be positive")
	}

	perms := make([]models.Permission, 0, len(models.InstancePermissionTypes()))
	for _, typ := range models.InstancePermissionTypes() {
		id := entityID
		perms = append(perms, models.Permission{EntitySet: set, Type: typ, Entity: &id})
	}

	created, err := s.insertBatch(ctx, set, &entityID, perms)
	if err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "permission.generate_entity",
		Resource: string(set),
		Result:   "success",
		Metadata: map[string]any{"entity": entityID, "count": len(created)},
	})

	invalidate(s.invalidator)
	return created, nil
}

// insertBatch creates the permissions inside one transaction, refusing the
// whole batch when any tuple already exists. The explicit existence check
// covers set-level rows, where most engines treat the NULL entity column as
// distinct in the unique index.
func (s *PermissionService) insertBatch(ctx context.Context, set models.EntitySet, entity *int64, perms []models.Permission) ([]models.Permission, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&models.Permission{}).Where("entity_set = ?", set)
		if entity == nil {
			query = query.Where("entity IS NULL")
		} else {
			query = query.Where("entity = ?", *entity)
		}

		var existing int64
		if err := query.Count(&existing).Error; err != nil {
			return fmt.Errorf("permission service: check existing tuples: %w", err)
		}
		if existing > 0 {
			return apperrors.NewConflict("permissions already generated for this scope")
		}

		if err := tx.Create(&perms).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.NewConflict("permission tuple already exists")
			}
			return fmt.Errorf("permission service: create permissions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return perms, nil
}

// GetByID loads one catalog entry.
func (s *PermissionService) GetByID(ctx context.Context, id uint) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	var perm models.Permission
	if err := s.db.WithContext(ctx).First(&perm, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("permission service: load permission: %w", err)
	}
	return &perm, nil
}

// FindByIDs loads catalog entries in bulk, ignoring ids that do not exist.
func (s *PermissionService) FindByIDs(ctx context.Context, ids []uint) ([]models.Permission, error) {
	ctx = ensureContext(ctx)

	ids = dedupeUints(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	var perms []models.Permission
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("permission service: load permissions: %w", err)
	}
	return perms, nil
}

// FindByTuple resolves a catalog entry by its identity.
func (s *PermissionService) FindByTuple(ctx context.Context, set models.EntitySet, typ models.PermissionType, scope authz.Scope) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	if !set.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown entity set %q", set))
	}
	if !typ.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown permission type %q", typ))
	}

	query := s.db.WithContext(ctx).Where("entity_set = ? AND type = ?", set, typ)
	if id, ok := scope.Entity(); ok {
		query = query.Where("entity = ?", id)
	} else {
		query = query.Where("entity IS NULL")
	}

	var perm models.Permission
	if err := query.First(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("permission service: load permission: %w", err)
	}
	return &perm, nil
}

// ListBySet returns the catalog slice for one entity set, set-level rows
// first, then instances in id order.
func (s *PermissionService) ListBySet(ctx context.Context, set models.EntitySet) ([]models.Permission, error) {
	ctx = ensureContext(ctx)

	if !set.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown entity set %q", set))
	}

	var perms []models.Permission
	if err := s.db.WithContext(ctx).
		Where("entity_set = ?", set).
		Order("entity IS NOT NULL, entity, type").
		Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("permission service: list permissions: %w", err)
	}
	return perms, nil
}

// Delete removes a catalog entry along with every grant that points at it.
func (s *PermissionService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var perm models.Permission
		if err := tx.First(&perm, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("permission service: load permission: %w", err)
		}

		if err := tx.Where("permission_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
			return fmt.Errorf("permission service: clear role grants: %w", err)
		}
		if err := tx.Where("permission_id = ?", id).Delete(&models.UserPermission{}).Error; err != nil {
			return fmt.Errorf("permission service: clear user grants: %w", err)
		}

		return tx.Delete(&perm).Error
	})
	if err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "permission.delete",
		Resource: fmt.Sprintf("%d", id),
		Result:   "success",
	})

	invalidate(s.invalidator)
	return nil
}
