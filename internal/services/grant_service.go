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

// GrantService manages the two grant relations: role-permission and direct
// user-permission. Rows are pure links; granting creates, revoking deletes.
type GrantService struct {
	db           *gorm.DB
	auditService *AuditService
	invalidator  authz.Invalidator
}

// NewGrantService constructs a GrantService using the provided database handle.
func NewGrantService(db *gorm.DB, audit *AuditService, inv authz.Invalidator) (*GrantService, error) {
	if db == nil {
		return nil, errors.New("grant service: db is required")
	}
	return &GrantService{
		db:           db,
		auditService: audit,
		invalidator:  inv,
	}, nil
}

// GrantToRole links a permission to a role.
func (s *GrantService) GrantToRole(ctx context.Context, roleID, permissionID uint) (*models.RolePermission, error) {
	ctx = ensureContext(ctx)

	if err := s.ensureRole(ctx, roleID); err != nil {
		return nil, err
	}
	if err := s.ensurePermission(ctx, permissionID); err != nil {
		return nil, err
	}

	grant := &models.RolePermission{RoleID: roleID, PermissionID: permissionID}
	if err := s.db.WithContext(ctx).Create(grant).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("role already holds this permission")
		}
		return nil, fmt.Errorf("grant service: create role grant: %w", err)
	}

	s.audit(ctx, "grant.role.create", roleID, permissionID)
	invalidate(s.invalidator)
	return grant, nil
}

// RevokeFromRole removes a role-permission link.
func (s *GrantService) RevokeFromRole(ctx context.Context, roleID, permissionID uint) error {
	ctx = ensureContext(ctx)

	res := s.db.WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Delete(&models.RolePermission{})
	if res.Error != nil {
		return fmt.Errorf("grant service: delete role grant: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	s.audit(ctx, "grant.role.revoke", roleID, permissionID)
	invalidate(s.invalidator)
	return nil
}

// GrantToUser links a permission directly to a user, independent of roles.
func (s *GrantService) GrantToUser(ctx context.Context, userID, permissionID uint) (*models.UserPermission, error) {
	ctx = ensureContext(ctx)

	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.ensurePermission(ctx, permissionID); err != nil {
		return nil, err
	}

	grant := &models.UserPermission{UserID: userID, PermissionID: permissionID}
	if err := s.db.WithContext(ctx).Create(grant).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("user already holds this permission")
		}
		return nil, fmt.Errorf("grant service: create user grant: %w", err)
	}

	s.audit(ctx, "grant.user.create", userID, permissionID)
	invalidate(s.invalidator)
	return grant, nil
}

// RevokeFromUser removes a direct user-permission link.
func (s *GrantService) RevokeFromUser(ctx context.Context, userID, permissionID uint) error {
	ctx = ensureContext(ctx)

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND permission_id = ?", userID, permissionID).
		Delete(&models.UserPermission{})
	if res.Error != nil {
		return fmt.Errorf("grant service: delete user grant: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	s.audit(ctx, "grant.user.revoke", userID, permissionID)
	invalidate(s.invalidator)
	return nil
}

// RolePermissions returns the permissions granted to a role.
func (s *GrantService) RolePermissions(ctx context.Context, roleID uint) ([]models.Permission, error) {
	ctx = ensureContext(ctx)

	if err := s.ensureRole(ctx, roleID); err != nil {
		return nil, err
	}

	var perms []models.Permission
	if err := s.db.WithContext(ctx).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.id").
		Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("grant service: list role permissions: %w", err)
	}
	return perms, nil
}

// UserPermissions returns the permissions granted directly to a user. Role
// inherited permissions are not included; the resolver unions both paths.
func (s *GrantService) UserPermissions(ctx context.Context, userID uint) ([]models.Permission, error) {
	ctx = ensureContext(ctx)

	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	var perms []models.Permission
	if err := s.db.WithContext(ctx).
		Joins("JOIN user_permissions ON user_permissions.permission_id = permissions.id").
		Where("user_permissions.user_id = ?", userID).
		Order("permissions.id").
		Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("grant service: list user permissions: %w", err)
	}
	return perms, nil
}

// PermissionRoles returns every role holding the given permission.
func (s *GrantService) PermissionRoles(ctx context.Context, permissionID uint) ([]models.Role, error) {
	ctx = ensureContext(ctx)

	if err := s.ensurePermission(ctx, permissionID); err != nil {
		return nil, err
	}

	var roles []models.Role
	if err := s.db.WithContext(ctx).
		Joins("JOIN role_permissions ON role_permissions.role_id = roles.id").
		Where("role_permissions.permission_id = ?", permissionID).
		Order("roles.id").
		Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("grant service: list permission roles: %w", err)
	}
	return roles, nil
}

// PermissionUsers returns every user holding the given permission directly.
func (s *GrantService) PermissionUsers(ctx context.Context, permissionID uint) ([]models.User, error) {
	ctx = ensureContext(ctx)

	if err := s.ensurePermission(ctx, permissionID); err != nil {
		return nil, err
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Joins("JOIN user_permissions ON user_permissions.user_id = users.id").
		Where("user_permissions.permission_id = ?", permissionID).
		Order("users.id").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("grant service: list permission users: %w", err)
	}
	return users, nil
}

func (s *GrantService) ensureRole(ctx context.Context, id uint) error {
	return s.ensureExists(ctx, &models.Role{}, id, "role")
}

func (s *GrantService) ensureUser(ctx context.Context, id uint) error {
	return s.ensureExists(ctx, &models.User{}, id, "user")
}

func (s *GrantService) ensurePermission(ctx context.Context, id uint) error {
	return s.ensureExists(ctx, &models.Permission{}, id, "permission")
}

func (s *GrantService) ensureExists(ctx context.Context, model any, id uint, kind string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("grant service: check %s: %w", kind, err)
	}
	if count == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *GrantService) audit(ctx context.Context, action string, subjectID, permissionID uint) {
	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   action,
		Resource: fmt.Sprintf("%d", subjectID),
		Result:   "success",
		Metadata: map[string]any{"permission_id": permissionID},
	})
}
