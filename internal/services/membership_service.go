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

// MembershipService manages which roles a user holds.
type MembershipService struct {
	db           *gorm.DB
	auditService *AuditService
	invalidator  authz.Invalidator
}

// NewMembershipService constructs a MembershipService using the provided database handle.
func NewMembershipService(db *gorm.DB, audit *AuditService, inv authz.Invalidator) (*MembershipService, error) {
	if db == nil {
		return nil, errors.New("membership service: db is required")
	}
	return &MembershipService{
		db:           db,
		auditService: audit,
		invalidator:  inv,
	}, nil
}

// AddMember puts a user into a role.
func (s *MembershipService) AddMember(ctx context.Context, userID, roleID uint) (*models.UserRole, error) {
	ctx = ensureContext(ctx)

	if err := s.ensureExists(ctx, &models.User{}, userID, "user"); err != nil {
		return nil, err
	}
	if err := s.ensureExists(ctx, &models.Role{}, roleID, "role"); err != nil {
		return nil, err
	}

	membership := &models.UserRole{UserID: userID, RoleID: roleID}
	if err := s.db.WithContext(ctx).Create(membership).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("user already holds this role")
		}
		return nil, fmt.Errorf("membership service: create membership: %w", err)
	}

	s.audit(ctx, "membership.add", userID, roleID)
	invalidate(s.invalidator)
	return membership, nil
}

// RemoveMember takes a user out of a role.
func (s *MembershipService) RemoveMember(ctx context.Context, userID, roleID uint) error {
	ctx = ensureContext(ctx)

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&models.UserRole{})
	if res.Error != nil {
		return fmt.Errorf("membership service: delete membership: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	s.audit(ctx, "membership.remove", userID, roleID)
	invalidate(s.invalidator)
	return nil
}

// UserRoles returns the roles a user holds.
func (s *MembershipService) UserRoles(ctx context.Context, userID uint) ([]models.Role, error) {
	ctx = ensureContext(ctx)

	if err := s.ensureExists(ctx, &models.User{}, userID, "user"); err != nil {
		return nil, err
	}

	var roles []models.Role
	if err := s.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.id").
		Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("membership service: list user roles: %w", err)
	}
	return roles, nil
}

// RoleMembers returns the users holding a role.
func (s *MembershipService) RoleMembers(ctx context.Context, roleID uint) ([]models.User, error) {
	ctx = ensureContext(ctx)

	if err := s.ensureExists(ctx, &models.Role{}, roleID, "role"); err != nil {
		return nil, err
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Where("user_roles.role_id = ?", roleID).
		Order("users.id").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("membership service: list role members: %w", err)
	}
	return users, nil
}

func (s *MembershipService) ensureExists(ctx context.Context, model any, id uint, kind string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("membership service: check %s: %w", kind, err)
	}
	if count == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *MembershipService) audit(ctx context.Context, action string, userID, roleID uint) {
	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   action,
		Resource: fmt.Sprintf("%d", userID),
		Result:   "success",
		Metadata: map[string]any{"role_id": roleID},
	})
}
