package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbjornsen/grantor/internal/models"
)

// AutoMigrate creates or updates the database schema for all models. Both
// sides of each many2many relation are registered first so gorm persists
// creation timestamps on the composite-key rows instead of generating bare
// join tables from whichever side it migrates last.
func AutoMigrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Role{}, "Permissions", &models.RolePermission{}); err != nil {
		return fmt.Errorf("join table role_permissions: %w", err)
	}
	if err := db.SetupJoinTable(&models.Permission{}, "Roles", &models.RolePermission{}); err != nil {
		return fmt.Errorf("join table role_permissions: %w", err)
	}
	if err := db.SetupJoinTable(&models.User{}, "Roles", &models.UserRole{}); err != nil {
		return fmt.Errorf("join table user_roles: %w", err)
	}
	if err := db.SetupJoinTable(&models.Role{}, "Users", &models.UserRole{}); err != nil {
		return fmt.Errorf("join table user_roles: %w", err)
	}
	if err := db.SetupJoinTable(&models.User{}, "Permissions", &models.UserPermission{}); err != nil {
		return fmt.Errorf("join table user_permissions: %w", err)
	}
	if err := db.SetupJoinTable(&models.Permission{}, "Users", &models.UserPermission{}); err != nil {
		return fmt.Errorf("join table user_permissions: %w", err)
	}

	return db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.RolePermission{},
		&models.UserRole{},
		&models.UserPermission{},
		&models.AuditLog{},
		&models.CacheEntry{},
	)
}

// SeedData provisions the permission catalog for every registered entity set
// and an administrator role holding all set-level permissions. Seeding is
// idempotent so start-up can run it unconditionally.
func SeedData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var seeded []models.Permission
		for _, set := range models.EntitySets() {
			for _, typ := range models.PermissionTypes() {
				perm := models.Permission{EntitySet: set, Type: typ}
				err := tx.Where("entity_set = ? AND type = ? AND entity IS NULL", set, typ).
					FirstOrCreate(&perm).Error
				if err != nil {
					return fmt.Errorf("seed permission %s:%s: %w", set, typ, err)
				}
				seeded = append(seeded, perm)
			}
		}

		admin := models.Role{Name: "admin", Description: "Full access to every entity set"}
		if err := tx.Where(models.Role{Name: admin.Name}).Attrs(admin).FirstOrCreate(&admin).Error; err != nil {
			return fmt.Errorf("seed admin role: %w", err)
		}

		rows := make([]models.RolePermission, 0, len(seeded))
		for _, perm := range seeded {
			rows = append(rows, models.RolePermission{RoleID: admin.ID, PermissionID: perm.ID})
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}
