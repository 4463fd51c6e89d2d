package models

import "time"

// RolePermission joins roles to permissions. The composite key is the whole
// identity; rows are created and deleted, never updated.
type RolePermission struct {
	RoleID       uint      `gorm:"primaryKey" json:"role_id"`
	PermissionID uint      `gorm:"primaryKey" json:"permission_id"`
	CreatedAt    time.Time `json:"created_at"`
}
