package models

import "time"

// UserPermission joins users directly to permissions, independent of any role.
type UserPermission struct {
	UserID       uint      `gorm:"primaryKey" json:"user_id"`
	PermissionID uint      `gorm:"primaryKey" json:"permission_id"`
	CreatedAt    time.Time `json:"created_at"`
}
