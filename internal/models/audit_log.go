package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records administrative actions on users, roles, grants and the
// permission catalog.
type AuditLog struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *uint          `gorm:"index" json:"user_id"`
	Action    string         `gorm:"type:varchar(64);not null;index" json:"action"`
	Resource  string         `gorm:"type:varchar(128);index" json:"resource"`
	Result    string         `gorm:"type:varchar(16);not null" json:"result"`
	IPAddress string         `gorm:"type:varchar(45)" json:"ip_address"`
	Metadata  datatypes.JSON `json:"metadata"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}
