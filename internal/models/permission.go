package models

// Permission is one grantable capability, identified by its
// (entity_set, type, entity) tuple. Entity nil marks a set-level permission
// that covers every instance of the set; a non-nil value scopes the
// permission to one instance.
//
// The tuple carries a composite unique index, but most SQL engines treat
// NULLs as distinct in unique indexes, so set-level duplicates are also
// guarded by a lookup inside the catalog's insert transaction.
type Permission struct {
	BaseModel

	EntitySet EntitySet      `gorm:"type:varchar(64);not null;uniqueIndex:idx_permission_tuple,priority:1" json:"entity_set"`
	Type      PermissionType `gorm:"type:varchar(16);not null;uniqueIndex:idx_permission_tuple,priority:2" json:"type"`
	Entity    *int64         `gorm:"uniqueIndex:idx_permission_tuple,priority:3" json:"entity"`

	Roles []Role `gorm:"many2many:role_permissions;" json:"roles,omitempty"`
	Users []User `gorm:"many2many:user_permissions;" json:"users,omitempty"`
}
