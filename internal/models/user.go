package models

// User holds an authenticating principal. Roles reach permissions through
// role_permissions; Permissions are direct grants that bypass roles, used for
// resource-ownership grants such as a user's own account.
type User struct {
	BaseModel

	Name     string `gorm:"not null" json:"name"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	Roles       []Role       `gorm:"many2many:user_roles;" json:"roles,omitempty"`
	Permissions []Permission `gorm:"many2many:user_permissions;" json:"permissions,omitempty"`
}
