package models

import "fmt"

// PermissionType enumerates the grantable actions on an entity set.
type PermissionType string

const (
	PermissionCreate PermissionType = "create"
	PermissionRead   PermissionType = "read"
	PermissionUpdate PermissionType = "update"
	PermissionDelete PermissionType = "delete"
	PermissionShare  PermissionType = "share"
)

// PermissionTypes returns every permission type, used for set-level catalog
// generation.
func PermissionTypes() []PermissionType {
	return []PermissionType{
		PermissionCreate,
		PermissionRead,
		PermissionUpdate,
		PermissionDelete,
		PermissionShare,
	}
}

// InstancePermissionTypes returns the types meaningful for a single entity
// instance. Create is set-level only: creating an already-existing instance
// is meaningless.
func InstancePermissionTypes() []PermissionType {
	return []PermissionType{
		PermissionRead,
		PermissionUpdate,
		PermissionDelete,
		PermissionShare,
	}
}

// ParsePermissionType converts a route or payload string into a PermissionType.
func ParsePermissionType(value string) (PermissionType, error) {
	typ := PermissionType(value)
	if !typ.Valid() {
		return "", fmt.Errorf("unknown permission type %q", value)
	}
	return typ, nil
}

// Valid reports whether the permission type is one of the five known actions.
func (t PermissionType) Valid() bool {
	switch t {
	case PermissionCreate, PermissionRead, PermissionUpdate, PermissionDelete, PermissionShare:
		return true
	}
	return false
}

func (t PermissionType) String() string {
	return string(t)
}
