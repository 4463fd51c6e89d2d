package models

import "fmt"

// EntitySet identifies a protected resource collection. The set of values is
// closed: adding a new entity set means adding a constant here and a row in
// entitySetTables, which keeps the set-to-relation mapping checked at compile
// time instead of threading free-form strings through queries.
type EntitySet string

const (
	EntitySetUser           EntitySet = "user"
	EntitySetRole           EntitySet = "role"
	EntitySetPermission     EntitySet = "permission"
	EntitySetUserRole       EntitySet = "user_role"
	EntitySetRolePermission EntitySet = "role_permission"
	EntitySetUserPermission EntitySet = "user_permission"
)

var entitySetTables = map[EntitySet]string{
	EntitySetUser:           "users",
	EntitySetRole:           "roles",
	EntitySetPermission:     "permissions",
	EntitySetUserRole:       "user_roles",
	EntitySetRolePermission: "role_permissions",
	EntitySetUserPermission: "user_permissions",
}

// EntitySets returns all registered entity sets in declaration order.
func EntitySets() []EntitySet {
	return []EntitySet{
		EntitySetUser,
		EntitySetRole,
		EntitySetPermission,
		EntitySetUserRole,
		EntitySetRolePermission,
		EntitySetUserPermission,
	}
}

// ParseEntitySet converts a route or payload string into an EntitySet.
func ParseEntitySet(value string) (EntitySet, error) {
	set := EntitySet(value)
	if !set.Valid() {
		return "", fmt.Errorf("unknown entity set %q", value)
	}
	return set, nil
}

// Valid reports whether the entity set is registered.
func (s EntitySet) Valid() bool {
	_, ok := entitySetTables[s]
	return ok
}

// Table returns the storage relation backing the entity set.
func (s EntitySet) Table() string {
	return entitySetTables[s]
}

func (s EntitySet) String() string {
	return string(s)
}
