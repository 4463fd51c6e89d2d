package authz

import "strconv"

// Scope selects what a permission query is about: the entity set as a whole,
// or one instance of it. Storage encodes the set level as a NULL entity
// column; Scope keeps that wildcard semantic type-checked instead of passing
// nullable integers around.
type Scope struct {
	entity   int64
	instance bool
}

// SetLevel returns the scope covering the whole entity set. Checking access
// with it asks "does the user hold the set-level grant", not "any entity".
func SetLevel() Scope {
	return Scope{}
}

// Instance returns the scope for a single entity id.
func Instance(id int64) Scope {
	return Scope{entity: id, instance: true}
}

// Entity returns the instance id and true, or false for the set level.
func (s Scope) Entity() (int64, bool) {
	return s.entity, s.instance
}

// IsSetLevel reports whether the scope addresses the whole entity set.
func (s Scope) IsSetLevel() bool {
	return !s.instance
}

func (s Scope) String() string {
	if s.instance {
		return strconv.FormatInt(s.entity, 10)
	}
	return "set"
}
