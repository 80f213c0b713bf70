// Package roles defines the tenant-scoped role labels held by members.
//
// Roles are an open set: any string is a valid Role value, and values
// without permission rows simply resolve to deny.
package roles

import "strings"

// Role is the label on a (principal, organization) membership.
type Role string

const (
	Owner        Role = "owner"
	Admin        Role = "admin"
	Manager      Role = "manager"
	Investigator Role = "investigator"
	Vendor       Role = "vendor"
)

// Parse normalizes a raw role value. It returns false for blank input only;
// unrecognized roles are kept as-is.
func Parse(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if r == "" {
		return "", false
	}

	return r, true
}

func (r Role) String() string {
	return string(r)
}

// Set is a lookup set of roles.
type Set map[Role]struct{}

// NewSet builds a set from role names, skipping blank values.
func NewSet(values ...string) Set {
	set := make(Set, len(values))

	for _, v := range values {
		if r, ok := Parse(v); ok {
			set[r] = struct{}{}
		}
	}

	return set
}

func (s Set) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}

// DefaultRelationshipScoped is the set of roles whose case visibility is
// decided by relationship rows rather than plain membership.
func DefaultRelationshipScoped() Set {
	return NewSet(string(Vendor))
}
