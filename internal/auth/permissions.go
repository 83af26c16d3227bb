package auth

import "strings"

// Resource describes the object a permission question is asked about.
// OwnerEmail, when set, grants the matching identity view rights on its own
// records (a registrant looking at their own confirmation).
type Resource struct {
	Kind       string
	OwnerEmail string
	Public     bool
}

// Oracle answers view/change questions before any confirmation-revealing or
// mutating operation. Implementations must be safe for concurrent use.
type Oracle interface {
	CanView(identity Identity, resource Resource) bool
	CanChange(identity Identity, resource Resource) bool
}

// RoleOracle is the default permission oracle: admins may do anything,
// organizers may change events, and owners may view their own records.
type RoleOracle struct{}

func NewRoleOracle() RoleOracle {
	return RoleOracle{}
}

func (RoleOracle) CanView(identity Identity, resource Resource) bool {
	if resource.Public {
		return true
	}
	if IsAdmin(identity.Role) {
		return true
	}
	if HasRole(identity.Role, RoleOrganizer) {
		return true
	}
	if resource.OwnerEmail != "" && identity.Authenticated &&
		strings.EqualFold(identity.Email, resource.OwnerEmail) {
		return true
	}
	return false
}

func (RoleOracle) CanChange(identity Identity, resource Resource) bool {
	if !identity.Authenticated {
		return false
	}
	if IsAdmin(identity.Role) {
		return true
	}
	return HasRole(identity.Role, RoleOrganizer)
}
