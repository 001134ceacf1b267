package portal

// Role is the closed set of portal roles. Anything outside the set is
// treated as no role at all and denied everywhere.
type Role string

const (
	// RoleAdministrator manages the whole portal
	RoleAdministrator Role = "admin"
	// RoleShopOwner runs a repair shop
	RoleShopOwner Role = "shop_owner"
	// RoleEmployee works at a repair shop
	RoleEmployee Role = "employee"
	// RoleCustomer is a device protection subscriber
	RoleCustomer Role = "customer"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdministrator, RoleShopOwner, RoleEmployee, RoleCustomer:
		return true
	default:
		return false
	}
}

// IsStaff reports whether the role belongs to portal or shop staff
func (r Role) IsStaff() bool {
	switch r {
	case RoleAdministrator, RoleShopOwner, RoleEmployee:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// AllRoles returns all predefined roles
func AllRoles() []Role {
	return []Role{
		RoleAdministrator,
		RoleShopOwner,
		RoleEmployee,
		RoleCustomer,
	}
}

// ParseRole safely parses a string into a Role type
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}

// Authorize reports whether identity may enter a route restricted to the
// allowed roles. An absent identity is always denied; an empty allowed
// set only requires authentication.
func Authorize(identity *Identity, allowed ...Role) bool {
	if identity == nil {
		return false
	}

	if len(allowed) == 0 {
		return true
	}

	for _, role := range allowed {
		if identity.Role == role {
			return true
		}
	}

	return false
}
