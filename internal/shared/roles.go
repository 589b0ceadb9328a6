package shared

import "strings"

// Role is one of the fixed staff roles issued by the backend at login.
type Role string

// Known roles.
const (
	RoleCEO            Role = "CEO"
	RoleAdminIT        Role = "ADMIN_IT"
	RoleOrderStaff     Role = "ORDER_STAFF"
	RoleWarehouseStaff Role = "WAREHOUSE_STAFF"
	RoleShippingStaff  Role = "SHIPPING_STAFF"
	RoleManager        Role = "MANAGER"
	RoleAdmin          Role = "ADMIN"
)

var validRoles = map[Role]struct{}{
	RoleCEO:            {},
	RoleAdminIT:        {},
	RoleOrderStaff:     {},
	RoleWarehouseStaff: {},
	RoleShippingStaff:  {},
	RoleManager:        {},
	RoleAdmin:          {},
}

// Roles lists every valid role in display order.
func Roles() []Role {
	return []Role{RoleCEO, RoleAdminIT, RoleOrderStaff, RoleWarehouseStaff, RoleShippingStaff, RoleManager, RoleAdmin}
}

// Valid reports whether r is a member of the fixed role set. Matching is exact.
func (r Role) Valid() bool {
	_, ok := validRoles[r]
	return ok
}

// ParseRole returns the role for raw when it is a known role name.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.TrimSpace(raw))
	if !role.Valid() {
		return "", false
	}
	return role, true
}

func (r Role) String() string {
	return string(r)
}
