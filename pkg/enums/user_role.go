package enums

// UserRole is the marketplace wide role carried in access tokens.
type UserRole string

const (
	UserRoleBuyer  UserRole = "buyer"
	UserRoleSeller UserRole = "seller"
	UserRoleAdmin  UserRole = "admin"
)

var userRoles = newSet("user role", UserRoleBuyer, UserRoleSeller, UserRoleAdmin)

func (r UserRole) String() string { return string(r) }
func (r UserRole) IsValid() bool  { return userRoles.has(r) }

func ParseUserRole(value string) (UserRole, error) {
	return userRoles.parse(value)
}
