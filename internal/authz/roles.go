package authz

// Role ids, ascending by privilege. Stored on the user row and carried in
// the JWT.
const (
	RoleSales      = 10
	RoleOperations = 20
	RoleAudit      = 30
	RoleManagement = 40
	RoleAdmin      = 50
)

// IsElevated: may see and touch records owned by other users.
func IsElevated(roleID int) bool {
	return roleID == RoleOperations || roleID == RoleManagement || roleID == RoleAdmin
}

// IsReadOnly: audit sees everything, changes nothing.
func IsReadOnly(roleID int) bool {
	return roleID == RoleAudit
}
