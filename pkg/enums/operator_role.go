package enums

// OperatorRole scopes what a console operator may see.
type OperatorRole string

const (
	OperatorRoleVendor OperatorRole = "vendor"
	OperatorRoleAgent  OperatorRole = "agent"
	OperatorRoleAdmin  OperatorRole = "admin"
)

var validOperatorRoles = []OperatorRole{
	OperatorRoleVendor,
	OperatorRoleAgent,
	OperatorRoleAdmin,
}

// IsValid reports whether the value is a known OperatorRole.
func (r OperatorRole) IsValid() bool {
	return member(validOperatorRoles, r)
}

// ParseOperatorRole converts raw input into an OperatorRole.
func ParseOperatorRole(value string) (OperatorRole, error) {
	return parse(validOperatorRoles, "operator role", value)
}
