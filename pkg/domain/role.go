package domain

import dErrors "custodia/pkg/domain-errors"

// Role is a business capability tag granted to an identity. An identity may
// hold several roles at once.
type Role string

// Supported business roles.
const (
	RoleManufacturer  Role = "manufacturer"
	RoleRetailer      Role = "retailer"
	RoleServiceCenter Role = "service_center"
)

// validRoles is the single source of truth for grantable roles.
var validRoles = map[Role]bool{
	RoleManufacturer:  true,
	RoleRetailer:      true,
	RoleServiceCenter: true,
}

// ParseRole constructs a Role from external input.
//
// Errors: returns CodeBadRequest when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid role: "+s)
	}
	return r, nil
}

// IsValid checks that the role is one of the supported business roles.
func (r Role) IsValid() bool {
	return validRoles[r]
}

func (r Role) String() string {
	return string(r)
}

// BusinessRoles returns every grantable role.
func BusinessRoles() []Role {
	return []Role{RoleManufacturer, RoleRetailer, RoleServiceCenter}
}
