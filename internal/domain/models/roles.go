// internal/domain/models/roles.go
package models

// Roles stored on User.Role.
const (
	RolePharmacy  = "pharmacy"
	RoleMarketing = "marketing"
	RoleCompany   = "company"
)

// Account statuses stored on User.Status.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Roles lists every role a user document may carry.
var Roles = []string{RolePharmacy, RoleMarketing, RoleCompany}

// IsKnownRole reports whether role is one of Roles.
func IsKnownRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}
