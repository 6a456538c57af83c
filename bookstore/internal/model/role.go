package model

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type Capability string

const (
	CapManageUsers   Capability = "manage-users"
	CapManageCatalog Capability = "manage-catalog"
	CapViewAnalytics Capability = "view-analytics"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin: {CapManageUsers, CapManageCatalog, CapViewAnalytics},
	RoleUser:  nil,
}

// Can reports whether the role grants c. Unknown roles grant nothing.
func (r Role) Can(c Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}
