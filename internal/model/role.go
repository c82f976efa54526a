package model

// Role is the internal role tag assigned to a user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleDirector Role = "director"
	RoleTeacher  Role = "teacher"
	RoleStudent  Role = "student"
)

// RolePriority orders roles from highest to lowest. When a provider record
// belongs to several role groups at once, the first matching role wins.
var RolePriority = []Role{RoleAdmin, RoleManager, RoleDirector, RoleTeacher, RoleStudent}

// DataRoles lists the roles that carry a satellite profile table.
// Admin accounts have no profile row.
var DataRoles = []Role{RoleManager, RoleDirector, RoleTeacher, RoleStudent}

// HasProfile reports whether the role carries a satellite profile table.
func (r Role) HasProfile() bool {
	switch r {
	case RoleManager, RoleDirector, RoleTeacher, RoleStudent:
		return true
	}
	return false
}
