package models

import "time"

// UserRole enumerates the closed set of roles known to the access control
// layer. Anything outside this set is denied, never defaulted.
type UserRole string

const (
	RoleAdmin               UserRole = "ADMIN"
	RoleSystemAdmin         UserRole = "SYSTEM_ADMIN"
	RolePrincipal           UserRole = "PRINCIPAL"
	RoleAcademicCoordinator UserRole = "ACADEMIC_COORDINATOR"
	RoleAdmissionDepartment UserRole = "ADMISSION_DEPARTMENT"
	RoleTeacher             UserRole = "TEACHER"
	RoleStudent             UserRole = "STUDENT"
)

// AllRoles lists every recognised role.
var AllRoles = []UserRole{
	RoleAdmin,
	RoleSystemAdmin,
	RolePrincipal,
	RoleAcademicCoordinator,
	RoleAdmissionDepartment,
	RoleTeacher,
	RoleStudent,
}

// Valid reports whether the role belongs to the closed enumeration.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleSystemAdmin, RolePrincipal, RoleAcademicCoordinator,
		RoleAdmissionDepartment, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// User represents an application user stored in the users table. The role is
// immutable after creation; changing it requires deleting and re-provisioning
// the account.
type User struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
