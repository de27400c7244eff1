package model

// Role is a user's role in the college system.
type Role string

const (
	RoleStudent       Role = "student"
	RoleFaculty       Role = "faculty"
	RoleStaff         Role = "staff"
	RoleAdministrator Role = "administrator"
)

// CanManage reports whether the role may use the assessment management surface.
func (r Role) CanManage() bool {
	return r == RoleAdministrator || r == RoleFaculty || r == RoleStaff
}

// UserStatus enumerates account states.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

// User is an entry of the static user directory.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Role         Role       `json:"role"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Department   string     `json:"department,omitempty"`
	Status       UserStatus `json:"status"`
	PasswordHash string     `json:"-"`
}

// LoginRequest is the payload for the simulated login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,max=128"`
}
