package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents a technician role. Installers and mechanics submit records;
// admins manage users and imports.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleMechanic  Role = "mechanic"
	RoleInstaller Role = "installer"
)

// Permissions checked by the HTTP middleware.
const (
	PermSubmitRecord  = "submit_record"
	PermViewRecords   = "view_records"
	PermViewSummaries = "view_summaries"
	PermImportRecords = "import_records"
	PermManageUsers   = "manage_users"
)

// User represents a technician account
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	DisplayName  string             `bson:"display_name" json:"display_name"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	LastLogin    *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	Exp         int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleMechanic, RoleInstaller:
		return true
	default:
		return false
	}
}

// IsSubmitterRole reports whether the role may appear on a maintenance record.
func IsSubmitterRole(role Role) bool {
	return role == RoleMechanic || role == RoleInstaller
}

// HasPermission checks if a user has permission for a specific action
func (u *User) HasPermission(action string) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleMechanic:
		return action == PermSubmitRecord || action == PermViewRecords || action == PermViewSummaries
	case RoleInstaller:
		return action == PermSubmitRecord || action == PermViewRecords
	default:
		return false
	}
}
