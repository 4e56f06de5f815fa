package domain

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// BaselineRoles are the role names the seeder guarantees exist before the
// service accepts traffic.
var BaselineRoles = []string{RoleAdmin, RoleUser}

type User struct {
	UserID         string    `json:"id" dynamodbav:"user_id"`
	Email          string    `json:"email" dynamodbav:"email"`
	Phone          *string   `json:"phone,omitempty" dynamodbav:"phone"`
	PasswordHash   string    `json:"-" dynamodbav:"password_hash"`
	Role           string    `json:"role" dynamodbav:"role"`
	EmailConfirmed bool      `json:"email_confirmed" dynamodbav:"email_confirmed"`
	Enable         bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

// RegisterRequest carries no role: self-registration always yields the user
// role, and promotion goes through the admin role-assignment endpoint.
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,max=72"`
	Phone    *string `json:"phone"`
}
