package domain

import "time"

// ValidationFlag marks an account as email-verified. It is set once, on the
// first successful code check, and never cleared afterwards.
type ValidationFlag struct {
	ValidationTime int64 `json:"validation_time" dynamodbav:"validation_time"`
}

type User struct {
	UserID     string          `json:"id" dynamodbav:"user_id"`
	Username   string          `json:"username" dynamodbav:"username"`
	Email      string          `json:"email" dynamodbav:"email"`
	FirstName  string          `json:"first_name" dynamodbav:"first_name"`
	LastName   string          `json:"last_name" dynamodbav:"last_name"`
	Nickname   string          `json:"nickname" dynamodbav:"nickname"`
	Validation *ValidationFlag `json:"validation,omitempty" dynamodbav:"validation"`
	Enable     int             `json:"enable" dynamodbav:"enable"`
	CreatedAt  time.Time       `json:"created" dynamodbav:"created_at"`
	UpdatedAt  time.Time       `json:"updated" dynamodbav:"updated_at"`
}

// IsVerified reports whether the account has completed email verification.
func (u *User) IsVerified() bool {
	return u.Validation != nil && u.Validation.ValidationTime > 0
}

// DisplayName returns the name used to address the user in emails:
// first name, falling back to the nickname, falling back to "User".
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Nickname != "" {
		return u.Nickname
	}
	return "User"
}

type CreateUserRequest struct {
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Nickname  string `json:"nickname"`
}
