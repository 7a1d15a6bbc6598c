package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSelfDelete         = errors.New("users cannot delete themselves")
	ErrUnknownRole        = errors.New("unknown role")
)

// Role grants access to API operations.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole accepts role names case-insensitively.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, value)
	}
}

// User is an API account. PasswordHash never leaves the service layer.
type User struct {
	ID           int64  `db:"id"            json:"id"`
	Email        string `db:"email"         json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	Role         Role   `db:"role"          json:"role"`
}

// UserFilter narrows the account list; nil fields are ignored.
type UserFilter struct {
	Email *string `json:"email,omitempty"`
	Role  *Role   `json:"role,omitempty"`
}

// UserPage is a slice of users plus paging metadata.
type UserPage struct {
	Items      []User `json:"items"`
	PageNumber int    `json:"pageNumber"`
	PageSize   int    `json:"pageSize"`
	TotalCount int    `json:"totalCount"`
}
