package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of principal roles. Storage keeps a small integer;
// the mapping is total and unknown values are rejected rather than defaulted.
type Role int32

const (
	RoleAdmin     Role = 1
	RoleModerator Role = 2
	RoleUser      Role = 3
)

func RoleFromInt(v int32) (Role, error) {
	switch Role(v) {
	case RoleAdmin, RoleModerator, RoleUser:
		return Role(v), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownRole, v)
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleModerator:
		return "moderator"
	case RoleUser:
		return "user"
	default:
		return "unknown"
	}
}

// User is the durable identity record. The auth core only reads it and
// updates the OTP fields; creation and deletion happen through the admin
// and registration flows.
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Mobile       string     `json:"mobile"`
	Email        *string    `json:"email,omitempty"`
	Gender       *string    `json:"gender,omitempty"`
	RoleID       int32      `json:"role_id"`
	Active       bool       `json:"active"`
	Protected    bool       `json:"protected"`
	OTPCode      *string    `json:"-"`
	OTPExpiresAt *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) Role() (Role, error) {
	return RoleFromInt(u.RoleID)
}

// AuthUser is the sanitized identity attached to the request context after
// the auth interceptor runs. It carries no OTP fields and no secrets.
type AuthUser struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Mobile    string  `json:"mobile"`
	Email     *string `json:"email,omitempty"`
	Gender    *string `json:"gender,omitempty"`
	Role      string  `json:"role"`
	Active    bool    `json:"active"`
	Protected bool    `json:"protected"`
}

// NewAuthUser builds the sanitized view. A role id outside the closed set is
// a data-integrity error.
func NewAuthUser(u *User) (*AuthUser, error) {
	role, err := u.Role()
	if err != nil {
		return nil, err
	}
	return &AuthUser{
		ID:        u.ID,
		Name:      u.Name,
		Mobile:    u.Mobile,
		Email:     u.Email,
		Gender:    u.Gender,
		Role:      role.String(),
		Active:    u.Active,
		Protected: u.Protected,
	}, nil
}

// CreateUserRequest carries registration input.
type CreateUserRequest struct {
	Name   string  `json:"name"`
	Mobile string  `json:"mobile"`
	Email  *string `json:"email,omitempty"`
	Gender *string `json:"gender,omitempty"`
}

// UpdateProfileRequest carries a principal's own profile update.
type UpdateProfileRequest struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Gender *string `json:"gender,omitempty"`
}

// UpdateUserRequest carries an admin-side user update.
type UpdateUserRequest struct {
	Name   *string `json:"name,omitempty"`
	RoleID *int32  `json:"role_id,omitempty"`
	Active *bool   `json:"active,omitempty"`
}
