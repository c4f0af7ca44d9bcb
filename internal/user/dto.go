// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// UpdateUserRequest is a partial update. Role and IsActive are honoured for
// admins only.
type UpdateUserRequest struct {
	Username  *string `json:"username,omitempty"  validate:"omitempty,min=3,max=30,username"`
	Email     *string `json:"email,omitempty"     validate:"omitempty,email,max=255"`
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,max=50"`
	LastName  *string `json:"lastName,omitempty"  validate:"omitempty,max=50"`
	Role      *string `json:"role,omitempty"      validate:"omitempty,oneof=user admin"`
	IsActive  *bool   `json:"isActive,omitempty"`
}

func (r UpdateUserRequest) touchesPrivileges() bool {
	return r.Role != nil || r.IsActive != nil
}

type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ListUsersParams struct {
	Page     int
	Limit    int
	Search   string
	Role     string
	IsActive *bool
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserResponse(&users[i]))
	}
	return responses
}
