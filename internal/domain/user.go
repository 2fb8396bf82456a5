package domain

import (
	"context"
	"slices"
	"time"
)

// Application roles carried in access tokens.
const (
	RoleAdmin   = "admin"
	RoleCreator = "creator"
	RoleUser    = "user"
)

// User is a registered account. Bookings reference users but never own them.
// swagger:model User
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Principal is the authenticated caller resolved from an access token.
type Principal struct {
	UserID int64
	Email  string
	Role   string
}

// HasRole reports whether the principal holds one of the given roles.
func (p *Principal) HasRole(roles ...string) bool {
	return slices.Contains(roles, p.Role)
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(user *User, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated principal.
type TokenVerifier interface {
	Verify(token string) (*Principal, error)
}

// UserRepository defines the read access the booking engine needs to users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
}
