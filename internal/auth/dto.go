package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/internal/users"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest contains the payload required to open a buyer or seller account.
type RegisterRequest struct {
	Name     string         `json:"name" validate:"required,min=2"`
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=6"`
	Phone    *string        `json:"phone,omitempty" validate:"omitempty,len=10,numeric"`
	Role     enums.UserRole `json:"role" validate:"required,oneof=buyer seller"`
}

// LoginResponse contains the token and user produced by a successful login or registration.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int64          `json:"expires_in"`
	StoreID     *uuid.UUID     `json:"store_id,omitempty"`
	User        *users.UserDTO `json:"user"`
}
