package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// AccessTokenPayload is what the login flow knows about the caller. StoreID
// is set for sellers that already opened a store.
type AccessTokenPayload struct {
	UserID  uuid.UUID
	Role    enums.UserRole
	StoreID *uuid.UUID
	JTI     string
}

func (p AccessTokenPayload) validate() error {
	if p.UserID == uuid.Nil {
		return errors.New("user id is required")
	}
	if !p.Role.IsValid() {
		return fmt.Errorf("invalid user role %q", p.Role)
	}
	return nil
}

// AccessTokenClaims is the JWT body handed to clients.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID  uuid.UUID      `json:"user_id"`
	Role    enums.UserRole `json:"role"`
	StoreID *uuid.UUID     `json:"store_id,omitempty"`
}
