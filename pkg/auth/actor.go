package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// Actor is the authenticated caller handed to domain services.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) IsBuyer() bool  { return a.Role == enums.UserRoleBuyer }
func (a Actor) IsSeller() bool { return a.Role == enums.UserRoleSeller }
func (a Actor) IsAdmin() bool  { return a.Role == enums.UserRoleAdmin }

// Valid reports whether the actor carries an identity and a known role.
func (a Actor) Valid() bool {
	return a.UserID != uuid.Nil && a.Role.IsValid()
}
