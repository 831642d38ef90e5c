package stores

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// StoreDTO exposes store data in API responses; the payout reference is reported only as present/absent.
type StoreDTO struct {
	ID               uuid.UUID `json:"id"`
	OwnerID          uuid.UUID `json:"owner_id"`
	Name             string    `json:"name"`
	Description      *string   `json:"description,omitempty"`
	City             string    `json:"city"`
	IsActive         bool      `json:"is_active"`
	PayoutConfigured bool      `json:"payout_configured"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateStoreDTO holds creation-time data for a new store.
type CreateStoreDTO struct {
	OwnerID         uuid.UUID
	Name            string
	Description     *string
	City            string
	PayoutAccountID *string
}

// ToModel converts the DTO into a store model.
func (dto CreateStoreDTO) ToModel() *models.Store {
	return &models.Store{
		ID:              uuid.New(),
		OwnerID:         dto.OwnerID,
		Name:            dto.Name,
		Description:     dto.Description,
		City:            dto.City,
		IsActive:        true,
		PayoutAccountID: dto.PayoutAccountID,
	}
}

// FromModel maps a store model into a DTO.
func FromModel(m *models.Store) *StoreDTO {
	if m == nil {
		return nil
	}
	return &StoreDTO{
		ID:               m.ID,
		OwnerID:          m.OwnerID,
		Name:             m.Name,
		Description:      m.Description,
		City:             m.City,
		IsActive:         m.IsActive,
		PayoutConfigured: m.PayoutAccountID != nil && *m.PayoutAccountID != "",
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
