package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/auth"
	dbpkg "github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type storeRepository interface {
	Create(ctx context.Context, dto CreateStoreDTO) (*models.Store, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Store, error)
	Update(ctx context.Context, store *models.Store) error
}

// Service exposes store operations.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateStoreInput) (*StoreDTO, error)
	GetMine(ctx context.Context, actor auth.Actor) (*StoreDTO, error)
	Update(ctx context.Context, actor auth.Actor, input UpdateStoreInput) (*StoreDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*StoreDTO, error)
}

type service struct {
	repo storeRepository
}

// NewService builds a store service with the provided repository.
func NewService(repo storeRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	return &service{repo: repo}, nil
}

// CreateStoreInput captures a seller's onboarding payload.
type CreateStoreInput struct {
	Name            string
	Description     *string
	City            string
	PayoutAccountID *string
}

// UpdateStoreInput captures the allowed store fields for mutation.
type UpdateStoreInput struct {
	Name            *string
	Description     *string
	City            *string
	PayoutAccountID *string
	IsActive        *bool
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateStoreInput) (*StoreDTO, error) {
	if !actor.IsSeller() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only sellers can open a store")
	}
	name := strings.TrimSpace(input.Name)
	city := strings.TrimSpace(input.City)
	if name == "" || city == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and city are required")
	}

	store, err := s.repo.Create(ctx, CreateStoreDTO{
		OwnerID:         actor.UserID,
		Name:            name,
		Description:     trimPtr(input.Description),
		City:            city,
		PayoutAccountID: trimPtr(input.PayoutAccountID),
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "seller already has a store")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create store")
	}
	return FromModel(store), nil
}

func (s *service) GetMine(ctx context.Context, actor auth.Actor) (*StoreDTO, error) {
	store, err := s.ownedStore(ctx, actor)
	if err != nil {
		return nil, err
	}
	return FromModel(store), nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, input UpdateStoreInput) (*StoreDTO, error) {
	store, err := s.ownedStore(ctx, actor)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		store.Name = name
	}
	if input.City != nil {
		city := strings.TrimSpace(*input.City)
		if city == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "city cannot be empty")
		}
		store.City = city
	}
	if input.Description != nil {
		store.Description = trimPtr(input.Description)
	}
	if input.PayoutAccountID != nil {
		store.PayoutAccountID = trimPtr(input.PayoutAccountID)
	}
	if input.IsActive != nil {
		store.IsActive = *input.IsActive
	}
	if err := s.repo.Update(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update store")
	}
	return FromModel(store), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*StoreDTO, error) {
	store, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return FromModel(store), nil
}

func (s *service) ownedStore(ctx context.Context, actor auth.Actor) (*models.Store, error) {
	if !actor.IsSeller() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller role required")
	}
	store, err := s.repo.FindByOwner(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return store, nil
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
