package stores

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/repo"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// Repository persists storefronts. Each seller owns at most one.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts the store. A second store for the same owner is a unique
// violation on owner_id.
func (r *Repository) Create(ctx context.Context, dto CreateStoreDTO) (*models.Store, error) {
	store := dto.ToModel()
	if err := r.DB(ctx).Create(store).Error; err != nil {
		return nil, err
	}
	return store, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	return repo.Take[models.Store](r.DB(ctx).Where("id = ?", id))
}

func (r *Repository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Store, error) {
	return repo.Take[models.Store](r.DB(ctx).Where("owner_id = ?", ownerID))
}

// Update writes every column of store back to its row.
func (r *Repository) Update(ctx context.Context, store *models.Store) error {
	if store == nil || store.ID == uuid.Nil {
		return errors.New("store with id required")
	}
	return repo.Touched(r.DB(ctx).Model(store).Select("*").Omit("id", "owner_id", "created_at").Updates(store))
}
