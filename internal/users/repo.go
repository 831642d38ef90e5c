package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/repo"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// Repository persists accounts in the users table. Emails are stored lower-cased.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts the account. A taken email surfaces as a unique violation.
func (r *Repository) Create(ctx context.Context, in CreateUserDTO) (*models.User, error) {
	user := in.ToModel()
	if err := r.DB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return repo.Take[models.User](r.DB(ctx).Where("email = ?", NormalizeEmail(email)))
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return repo.Take[models.User](r.DB(ctx).Where("id = ?", id))
}

// RecordLogin stamps last_login_at. A non-empty rehash replaces the stored
// password hash in the same statement.
func (r *Repository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time, rehash string) error {
	updates := map[string]any{"last_login_at": at}
	if rehash != "" {
		updates["password_hash"] = rehash
	}
	return repo.Touched(r.DB(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates))
}
