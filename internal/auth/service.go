package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/users"
	pkgAuth "github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	dbpkg "github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

type service struct {
	users  userRepository
	stores storeLookup
	jwtCfg config.JWTConfig
	hasher *security.Hasher
	clock  func() time.Time
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time, rehash string) error
}

type storeLookup interface {
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Store, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	StoreRepo      storeLookup
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Clock          func() time.Time
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.StoreRepo == nil {
		return nil, fmt.Errorf("store repository is required")
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		users:  params.UserRepo,
		stores: params.StoreRepo,
		jwtCfg: params.JWTConfig,
		hasher: security.NewHasher(params.PasswordConfig),
		clock:  clock,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(req.Name)
	if len([]rune(name)) < 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must be at least 2 characters long")
	}
	if req.Role != enums.UserRoleBuyer && req.Role != enums.UserRoleSeller {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be either buyer or seller")
	}
	if err := security.CheckPasswordPolicy(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Phone:        req.Phone,
		Role:         req.Role,
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	return s.issue(user, nil, s.clock())
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, rehash, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	if err := s.users.RecordLogin(ctx, user.ID, now, rehash); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	var storeID *uuid.UUID
	if user.Role == enums.UserRoleSeller {
		store, err := s.stores.FindByOwner(ctx, user.ID)
		switch {
		case err == nil:
			id := store.ID
			storeID = &id
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup store")
		}
	}

	return s.issue(user, storeID, now)
}

func (s *service) issue(user *models.User, storeID *uuid.UUID, now time.Time) (*LoginResponse, error) {
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:  user.ID,
		Role:    user.Role,
		StoreID: storeID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &LoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtCfg.TokenTTL().Seconds()),
		StoreID:     storeID,
		User:        users.FromModel(user),
	}, nil
}

// authenticate checks the credentials. rehash is a fresh hash when the stored
// one was made with outdated cost parameters.
func (s *service) authenticate(ctx context.Context, email, password string) (user *models.User, rehash string, err error) {
	normalized := users.NormalizeEmail(email)
	if normalized == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err = s.users.FindByEmail(ctx, normalized)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	ok, stale, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok || !user.IsActive {
		return nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if stale {
		// a failed upgrade keeps the old hash; the next login retries
		if fresh, err := s.hasher.Hash(password); err == nil {
			rehash = fresh
		}
	}
	return user, rehash, nil
}
