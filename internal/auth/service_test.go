package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/users"
	pkgAuth "github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/security"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "bazaar",
	ExpirationMinutes: 30,
}

var testPassword = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestServiceLoginSellerCarriesStore(t *testing.T) {
	password := "seller-secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "seller@example.com",
		PasswordHash: mustHashPassword(t, password),
		Name:         "Seller",
		Role:         enums.UserRoleSeller,
		IsActive:     true,
	}
	store := &models.Store{ID: uuid.New(), OwnerID: user.ID}
	repo := newStubUserRepo(user)
	svc := buildTestService(t, repo, stubStoreLookup{store: store})

	resp, err := svc.Login(context.Background(), LoginRequest{Email: " Seller@Example.com ", Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleSeller {
		t.Fatalf("expected seller role claim, got %s", claims.Role)
	}
	if claims.StoreID == nil || *claims.StoreID != store.ID {
		t.Fatalf("expected store id claim")
	}
	if resp.TokenType != "Bearer" || resp.ExpiresIn != 1800 {
		t.Fatalf("unexpected token metadata %+v", resp)
	}
	if repo.lastLogin.IsZero() {
		t.Fatalf("expected last login to be recorded")
	}
	if repo.rehash != "" {
		t.Fatalf("current hash should not be replaced")
	}
}

func TestServiceLoginUpgradesStaleHash(t *testing.T) {
	weaker := testPassword
	weaker.ArgonTime = 2
	old, err := security.NewHasher(weaker).Hash("buyer-secret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        "old@example.com",
		PasswordHash: old,
		Role:         enums.UserRoleBuyer,
		IsActive:     true,
	}
	repo := newStubUserRepo(user)
	svc := buildTestService(t, repo, stubStoreLookup{})

	if _, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "buyer-secret"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if repo.rehash == "" || repo.rehash == old {
		t.Fatalf("expected a fresh hash on login")
	}
	ok, stale, err := security.NewHasher(testPassword).Verify("buyer-secret", repo.rehash)
	if err != nil || !ok || stale {
		t.Fatalf("rehash should verify under current params: ok=%v stale=%v err=%v", ok, stale, err)
	}
}

func TestServiceLoginBuyerWithoutStore(t *testing.T) {
	password := "buyer-secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "buyer@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleBuyer,
		IsActive:     true,
	}
	svc := buildTestService(t, newStubUserRepo(user), stubStoreLookup{})

	resp, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.StoreID != nil {
		t.Fatalf("buyer should not carry a store id")
	}
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "buyer@example.com",
		PasswordHash: mustHashPassword(t, "right-password"),
		Role:         enums.UserRoleBuyer,
		IsActive:     true,
	}
	inactive := &models.User{
		ID:           uuid.New(),
		Email:        "gone@example.com",
		PasswordHash: mustHashPassword(t, "right-password"),
		Role:         enums.UserRoleBuyer,
		IsActive:     false,
	}
	svc := buildTestService(t, newStubUserRepo(user, inactive), stubStoreLookup{})

	cases := []LoginRequest{
		{Email: user.Email, Password: "wrong-password"},
		{Email: "missing@example.com", Password: "right-password"},
		{Email: " ", Password: "right-password"},
		{Email: inactive.Email, Password: "right-password"},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req)
		if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("login %q: expected unauthorized, got %v", req.Email, err)
		}
	}
}

func TestServiceRegister(t *testing.T) {
	repo := newStubUserRepo()
	svc := buildTestService(t, repo, stubStoreLookup{})

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Asha",
		Email:    "Asha@Example.com",
		Password: "secret1",
		Role:     enums.UserRoleBuyer,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Email != "asha@example.com" {
		t.Fatalf("expected normalized email, got %s", resp.User.Email)
	}
	stored := repo.byEmail["asha@example.com"]
	if stored == nil || stored.PasswordHash == "secret1" {
		t.Fatalf("expected hashed password to be stored")
	}

	_, err = svc.Register(context.Background(), RegisterRequest{
		Name:     "Asha Again",
		Email:    "asha@example.com",
		Password: "secret1",
		Role:     enums.UserRoleBuyer,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
}

func TestServiceRegisterValidation(t *testing.T) {
	svc := buildTestService(t, newStubUserRepo(), stubStoreLookup{})
	cases := map[string]RegisterRequest{
		"admin role":     {Name: "Ad", Email: "a@x.io", Password: "secret1", Role: enums.UserRoleAdmin},
		"short password": {Name: "Ab", Email: "b@x.io", Password: "123", Role: enums.UserRoleBuyer},
		"short name":     {Name: "A", Email: "c@x.io", Password: "secret1", Role: enums.UserRoleSeller},
	}
	for name, req := range cases {
		if _, err := svc.Register(context.Background(), req); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func buildTestService(t *testing.T, repo *stubUserRepo, stores stubStoreLookup) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		StoreRepo:      stores,
		JWTConfig:      testJWT,
		PasswordConfig: testPassword,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.NewHasher(testPassword).Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	byEmail   map[string]*models.User
	lastLogin time.Time
	rehash    string
}

func newStubUserRepo(seed ...*models.User) *stubUserRepo {
	repo := &stubUserRepo{byEmail: map[string]*models.User{}}
	for _, u := range seed {
		repo.byEmail[u.Email] = u
	}
	return repo
}

func (s *stubUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	s.byEmail[user.Email] = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time, rehash string) error {
	s.lastLogin = at
	s.rehash = rehash
	return nil
}

type stubStoreLookup struct {
	store *models.Store
}

func (s stubStoreLookup) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Store, error) {
	if s.store == nil || s.store.OwnerID != ownerID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.store, nil
}
