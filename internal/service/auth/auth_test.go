package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/internal/domain/types"
	"github.com/caronahq/carona-system/pkg/hasher"
	"github.com/caronahq/carona-system/pkg/logger"
	"github.com/caronahq/carona-system/pkg/passhash"
)

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *models.User) error {
	if _, ok := f.users[user.Email]; ok {
		return errors.New("email already registered")
	}
	cp := *user
	f.users[user.Email] = &cp
	return nil
}

func (f *fakeUserRepo) GetUser(_ context.Context, email string) (*models.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) UpdatePasswordHash(_ context.Context, email, hash string) error {
	u, ok := f.users[email]
	if !ok {
		return types.ErrUserNotFound
	}
	u.SetPasswordHash(hash)
	return nil
}

func newTestAuth(t *testing.T) (*AuthService, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo()
	tokens := NewTokenService("test-secret", repo, 24*time.Hour, 15*time.Minute, logger.NewDiscard())
	return NewAuthService(repo, tokens, logger.NewDiscard()), repo
}

func TestRegister(t *testing.T) {
	svc, repo := newTestAuth(t)
	ctx := context.Background()

	req := &models.UserCreateRequest{
		Name:     "Maria",
		Email:    "maria@uni.br",
		Role:     types.RoleBoth,
		Password: "segredo123",
	}
	if err := svc.Register(ctx, req); err != nil {
		t.Fatalf("Register: %v", err)
	}

	u := repo.users["maria@uni.br"]
	if u == nil {
		t.Fatal("user not stored")
	}
	if u.GetPasswordHash() == "segredo123" || !passhash.IsEncoded(u.GetPasswordHash()) {
		t.Errorf("password not stored as an encoded hash")
	}

	if err := svc.Register(ctx, req); !errors.Is(err, ErrNotUniqueEmail) {
		t.Errorf("duplicate register err = %v, want ErrNotUniqueEmail", err)
	}
}

func TestRegisterRoleRules(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	err := svc.Register(ctx, &models.UserCreateRequest{
		Email: "a@uni.br", Role: types.RoleAdmin, Password: "x",
	})
	if !errors.Is(err, ErrCannotCreateAdmin) {
		t.Errorf("admin register err = %v, want ErrCannotCreateAdmin", err)
	}

	err = svc.Register(ctx, &models.UserCreateRequest{
		Email: "b@uni.br", Role: "Pilot", Password: "x",
	})
	if !errors.Is(err, ErrInvalidRole) {
		t.Errorf("unknown role err = %v, want ErrInvalidRole", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	if err := svc.Register(ctx, &models.UserCreateRequest{
		Name: "João", Email: "joao@uni.br", Role: types.RoleDriver, Password: "senha-forte",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	pair, err := svc.Login(ctx, "joao@uni.br", "senha-forte")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty token pair: %+v", pair)
	}

	if _, err := svc.Login(ctx, "joao@uni.br", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody@uni.br", "x"); !errors.Is(err, ErrUserWithEmailNotFound) {
		t.Errorf("unknown user err = %v, want ErrUserWithEmailNotFound", err)
	}
}

func TestLoginLegacyDigestUpgrades(t *testing.T) {
	svc, repo := newTestAuth(t)
	ctx := context.Background()

	// Migrated account: only a bare SHA-256 digest of the password.
	legacy := &models.User{Email: "old@uni.br", Name: "Old", Role: types.RolePassenger}
	legacy.SetPasswordHash(hasher.Hash("senha-antiga"))
	repo.users["old@uni.br"] = legacy

	if _, err := svc.Login(ctx, "old@uni.br", "senha-antiga"); err != nil {
		t.Fatalf("legacy login: %v", err)
	}

	upgraded := repo.users["old@uni.br"].GetPasswordHash()
	if !passhash.IsEncoded(upgraded) {
		t.Errorf("stored hash not upgraded after legacy login: %q", upgraded)
	}

	// The upgraded hash must keep working.
	if _, err := svc.Login(ctx, "old@uni.br", "senha-antiga"); err != nil {
		t.Fatalf("login after upgrade: %v", err)
	}
	if _, err := svc.Login(ctx, "old@uni.br", "errada"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password after upgrade err = %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	if err := svc.Register(ctx, &models.UserCreateRequest{
		Name: "Ana", Email: "ana@uni.br", Role: types.RoleBoth, Password: "segredo",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	pair, err := svc.Login(ctx, "ana@uni.br", "segredo")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	user, err := svc.Authenticate(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.Email != "ana@uni.br" || user.Role != types.RoleBoth {
		t.Errorf("authenticated user = %+v", user)
	}

	// A refresh token does not open the door.
	if _, err := svc.Authenticate(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh-as-access err = %v, want ErrInvalidToken", err)
	}
	if _, err := svc.Authenticate(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token err = %v, want ErrInvalidToken", err)
	}
}

func TestRefresh(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	if err := svc.Register(ctx, &models.UserCreateRequest{
		Name: "Ana", Email: "ana@uni.br", Role: types.RoleBoth, Password: "segredo",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	pair, err := svc.Login(ctx, "ana@uni.br", "segredo")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	fresh, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := svc.Authenticate(ctx, fresh.AccessToken); err != nil {
		t.Errorf("refreshed access token rejected: %v", err)
	}

	// An access token cannot be used to refresh.
	if _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access-as-refresh err = %v, want ErrInvalidToken", err)
	}
}
