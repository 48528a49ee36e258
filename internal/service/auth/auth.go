package auth

import (
	"context"

	"github.com/caronahq/carona-system/internal/domain/models"
	"github.com/caronahq/carona-system/internal/domain/types"
	"github.com/caronahq/carona-system/pkg/hasher"
	"github.com/caronahq/carona-system/pkg/logger"
	wrap "github.com/caronahq/carona-system/pkg/logger/wrapper"
	"github.com/caronahq/carona-system/pkg/passhash"
)

type AuthService struct {
	userRepo     UserRepo
	tokenService TokenProvider
	log          logger.Logger
}

func NewAuthService(userRepo UserRepo, tokenService TokenProvider, log logger.Logger) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		tokenService: tokenService,
		log:          log,
	}
}

// Register creates a new account. The profile role selects what the account
// may do (offer rides, take them, or both); the admin role cannot be
// self-assigned.
func (s *AuthService) Register(ctx context.Context, req *models.UserCreateRequest) error {
	ctx = wrap.WithAction(ctx, "register")

	switch req.Role {
	case types.RoleDriver, types.RolePassenger, types.RoleBoth:
	case types.RoleAdmin:
		return wrap.Error(ctx, ErrCannotCreateAdmin)
	default:
		return wrap.Error(ctx, ErrInvalidRole)
	}

	u, err := s.userRepo.GetUser(ctx, req.Email)
	if err != nil {
		return wrap.Error(ctx, ErrUnexpected)
	}
	if u != nil {
		return wrap.Error(ctx, ErrNotUniqueEmail)
	}

	hashPassword, err := passhash.HashPassword(req.Password)
	if err != nil {
		s.log.Error(ctx, "Failed to generate hash from password", err)
		return wrap.Error(ctx, ErrUnexpected)
	}

	newUser := models.User{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	}
	newUser.SetPasswordHash(hashPassword)

	if err := s.userRepo.CreateUser(ctx, &newUser); err != nil {
		s.log.Error(ctx, "Failed to save user", err)
		return wrap.Error(ctx, ErrNotUniqueEmail)
	}

	return nil
}

// Login verifies the credentials and issues a token pair. Accounts migrated
// from the mobile client stored a bare SHA-256 digest of the password;
// those still log in, and the stored hash is silently upgraded on success.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	ctx = wrap.WithAction(ctx, "login")

	user, err := s.userRepo.GetUser(ctx, email)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if user == nil {
		return nil, wrap.Error(ctx, ErrUserWithEmailNotFound)
	}

	stored := user.GetPasswordHash()
	if passhash.IsEncoded(stored) {
		if ok, err := passhash.VerifyPassword(password, stored); err != nil || !ok {
			return nil, wrap.Error(ctx, ErrInvalidCredentials)
		}
	} else {
		// Legacy digest comparison.
		if !hasher.Verify(password, stored) {
			return nil, wrap.Error(ctx, ErrInvalidCredentials)
		}
		s.upgradeHash(ctx, email, password)
	}

	tokens, err := s.tokenService.GenerateTokens(ctx, user)
	if err != nil {
		return nil, wrap.Error(ctx, ErrTokenGenerateFail)
	}

	return tokens, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	return s.tokenService.Refresh(ctx, refreshToken)
}

// Authenticate resolves an access token into its account. Used by the
// middleware that builds the request session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokenService.Validate(ctx, token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != models.AccessToken {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetUser(ctx, claims.Email)
	if err != nil {
		return nil, ErrUnexpected
	}
	if user == nil {
		return nil, ErrUserWithEmailNotFound
	}

	return user, nil
}

func (s *AuthService) upgradeHash(ctx context.Context, email, password string) {
	upgraded, err := passhash.HashPassword(password)
	if err != nil {
		s.log.Error(ctx, "failed to upgrade legacy password hash", err)
		return
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, email, upgraded); err != nil {
		// Not fatal, the account still works with the legacy digest.
		s.log.Error(ctx, "failed to store upgraded password hash", err)
	}
}
