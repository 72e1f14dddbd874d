package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dormdesk/maintenance-service/internal/auth"
	"github.com/dormdesk/maintenance-service/internal/config"
	"github.com/dormdesk/maintenance-service/internal/domain"
	"github.com/dormdesk/maintenance-service/internal/repository"
	apperrors "github.com/dormdesk/maintenance-service/pkg/util"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users    repository.UserRepository
	verifier auth.Verifier
	tokenMgr *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:    users,
		verifier: auth.NewVerifier(cfg.Auth.PasswordScheme, cfg.Auth.BcryptCost),
		tokenMgr: auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
	}
}

// Authenticate checks credentials and issues an identity token.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.User, string, time.Time, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("username and password required", nil)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid username or password")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := s.verifier.Compare(user.Password, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid username or password")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// Register creates a new resident account via self-signup.
func (s *AuthService) Register(ctx context.Context, username, password, name string, phone *string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)
	if username == "" || password == "" || name == "" {
		return nil, apperrors.NewValidationError("username, password and name required", nil)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflict("username already taken", map[string]any{"username": username})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	stored, err := s.verifier.Encode(password)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	user := &domain.User{
		Username: username,
		Password: stored,
		Role:     domain.RoleResident,
		Name:     name,
		Phone:    phone,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
