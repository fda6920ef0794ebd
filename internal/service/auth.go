package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	pkg_hash "github.com/Skotchmaster/storefront/pkg/hash"
	"github.com/Skotchmaster/storefront/pkg/logging"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

type AuthService struct {
	Repo      repo.Users
	JWTSecret []byte
	AccessTTL time.Duration
}

type LoginResult struct {
	AccessToken string
	AccessExp   time.Time
	IsAdmin     bool
}

func (s *AuthService) Register(ctx context.Context, req transport.Credentials) (*models.User, error) {
	if err := transport.Validate(req); err != nil {
		return nil, err
	}
	return s.createUser(ctx, req.Username, req.Password, middleware.RoleUser)
}

func (s *AuthService) createUser(ctx context.Context, username, password, role string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register", "username", username)

	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := models.User{
		Username:     username,
		PasswordHash: pwHash,
		Role:         role,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return nil, fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) Login(ctx context.Context, req transport.Credentials) (*LoginResult, error) {
	if err := transport.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.Repo.FindUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !pkg_hash.CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	accessExp := time.Now().Add(s.AccessTTL)
	accessToken, err := tokens.NewAccessToken(user.ID.String(), user.Role, accessExp, s.JWTSecret)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken: accessToken,
		AccessExp:   accessExp,
		IsAdmin:     user.Role == middleware.RoleAdmin,
	}, nil
}

// EnsureAdmin creates the bootstrap staff account when credentials are configured.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	l := logging.FromContext(ctx).With("svc", "auth.ensure_admin", "username", username)

	_, err := s.createUser(ctx, username, password, middleware.RoleAdmin)
	switch {
	case errors.Is(err, ErrConflict):
		l.Info("admin_exists")
		return nil
	case err != nil:
		return err
	}
	l.Info("admin_created")
	return nil
}
