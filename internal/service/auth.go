package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/folioserve/folio-live/internal/audit"
	"github.com/folioserve/folio-live/internal/domain"
	"github.com/folioserve/folio-live/internal/repository"
	"github.com/folioserve/folio-live/pkg/database"
	"github.com/folioserve/folio-live/pkg/jwt"
	"github.com/folioserve/folio-live/pkg/log"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// LoginRequest is the login form payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the account and its tokens.
type AuthResponse struct {
	User   map[string]interface{} `json:"user"`
	Tokens *jwt.TokenPair         `json:"tokens"`
}

// AuthService authenticates admin accounts.
type AuthService struct {
	repo   repository.UserRepository
	tokens *jwt.Manager
}

func NewAuthService(repo repository.UserRepository, tokens *jwt.Manager) *AuthService {
	return &AuthService{repo: repo, tokens: tokens}
}

// Login verifies credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	l := log.Ctx(ctx)

	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			audit.LogWithDetail(ctx, audit.ActionLoginFailed, req.Email, "login failed: unknown account")
			return nil, ErrInvalidCredentials
		}
		l.Error().Err(err).Msg("failed to get user by email")
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		audit.LogWithDetail(ctx, audit.ActionLoginFailed, req.Email, "login failed: wrong password")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.tokens.GenerateTokenPair(user.ID, user.Email, user.Username, user.Roles)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, user.ID).Msg("failed to generate tokens")
		return nil, err
	}

	audit.LogWithDetail(ctx, audit.ActionLogin, user.Email, "admin logged in")

	return &AuthResponse{User: user.ToResponse(), Tokens: pair}, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*jwt.TokenPair, error) {
	pair, err := s.tokens.RefreshTokens(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return pair, nil
}

// SeedAdmin creates the initial admin account when no accounts exist.
// Called once at startup with credentials from config.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password, username string) error {
	if email == "" || password == "" {
		return nil
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hashed),
		Roles:        database.StringArray{"admin"},
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return err
	}

	log.Ctx(ctx).Info().Str("email", email).Msg("seeded initial admin account")
	return nil
}
