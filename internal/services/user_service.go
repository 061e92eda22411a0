package services

import (
	"context"
	"strings"
	"time"

	"github.com/fraudlab/cardsim-backend/internal/apperr"
	"github.com/fraudlab/cardsim-backend/internal/auth"
	"github.com/fraudlab/cardsim-backend/internal/config"
	"github.com/fraudlab/cardsim-backend/internal/models"
	repo "github.com/fraudlab/cardsim-backend/internal/repository"
)

type UserService struct {
	r  repo.Users
	tm *auth.TokenManager
	c  config.Config
}

func NewUserService(r repo.Users, tm *auth.TokenManager, c config.Config) *UserService {
	return &UserService{r: r, tm: tm, c: c}
}

// Register creates an account seeded with the demo starting balance so
// the fraud scenario is runnable end to end.
func (s *UserService) Register(ctx context.Context, username, email, password, role string) (models.User, error) {
	if role != models.RoleAdmin {
		role = models.RoleUser
	}
	u := models.User{Username: strings.TrimSpace(username), Email: strings.TrimSpace(email), Role: role}
	if err := u.Validate(); err != nil {
		return models.User{}, apperr.Validation("invalid_user", err.Error())
	}
	if len(password) < 6 {
		return models.User{}, apperr.Validation("invalid_user", "password too short")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, apperr.Internal(err)
	}
	created, err := s.r.Create(ctx, u.Username, u.Email, hash, u.Role, s.c.StartingBalance)
	if err != nil {
		return models.User{}, apperr.Internal(err)
	}
	return created, nil
}

type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    time.Duration `json:"expires_in"`
}

func (s *UserService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := s.r.GetByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, apperr.Unauthorized("invalid_credentials", "invalid credentials")
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return TokenPair{}, apperr.Unauthorized("invalid_credentials", "invalid credentials")
	}
	access, refresh, exp, err := s.tm.GeneratePair(u.ID, u.Role)
	if err != nil {
		return TokenPair{}, apperr.Internal(err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: time.Until(exp).Truncate(time.Second)}, nil
}

func (s *UserService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, isRefresh, err := s.tm.ParseAny(refreshToken)
	if err != nil || !isRefresh {
		return TokenPair{}, apperr.Unauthorized("invalid_token", "invalid refresh token")
	}
	access, refresh, exp, err := s.tm.GeneratePair(claims.UserID, claims.Role)
	if err != nil {
		return TokenPair{}, apperr.Internal(err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: time.Until(exp).Truncate(time.Second)}, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (models.User, error) {
	u, err := s.r.GetByID(ctx, id)
	if err == repo.ErrNotFound {
		return models.User{}, apperr.NotFound("user_not_found", "unknown user")
	}
	if err != nil {
		return models.User{}, apperr.Internal(err)
	}
	return u, nil
}
