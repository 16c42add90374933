package auth

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/larder-erp/larder-erp/internal/shared"
)

// Service authenticates users against stored bcrypt hashes and manages
// their Redis-backed sessions.
type Service struct {
	users    UserRepository
	sessions *shared.SessionManager
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(users UserRepository, sessions *shared.SessionManager, logger *slog.Logger) *Service {
	return &Service{users: users, sessions: sessions, logger: logger}
}

// LoginResult carries the issued token and the authenticated user.
type LoginResult struct {
	Token string
	User  User
}

// Login verifies credentials and issues a bearer token. The caller cannot
// distinguish an unknown email from a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return LoginResult{}, shared.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, shared.ErrInvalidCredentials
	}
	if user.Status != UserStatusActive {
		return LoginResult{}, ErrAccountDisabled
	}

	token, err := s.sessions.Create(ctx, shared.Session{
		UserID:   user.ID,
		TenantID: user.TenantID,
		BranchID: user.BranchID,
		Role:     user.Role,
	})
	if err != nil {
		return LoginResult{}, err
	}
	s.logger.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.Int64("tenant_id", user.TenantID))
	return LoginResult{Token: token, User: user}, nil
}

// Logout destroys the caller's session.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// Profile returns the account behind a session.
func (s *Service) Profile(ctx context.Context, userID int64) (User, error) {
	return s.users.GetByID(ctx, userID)
}
