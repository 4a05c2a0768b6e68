package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

type AdminUsersStore interface {
	ListUsers(ctx context.Context, query string, limit, offset int) ([]domain.User, error)
	SetUserStatus(ctx context.Context, userID string, status domain.UserStatus, when time.Time) (domain.User, error)
}

type SessionRevoker interface {
	RevokeUserSessions(ctx context.Context, userID string, when time.Time) (int64, error)
}

// AdminService backs the site-admin endpoints. Callers must hold the admin
// role; the router enforces that.
type AdminService struct {
	Users    AdminUsersStore
	Sessions SessionRevoker
	Logger   *slog.Logger
	Now      func() time.Time
}

func (s *AdminService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *AdminService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *AdminService) ListUsers(ctx context.Context, query string, limit, offset int) ([]domain.User, error) {
	return s.Users.ListUsers(ctx, query, limit, offset)
}

// SetStatus enables or disables an account. Disabling also revokes the
// account's sessions so its tokens stop working at once.
func (s *AdminService) SetStatus(ctx context.Context, actorID, userID string, status domain.UserStatus) (domain.User, error) {
	switch status {
	case domain.UserStatusActive, domain.UserStatusDisabled:
	default:
		return domain.User{}, domain.NewValidationError(map[string]string{"status": "must be active or disabled"})
	}
	if actorID == userID && status == domain.UserStatusDisabled {
		return domain.User{}, domain.Decline(domain.ErrValidation, "You cannot disable your own account")
	}

	now := s.now().UTC()
	u, err := s.Users.SetUserStatus(ctx, userID, status, now)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.Decline(domain.ErrNotFound, "User not found")
		}
		return domain.User{}, err
	}

	if status == domain.UserStatusDisabled && s.Sessions != nil {
		n, err := s.Sessions.RevokeUserSessions(ctx, userID, now)
		if err != nil {
			return domain.User{}, err
		}
		s.logger().Info("admin: user disabled", "user_id", userID, "by", actorID, "sessions_revoked", n)
	}
	return u, nil
}
