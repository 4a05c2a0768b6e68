package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

type stubAdminUsersStore struct {
	listFunc   func(context.Context, string, int, int) ([]domain.User, error)
	statusFunc func(context.Context, string, domain.UserStatus, time.Time) (domain.User, error)
}

func (s *stubAdminUsersStore) ListUsers(ctx context.Context, query string, limit, offset int) ([]domain.User, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, query, limit, offset)
	}
	return nil, errors.New("list not stubbed")
}

func (s *stubAdminUsersStore) SetUserStatus(ctx context.Context, userID string, status domain.UserStatus, when time.Time) (domain.User, error) {
	if s.statusFunc != nil {
		return s.statusFunc(ctx, userID, status, when)
	}
	return domain.User{}, errors.New("set status not stubbed")
}

type sessionRevokerFunc func(context.Context, string, time.Time) (int64, error)

func (f sessionRevokerFunc) RevokeUserSessions(ctx context.Context, userID string, when time.Time) (int64, error) {
	return f(ctx, userID, when)
}

func TestAdminDisableRevokesSessions(t *testing.T) {
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	revoked := ""
	svc := &AdminService{
		Users: &stubAdminUsersStore{
			statusFunc: func(_ context.Context, id string, status domain.UserStatus, when time.Time) (domain.User, error) {
				if !when.Equal(now) {
					t.Fatalf("unexpected time: %v", when)
				}
				return domain.User{ID: id, Status: status}, nil
			},
		},
		Sessions: sessionRevokerFunc(func(_ context.Context, id string, _ time.Time) (int64, error) {
			revoked = id
			return 2, nil
		}),
		Now: func() time.Time { return now },
	}

	u, err := svc.SetStatus(context.Background(), "admin", "u1", domain.UserStatusDisabled)
	if err != nil || u.Status != domain.UserStatusDisabled {
		t.Fatalf("unexpected result: %+v %v", u, err)
	}
	if revoked != "u1" {
		t.Fatalf("expected sessions of u1 to be revoked, got %q", revoked)
	}

	revoked = ""
	if _, err := svc.SetStatus(context.Background(), "admin", "u1", domain.UserStatusActive); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if revoked != "" {
		t.Fatalf("enabling must not revoke sessions")
	}
}

func TestAdminSetStatusRejectsBadInput(t *testing.T) {
	svc := &AdminService{Users: &stubAdminUsersStore{}}

	if _, err := svc.SetStatus(context.Background(), "a", "u1", "banned"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.SetStatus(context.Background(), "a", "a", domain.UserStatusDisabled); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected self-disable to be declined, got %v", err)
	}
}
