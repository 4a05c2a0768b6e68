package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

type ProfilesStore interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, p domain.ProfileUpdate, when time.Time) (domain.User, error)
	SearchUsers(ctx context.Context, q string, limit int, excludeUserID string) ([]domain.UserSummary, error)
}

type UsersService struct {
	Store ProfilesStore
	Now   func() time.Time
}

func (s *UsersService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *UsersService) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	p, err := s.Store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Profile{}, domain.Decline(domain.ErrNotFound, "User not found")
		}
		return domain.Profile{}, err
	}
	p.Email = ""
	return p, nil
}

// UpdateProfile applies the set fields of p. Users may only edit themselves.
func (s *UsersService) UpdateProfile(ctx context.Context, actorID, userID string, p domain.ProfileUpdate) (domain.User, error) {
	if actorID != userID {
		return domain.User{}, domain.Decline(domain.ErrForbidden, "You can only update your own profile")
	}
	for _, f := range []*string{p.Username, p.Firstname, p.Lastname, p.About, p.LivesIn, p.Avatar, p.CoverPicture} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
	fields := map[string]string{}
	if p.Firstname != nil && *p.Firstname == "" {
		fields["firstname"] = "must not be empty"
	}
	if p.Lastname != nil && *p.Lastname == "" {
		fields["lastname"] = "must not be empty"
	}
	if len(fields) > 0 {
		return domain.User{}, domain.NewValidationError(fields)
	}
	if p.Empty() {
		prof, err := s.GetProfile(ctx, userID)
		return prof.User, err
	}

	u, err := s.Store.UpdateProfile(ctx, userID, p, s.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			return domain.User{}, domain.Decline(domain.ErrConflict, "Username is already taken")
		}
		return domain.User{}, err
	}
	return u, nil
}

func (s *UsersService) Search(ctx context.Context, q string, limit int, excludeUserID string) ([]domain.UserSummary, error) {
	q = strings.TrimSpace(q)
	if len(q) < 3 {
		return nil, domain.NewValidationError(map[string]string{"q": "must be at least 3 characters"})
	}
	return s.Store.SearchUsers(ctx, q, limit, excludeUserID)
}
