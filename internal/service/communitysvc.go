package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

type CommunitiesStore interface {
	Create(ctx context.Context, nc domain.NewCommunity, when time.Time) (domain.Community, error)
	Get(ctx context.Context, id string) (domain.Community, error)
	List(ctx context.Context) ([]domain.Community, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Community, error)
	Role(ctx context.Context, communityID, userID string) (domain.MemberRole, error)
	AddMember(ctx context.Context, communityID, userID string, when time.Time) (bool, error)
	SetRole(ctx context.Context, communityID, userID string, from, to domain.MemberRole) (bool, error)
	RemoveMember(ctx context.Context, communityID, userID string) (bool, error)
	Leave(ctx context.Context, communityID, userID string, when time.Time) (domain.LeaveOutcome, error)
	Delete(ctx context.Context, communityID string) ([]string, error)
	Members(ctx context.Context, communityID string) ([]domain.CommunityMember, error)
}

type CommunityInput struct {
	Name        string
	Description string
	Privacy     domain.CommunityPrivacy
	Tags        []string
	Image       string
	CoverImage  string
}

type JoinOutcome struct {
	Joined    bool             `json:"joined"`
	Community domain.Community `json:"community"`
}

type CommunityService struct {
	Communities CommunitiesStore
	Users       UserLookup
	Notifier    Notifier
	Logger      *slog.Logger
	Now         func() time.Time
}

func (s *CommunityService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *CommunityService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *CommunityService) Create(ctx context.Context, authorID string, in CommunityInput) (domain.Community, error) {
	nc := domain.NewCommunity{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		AuthorID:    authorID,
		Privacy:     in.Privacy,
		Tags:        cleanTags(in.Tags, domain.MaxCommunityTags),
		Image:       strings.TrimSpace(in.Image),
		CoverImage:  strings.TrimSpace(in.CoverImage),
	}
	if nc.Privacy == "" {
		nc.Privacy = domain.PrivacyPublic
	}

	fields := map[string]string{}
	if nc.Name == "" {
		fields["name"] = "required"
	}
	if nc.Description == "" {
		fields["description"] = "required"
	}
	if !nc.Privacy.Valid() {
		fields["privacy"] = "must be public, private or read-only"
	}
	if len(fields) > 0 {
		return domain.Community{}, domain.NewValidationError(fields)
	}

	c, err := s.Communities.Create(ctx, nc, s.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrCommunityNameTaken) {
			return domain.Community{}, domain.Decline(domain.ErrConflict, "A community with this name already exists")
		}
		return domain.Community{}, err
	}
	return c, nil
}

// cleanTags trims tags, drops blanks and duplicates, and keeps at most limit.
func cleanTags(tags []string, limit int) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (s *CommunityService) List(ctx context.Context) ([]domain.Community, error) {
	return s.Communities.List(ctx)
}

func (s *CommunityService) ListForUser(ctx context.Context, userID string) ([]domain.Community, error) {
	return s.Communities.ListForUser(ctx, userID)
}

func (s *CommunityService) Get(ctx context.Context, id string) (domain.Community, error) {
	c, err := s.Communities.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Community{}, domain.Decline(domain.ErrNotFound, "Community not found")
		}
		return domain.Community{}, err
	}
	return c, nil
}

func (s *CommunityService) Members(ctx context.Context, id string) ([]domain.CommunityMember, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Communities.Members(ctx, id)
}

// Join is idempotent. Admins hear about new members only.
func (s *CommunityService) Join(ctx context.Context, userID, id string) (JoinOutcome, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return JoinOutcome{}, err
	}
	joined, err := s.Communities.AddMember(ctx, id, userID, s.now().UTC())
	if err != nil {
		return JoinOutcome{}, err
	}
	if !joined {
		return JoinOutcome{Joined: false, Community: c}, nil
	}

	if c, err = s.Get(ctx, id); err != nil {
		return JoinOutcome{}, err
	}
	name := s.username(ctx, userID)
	for _, adminID := range c.Admins {
		if adminID == userID {
			continue
		}
		s.Notifier.NotifyQuietly(ctx, adminID, Event{
			Type:     domain.NotificationNewMember,
			Message:  name + " joined " + c.Name,
			SenderID: userID,
			Payload:  communityPayload(c),
		})
	}
	return JoinOutcome{Joined: true, Community: c}, nil
}

func (s *CommunityService) Promote(ctx context.Context, actorID, id, memberID string) (domain.Community, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return domain.Community{}, err
	}
	if ok, err := s.isAdmin(ctx, c, actorID); err != nil {
		return domain.Community{}, err
	} else if !ok {
		return domain.Community{}, domain.Decline(domain.ErrForbidden, "Only admins can promote members")
	}

	role, err := s.Communities.Role(ctx, id, memberID)
	if err != nil {
		return domain.Community{}, err
	}
	switch role {
	case domain.RoleNone:
		return domain.Community{}, domain.Decline(domain.ErrValidation, "User is not a member of this community")
	case domain.RoleAdmin:
		return domain.Community{}, domain.Decline(domain.ErrConflict, "User is already an admin")
	}
	ok, err := s.Communities.SetRole(ctx, id, memberID, domain.RoleMember, domain.RoleAdmin)
	if err != nil {
		return domain.Community{}, err
	}
	if !ok {
		return domain.Community{}, domain.Decline(domain.ErrConflict, "User is already an admin")
	}

	s.Notifier.NotifyQuietly(ctx, memberID, Event{
		Type:     domain.NotificationAdminPromotion,
		Message:  "You are now an admin of " + c.Name,
		SenderID: actorID,
		Payload:  communityPayload(c),
	})
	return s.Get(ctx, id)
}

// Demote is reserved for the author, who can never be demoted.
func (s *CommunityService) Demote(ctx context.Context, actorID, id, memberID string) (domain.Community, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return domain.Community{}, err
	}
	if actorID != c.AuthorID {
		return domain.Community{}, domain.Decline(domain.ErrForbidden, "Only the community creator can remove admin privileges")
	}
	if memberID == c.AuthorID {
		return domain.Community{}, domain.Decline(domain.ErrValidation, "The community creator cannot be demoted")
	}
	ok, err := s.Communities.SetRole(ctx, id, memberID, domain.RoleAdmin, domain.RoleMember)
	if err != nil {
		return domain.Community{}, err
	}
	if !ok {
		return domain.Community{}, domain.Decline(domain.ErrValidation, "User is not an admin of this community")
	}

	s.Notifier.NotifyQuietly(ctx, memberID, Event{
		Type:     domain.NotificationAdminDemotion,
		Message:  "You are no longer an admin of " + c.Name,
		SenderID: actorID,
		Payload:  communityPayload(c),
	})
	return s.Get(ctx, id)
}

func (s *CommunityService) Leave(ctx context.Context, userID, id string) (domain.LeaveOutcome, error) {
	out, err := s.Communities.Leave(ctx, id, userID, s.now().UTC())
	if err != nil {
		var declined *domain.DeclinedError
		if errors.Is(err, domain.ErrNotFound) && !errors.As(err, &declined) {
			return domain.LeaveOutcome{}, domain.Decline(domain.ErrNotFound, "Community not found")
		}
		return domain.LeaveOutcome{}, err
	}
	if out.NewAuthorID != "" {
		s.logger().Info("communities: author transferred", "community_id", id, "from", userID, "to", out.NewAuthorID)
	}
	return out, nil
}

func (s *CommunityService) RemoveMember(ctx context.Context, actorID, id, memberID string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if ok, err := s.isAdmin(ctx, c, actorID); err != nil {
		return err
	} else if !ok {
		return domain.Decline(domain.ErrForbidden, "Only admins can remove members")
	}
	if memberID == c.AuthorID {
		return domain.Decline(domain.ErrForbidden, "The community creator cannot be removed")
	}
	removed, err := s.Communities.RemoveMember(ctx, id, memberID)
	if err != nil {
		return err
	}
	if !removed {
		return domain.Decline(domain.ErrValidation, "User is not a member of this community")
	}

	s.Notifier.NotifyQuietly(ctx, memberID, Event{
		Type:     domain.NotificationCommunityRemoval,
		Message:  "You have been removed from " + c.Name,
		SenderID: actorID,
		Payload:  communityPayload(c),
	})
	return nil
}

func (s *CommunityService) Delete(ctx context.Context, actorID, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if actorID != c.AuthorID {
		return domain.Decline(domain.ErrForbidden, "Only the community creator can delete it")
	}
	members, err := s.Communities.Delete(ctx, id)
	if err != nil {
		return err
	}

	for _, memberID := range members {
		if memberID == c.AuthorID {
			continue
		}
		s.Notifier.NotifyQuietly(ctx, memberID, Event{
			Type:     domain.NotificationCommunityDeleted,
			Message:  c.Name + " has been deleted",
			SenderID: actorID,
			Payload:  map[string]string{"communityName": c.Name},
		})
	}
	return nil
}

func (s *CommunityService) CanPost(ctx context.Context, userID string, c domain.Community) (bool, error) {
	role, err := s.Communities.Role(ctx, c.ID, userID)
	if err != nil {
		return false, err
	}
	return c.CanPost(userID, role), nil
}

func (s *CommunityService) isAdmin(ctx context.Context, c domain.Community, userID string) (bool, error) {
	if userID == c.AuthorID {
		return true, nil
	}
	role, err := s.Communities.Role(ctx, c.ID, userID)
	if err != nil {
		return false, err
	}
	return role == domain.RoleAdmin, nil
}

func (s *CommunityService) username(ctx context.Context, userID string) string {
	if s.Users != nil {
		if u, err := s.Users.GetUserByID(ctx, userID); err == nil {
			return u.Username
		}
	}
	return "Someone"
}

func communityPayload(c domain.Community) map[string]string {
	return map[string]string{"communityId": c.ID, "communityName": c.Name}
}
