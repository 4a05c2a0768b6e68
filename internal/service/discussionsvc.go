package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
	"github.com/TheProfessor0105/E-Community-Forum/internal/realtime"
)

type DiscussionsStore interface {
	Create(ctx context.Context, nd domain.NewDiscussion, when time.Time) (domain.Discussion, error)
	Get(ctx context.Context, id string) (domain.Discussion, error)
	List(ctx context.Context, f domain.DiscussionFilter) (domain.DiscussionPage, error)
	Join(ctx context.Context, id, userID string, when time.Time) error
	Leave(ctx context.Context, id, userID string) (bool, error)
	Deactivate(ctx context.Context, id string, when time.Time) error
	Messages(ctx context.Context, id string) ([]domain.DiscussionMessage, error)
	AddMessage(ctx context.Context, id, senderID, content string, when time.Time) (domain.DiscussionMessage, error)
	GetMessage(ctx context.Context, id, messageID string) (domain.DiscussionMessage, error)
	EditMessage(ctx context.Context, id, messageID, content string, when time.Time) (domain.DiscussionMessage, error)
}

type DiscussionInput struct {
	Title           string
	Description     string
	MaxParticipants int
	Category        domain.DiscussionCategory
	Tags            []string
}

type DiscussionService struct {
	Discussions DiscussionsStore
	Publisher   Publisher
	Logger      *slog.Logger
	Now         func() time.Time
}

func (s *DiscussionService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *DiscussionService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *DiscussionService) Create(ctx context.Context, creatorID string, in DiscussionInput) (domain.Discussion, error) {
	nd := domain.NewDiscussion{
		Title:           strings.TrimSpace(in.Title),
		Description:     strings.TrimSpace(in.Description),
		CreatorID:       creatorID,
		MaxParticipants: in.MaxParticipants,
		Category:        in.Category,
		Tags:            cleanTags(in.Tags, 0),
	}
	if nd.Category == "" {
		nd.Category = domain.CategoryGeneral
	}
	if nd.MaxParticipants == 0 {
		nd.MaxParticipants = domain.DefaultMaxParticipants
	}

	if nd.Title == "" {
		return domain.Discussion{}, domain.Decline(domain.ErrValidation, "Title is required")
	}
	fields := map[string]string{}
	if !nd.Category.Valid() {
		fields["category"] = "unknown category"
	}
	if nd.MaxParticipants < domain.MinMaxParticipants || nd.MaxParticipants > domain.MaxMaxParticipants {
		fields["maxParticipants"] = "must be between 2 and 500"
	}
	if len(fields) > 0 {
		return domain.Discussion{}, domain.NewValidationError(fields)
	}

	return s.Discussions.Create(ctx, nd, s.now().UTC())
}

func (s *DiscussionService) List(ctx context.Context, f domain.DiscussionFilter) (domain.DiscussionPage, error) {
	f.Search = strings.TrimSpace(f.Search)
	if f.Category != "" && !f.Category.Valid() {
		return domain.DiscussionPage{}, domain.NewValidationError(map[string]string{"category": "unknown category"})
	}
	return s.Discussions.List(ctx, f)
}

// ListMine lists the active rooms userID created or takes part in.
func (s *DiscussionService) ListMine(ctx context.Context, userID string, page, limit int) (domain.DiscussionPage, error) {
	return s.Discussions.List(ctx, domain.DiscussionFilter{MemberOf: userID, Page: page, Limit: limit})
}

func (s *DiscussionService) get(ctx context.Context, id string) (domain.Discussion, error) {
	d, err := s.Discussions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Discussion{}, domain.Decline(domain.ErrNotFound, "Discussion not found")
		}
		return domain.Discussion{}, err
	}
	return d, nil
}

func (s *DiscussionService) Get(ctx context.Context, userID, id string) (domain.DiscussionView, error) {
	d, err := s.get(ctx, id)
	if err != nil {
		return domain.DiscussionView{}, err
	}
	msgs, err := s.Discussions.Messages(ctx, id)
	if err != nil {
		return domain.DiscussionView{}, err
	}
	d.Messages = msgs
	return domain.DiscussionView{Discussion: d, IsParticipant: d.HasParticipant(userID)}, nil
}

func (s *DiscussionService) Join(ctx context.Context, userID, id string) (domain.Discussion, error) {
	if err := s.Discussions.Join(ctx, id, userID, s.now().UTC()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Discussion{}, domain.Decline(domain.ErrNotFound, "Discussion not found")
		}
		return domain.Discussion{}, err
	}
	return s.get(ctx, id)
}

func (s *DiscussionService) Leave(ctx context.Context, userID, id string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	left, err := s.Discussions.Leave(ctx, id, userID)
	if err != nil {
		return err
	}
	if !left {
		return domain.Decline(domain.ErrValidation, "Not a participant in this discussion")
	}
	return nil
}

type newMessageEvent struct {
	DiscussionID string                   `json:"discussionId"`
	Message      domain.DiscussionMessage `json:"message"`
}

type messageUpdatedEvent struct {
	DiscussionID   string                   `json:"discussionId"`
	MessageID      string                   `json:"messageId"`
	UpdatedMessage domain.DiscussionMessage `json:"updatedMessage"`
}

func (s *DiscussionService) PostMessage(ctx context.Context, userID, id, content string) (domain.DiscussionMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.DiscussionMessage{}, domain.Decline(domain.ErrValidation, "Message content is required")
	}
	d, err := s.get(ctx, id)
	if err != nil {
		return domain.DiscussionMessage{}, err
	}
	if !d.IsActive {
		return domain.DiscussionMessage{}, domain.Decline(domain.ErrValidation, "Discussion is not active")
	}
	if !d.HasParticipant(userID) {
		return domain.DiscussionMessage{}, domain.Decline(domain.ErrForbidden, "Must be a participant to send messages")
	}

	m, err := s.Discussions.AddMessage(ctx, id, userID, content, s.now().UTC())
	if err != nil {
		return domain.DiscussionMessage{}, err
	}
	s.publish(ctx, id, realtime.EventNewMessage, newMessageEvent{DiscussionID: id, Message: m})
	return m, nil
}

func (s *DiscussionService) EditMessage(ctx context.Context, userID, id, messageID, content string) (domain.DiscussionMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.DiscussionMessage{}, domain.Decline(domain.ErrValidation, "Message content is required")
	}
	if _, err := s.get(ctx, id); err != nil {
		return domain.DiscussionMessage{}, err
	}
	m, err := s.Discussions.GetMessage(ctx, id, messageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DiscussionMessage{}, domain.Decline(domain.ErrNotFound, "Message not found")
		}
		return domain.DiscussionMessage{}, err
	}
	if m.Sender.ID != userID {
		return domain.DiscussionMessage{}, domain.Decline(domain.ErrForbidden, "Can only edit your own messages")
	}

	m, err = s.Discussions.EditMessage(ctx, id, messageID, content, s.now().UTC())
	if err != nil {
		return domain.DiscussionMessage{}, err
	}
	s.publish(ctx, id, realtime.EventMessageUpdated, messageUpdatedEvent{DiscussionID: id, MessageID: m.ID, UpdatedMessage: m})
	return m, nil
}

// Delete deactivates the room; its history stays readable.
func (s *DiscussionService) Delete(ctx context.Context, userID, id string) error {
	d, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if d.Creator.ID != userID {
		return domain.Decline(domain.ErrForbidden, "Only the creator can delete the discussion")
	}
	return s.Discussions.Deactivate(ctx, id, s.now().UTC())
}

func (s *DiscussionService) publish(ctx context.Context, id, event string, data any) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(ctx, realtime.DiscussionRoom(id), event, data); err != nil {
		s.logger().Warn("discussions: live push failed", "err", err, "discussion_id", id, "event", event)
	}
}
