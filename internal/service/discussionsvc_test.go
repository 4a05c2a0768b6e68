package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

type memDiscussions struct {
	mu       sync.Mutex
	seq      int
	rooms    map[string]*domain.Discussion
	messages map[string][]domain.DiscussionMessage
}

func newMemDiscussions() *memDiscussions {
	return &memDiscussions{rooms: map[string]*domain.Discussion{}, messages: map[string][]domain.DiscussionMessage{}}
}

func (m *memDiscussions) Create(_ context.Context, nd domain.NewDiscussion, when time.Time) (domain.Discussion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	d := &domain.Discussion{
		ID: fmt.Sprintf("d%d", m.seq), Title: nd.Title, Description: nd.Description,
		Creator:         domain.UserSummary{ID: nd.CreatorID},
		Participants:    []domain.UserSummary{{ID: nd.CreatorID}},
		MaxParticipants: nd.MaxParticipants, Category: nd.Category, Tags: nd.Tags,
		IsActive: true, CreatedAt: when, UpdatedAt: when,
	}
	d.ParticipantsCount = 1
	m.rooms[d.ID] = d
	return *d, nil
}

func (m *memDiscussions) Get(_ context.Context, id string) (domain.Discussion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rooms[id]
	if !ok {
		return domain.Discussion{}, domain.ErrNotFound
	}
	out := *d
	out.Participants = append([]domain.UserSummary(nil), d.Participants...)
	return out, nil
}

func (m *memDiscussions) List(_ context.Context, f domain.DiscussionFilter) (domain.DiscussionPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := domain.DiscussionPage{Discussions: []domain.Discussion{}, CurrentPage: 1}
	for _, d := range m.rooms {
		if !d.IsActive || (f.MemberOf != "" && !d.HasParticipant(f.MemberOf) && d.Creator.ID != f.MemberOf) {
			continue
		}
		out.Discussions = append(out.Discussions, *d)
	}
	out.Total = len(out.Discussions)
	out.TotalPages = 1
	return out, nil
}

func (m *memDiscussions) Join(_ context.Context, id, userID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rooms[id]
	if !ok {
		return domain.ErrNotFound
	}
	if err := domain.CheckJoin(d.IsActive, d.HasParticipant(userID), len(d.Participants), d.MaxParticipants); err != nil {
		return err
	}
	d.Participants = append(d.Participants, domain.UserSummary{ID: userID})
	d.ParticipantsCount = len(d.Participants)
	return nil
}

func (m *memDiscussions) Leave(_ context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rooms[id]
	if !ok {
		return false, nil
	}
	for i, p := range d.Participants {
		if p.ID == userID {
			d.Participants = append(d.Participants[:i], d.Participants[i+1:]...)
			d.ParticipantsCount = len(d.Participants)
			return true, nil
		}
	}
	return false, nil
}

func (m *memDiscussions) Deactivate(_ context.Context, id string, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rooms[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.IsActive = false
	d.UpdatedAt = when
	return nil
}

func (m *memDiscussions) Messages(_ context.Context, id string) ([]domain.DiscussionMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.DiscussionMessage{}, m.messages[id]...), nil
}

func (m *memDiscussions) AddMessage(_ context.Context, id, senderID, content string, when time.Time) (domain.DiscussionMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	msg := domain.DiscussionMessage{
		ID: fmt.Sprintf("m%d", m.seq), DiscussionID: id, Sender: domain.UserSummary{ID: senderID},
		Content: content, Timestamp: when,
	}
	m.messages[id] = append(m.messages[id], msg)
	return msg, nil
}

func (m *memDiscussions) GetMessage(_ context.Context, id, messageID string) (domain.DiscussionMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages[id] {
		if msg.ID == messageID {
			return msg, nil
		}
	}
	return domain.DiscussionMessage{}, domain.ErrNotFound
}

func (m *memDiscussions) EditMessage(_ context.Context, id, messageID, content string, when time.Time) (domain.DiscussionMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, msg := range m.messages[id] {
		if msg.ID == messageID {
			msg.Content = content
			msg.Edited = true
			msg.EditedAt = &when
			m.messages[id][i] = msg
			return msg, nil
		}
	}
	return domain.DiscussionMessage{}, domain.ErrNotFound
}

func newDiscussionFixture() (*DiscussionService, *recordingPublisher) {
	pub := &recordingPublisher{}
	return &DiscussionService{Discussions: newMemDiscussions(), Publisher: pub}, pub
}

func TestDiscussionCreateValidation(t *testing.T) {
	svc, _ := newDiscussionFixture()
	ctx := context.Background()

	d, err := svc.Create(ctx, "a", DiscussionInput{Title: " Go generics "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.Title != "Go generics" || d.Category != domain.CategoryGeneral || d.MaxParticipants != domain.DefaultMaxParticipants {
		t.Fatalf("unexpected defaults: %+v", d)
	}
	if !d.HasParticipant("a") {
		t.Fatalf("creator should be the first participant")
	}

	if _, err := svc.Create(ctx, "a", DiscussionInput{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected title decline, got %v", err)
	}
	if _, err := svc.Create(ctx, "a", DiscussionInput{Title: "t", Category: "cooking"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected category error, got %v", err)
	}
	if _, err := svc.Create(ctx, "a", DiscussionInput{Title: "t", MaxParticipants: 1}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected capacity error, got %v", err)
	}
}

func TestDiscussionJoinCapacityAndLeave(t *testing.T) {
	svc, _ := newDiscussionFixture()
	ctx := context.Background()
	d, _ := svc.Create(ctx, "a", DiscussionInput{Title: "pair", MaxParticipants: 2})

	if _, err := svc.Join(ctx, "a", d.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("creator is already a participant, got %v", err)
	}
	joined, err := svc.Join(ctx, "b", d.ID)
	if err != nil || joined.ParticipantsCount != 2 {
		t.Fatalf("unexpected join: %+v %v", joined, err)
	}
	if _, err := svc.Join(ctx, "c", d.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("full room should decline, got %v", err)
	}
	if _, err := svc.Join(ctx, "c", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := svc.Leave(ctx, "c", d.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("non-participant leave should decline, got %v", err)
	}
	if err := svc.Leave(ctx, "b", d.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, err := svc.Join(ctx, "c", d.ID); err != nil {
		t.Fatalf("a free seat should be joinable: %v", err)
	}
}

func TestDiscussionMessagesArePublished(t *testing.T) {
	svc, pub := newDiscussionFixture()
	ctx := context.Background()
	d, _ := svc.Create(ctx, "a", DiscussionInput{Title: "chat"})

	if _, err := svc.PostMessage(ctx, "b", d.ID, "hello"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-participants cannot post, got %v", err)
	}
	if _, err := svc.PostMessage(ctx, "a", d.ID, "   "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank content should be refused, got %v", err)
	}
	m, err := svc.PostMessage(ctx, "a", d.ID, "  hello  ")
	if err != nil || m.Content != "hello" {
		t.Fatalf("unexpected message: %+v %v", m, err)
	}

	_, _ = svc.Join(ctx, "b", d.ID)
	if _, err := svc.EditMessage(ctx, "b", d.ID, m.ID, "hijack"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("only the sender may edit, got %v", err)
	}
	edited, err := svc.EditMessage(ctx, "a", d.ID, m.ID, "hello, world")
	if err != nil || !edited.Edited || edited.EditedAt == nil || edited.Content != "hello, world" {
		t.Fatalf("unexpected edit: %+v %v", edited, err)
	}

	events := pub.list()
	if len(events) != 2 {
		t.Fatalf("expected two events, got %+v", events)
	}
	if events[0].Room != "discussion-"+d.ID || events[0].Event != "new-message" {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	upd, ok := events[1].Data.(messageUpdatedEvent)
	if !ok || events[1].Event != "message-updated" || upd.MessageID != m.ID || upd.UpdatedMessage.Content != "hello, world" {
		t.Fatalf("unexpected second event: %+v", events[1])
	}

	view, err := svc.Get(ctx, "b", d.ID)
	if err != nil || !view.IsParticipant || len(view.Messages) != 1 {
		t.Fatalf("unexpected view: %+v %v", view, err)
	}
}

func TestDiscussionDeleteIsSoft(t *testing.T) {
	svc, _ := newDiscussionFixture()
	ctx := context.Background()
	d, _ := svc.Create(ctx, "a", DiscussionInput{Title: "chat"})
	_, _ = svc.Join(ctx, "b", d.ID)
	_, _ = svc.PostMessage(ctx, "b", d.ID, "before")

	if err := svc.Delete(ctx, "b", d.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("only the creator may delete, got %v", err)
	}
	if err := svc.Delete(ctx, "a", d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.PostMessage(ctx, "b", d.ID, "after"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("inactive rooms refuse messages, got %v", err)
	}
	if _, err := svc.Join(ctx, "c", d.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("inactive rooms refuse joins, got %v", err)
	}
	view, err := svc.Get(ctx, "c", d.ID)
	if err != nil || view.IsActive || view.IsParticipant || len(view.Messages) != 1 {
		t.Fatalf("history should stay readable: %+v %v", view, err)
	}
	page, _ := svc.ListMine(ctx, "a", 1, 10)
	if page.Total != 0 {
		t.Fatalf("inactive rooms are not listed, got %d", page.Total)
	}
}
