package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
	"github.com/TheProfessor0105/E-Community-Forum/internal/notifications"
)

type stubNotificationTokensStore struct {
	upsertFunc func(context.Context, string, string, string, time.Time) (domain.NotificationToken, error)
	deleteFunc func(context.Context, string, string) error
	listFunc   func(context.Context, string) ([]domain.NotificationToken, error)
}

func (s *stubNotificationTokensStore) UpsertToken(ctx context.Context, userID, token, platform string, when time.Time) (domain.NotificationToken, error) {
	if s.upsertFunc != nil {
		return s.upsertFunc(ctx, userID, token, platform, when)
	}
	return domain.NotificationToken{}, errors.New("upsert not stubbed")
}

func (s *stubNotificationTokensStore) DeleteToken(ctx context.Context, userID, token string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, userID, token)
	}
	return errors.New("delete not stubbed")
}

func (s *stubNotificationTokensStore) ListTokens(ctx context.Context, userID string) ([]domain.NotificationToken, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, userID)
	}
	return nil, errors.New("list not stubbed")
}

type stubPushSender struct {
	sendFunc func(context.Context, string, notifications.Message) error
}

func (s *stubPushSender) Send(ctx context.Context, token string, msg notifications.Message) error {
	if s.sendFunc != nil {
		return s.sendFunc(ctx, token, msg)
	}
	return nil
}

// memNotificationsStore keeps inboxes in memory, newest last.
type memNotificationsStore struct {
	mu        sync.Mutex
	byUser    map[string][]domain.Notification
	insertErr error
}

func newMemNotificationsStore() *memNotificationsStore {
	return &memNotificationsStore{byUser: map[string][]domain.Notification{}}
}

func (m *memNotificationsStore) Insert(_ context.Context, n domain.Notification) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUser[n.UserID] = append(m.byUser[n.UserID], n)
	return nil
}

func (m *memNotificationsStore) List(_ context.Context, userID string, limit int) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.byUser[userID]
	out := []domain.Notification{}
	for i := len(src) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, src[i])
	}
	return out, nil
}

func (m *memNotificationsStore) CountUnread(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, x := range m.byUser[userID] {
		if !x.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *memNotificationsStore) MarkRead(_ context.Context, userID, id string) (domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.byUser[userID] {
		if x.ID == id {
			m.byUser[userID][i].IsRead = true
			return m.byUser[userID][i], nil
		}
	}
	return domain.Notification{}, domain.ErrNotFound
}

func (m *memNotificationsStore) MarkAllRead(_ context.Context, userID string) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed []domain.Notification
	for i, x := range m.byUser[userID] {
		if !x.IsRead {
			m.byUser[userID][i].IsRead = true
			changed = append(changed, m.byUser[userID][i])
		}
	}
	return changed, nil
}

func (m *memNotificationsStore) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.byUser[userID]
	for i, x := range list {
		if x.ID == id {
			m.byUser[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memNotificationsStore) DeleteFromSender(_ context.Context, userID string, t domain.NotificationType, senderID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []domain.Notification
	var ids []string
	for _, x := range m.byUser[userID] {
		if x.Type == t && x.SenderID == senderID {
			ids = append(ids, x.ID)
			continue
		}
		kept = append(kept, x)
	}
	m.byUser[userID] = kept
	return ids, nil
}

func (m *memNotificationsStore) inbox(userID string) []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Notification(nil), m.byUser[userID]...)
}

type published struct {
	Room  string
	Event string
	Data  any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, room, event string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Room: room, Event: event, Data: data})
	return p.err
}

func (p *recordingPublisher) list() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

func TestNotificationServiceNotifyStoresAndPublishes(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	store := newMemNotificationsStore()
	pub := &recordingPublisher{}
	svc := &NotificationService{Store: store, Publisher: pub, Now: func() time.Time { return now }}

	n, err := svc.Notify(context.Background(), "u2", Event{
		Type:     domain.NotificationPostComment,
		Message:  "alice commented on your post",
		SenderID: "u1",
		Payload:  map[string]string{"postId": "p1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ID == "" || n.IsRead || !n.Timestamp.Equal(now) {
		t.Fatalf("unexpected notification: %+v", n)
	}
	var payload map[string]string
	if err := json.Unmarshal(n.Payload, &payload); err != nil || payload["postId"] != "p1" {
		t.Fatalf("unexpected payload: %s", n.Payload)
	}
	if got := store.inbox("u2"); len(got) != 1 || got[0].ID != n.ID {
		t.Fatalf("unexpected inbox: %+v", got)
	}
	events := pub.list()
	if len(events) != 1 || events[0].Room != "notifications-u2" || events[0].Event != "new-notification" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestNotificationServiceNotifySurvivesPushFailure(t *testing.T) {
	store := newMemNotificationsStore()
	svc := &NotificationService{Store: store, Publisher: &recordingPublisher{err: errors.New("socket gone")}}

	if _, err := svc.Notify(context.Background(), "u2", Event{Type: domain.NotificationPostLike, Message: "liked"}); err != nil {
		t.Fatalf("live push failure leaked: %v", err)
	}
	if len(store.inbox("u2")) != 1 {
		t.Fatalf("record not stored")
	}
}

func TestNotificationServiceNotifyQuietlySwallowsStoreFailure(t *testing.T) {
	store := newMemNotificationsStore()
	store.insertErr = errors.New("db down")
	pub := &recordingPublisher{}
	svc := &NotificationService{Store: store, Publisher: pub}

	svc.NotifyQuietly(context.Background(), "u2", Event{Type: domain.NotificationNewMember, Message: "joined"})
	if len(pub.list()) != 0 {
		t.Fatalf("nothing should be published when the insert fails")
	}
}

func TestNotificationServiceReadAndDelete(t *testing.T) {
	store := newMemNotificationsStore()
	pub := &recordingPublisher{}
	svc := &NotificationService{Store: store, Publisher: pub}
	ctx := context.Background()

	first, _ := svc.Notify(ctx, "u1", Event{Type: domain.NotificationPostLike, Message: "one"})
	_, _ = svc.Notify(ctx, "u1", Event{Type: domain.NotificationPostLike, Message: "two"})

	list, err := svc.List(ctx, "u1")
	if err != nil || len(list) != 2 || list[0].Message != "two" {
		t.Fatalf("expected newest first, got %+v %v", list, err)
	}

	if _, err := svc.MarkRead(ctx, "u1", first.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if n, _ := svc.UnreadCount(ctx, "u1"); n != 1 {
		t.Fatalf("expected one unread, got %d", n)
	}
	changed, err := svc.MarkAllRead(ctx, "u1")
	if err != nil || changed != 1 {
		t.Fatalf("expected one change, got %d %v", changed, err)
	}
	if err := svc.Delete(ctx, "u1", first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, "u1", first.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := svc.MarkRead(ctx, "u1", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	counts := map[string]int{}
	for _, e := range pub.list() {
		counts[e.Event]++
	}
	if counts["new-notification"] != 2 || counts["notification-updated"] != 2 || counts["notification-deleted"] != 1 {
		t.Fatalf("unexpected event counts: %v", counts)
	}
}

func TestNotificationServiceRegisterTokenValidation(t *testing.T) {
	svc := &NotificationService{
		Tokens: &stubNotificationTokensStore{},
	}

	if _, err := svc.RegisterToken(context.Background(), "user-1", "", "android"); err == nil {
		t.Fatalf("expected validation error for empty token")
	}
	if _, err := svc.RegisterToken(context.Background(), "user-1", "token", ""); err == nil {
		t.Fatalf("expected validation error for empty platform")
	}
	if _, err := svc.RegisterToken(context.Background(), "user-1", "token", "windows"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown platform, got %v", err)
	}
}

func TestNotificationServiceNotifyDeletesInvalidToken(t *testing.T) {
	deleted := false
	tokens := &stubNotificationTokensStore{
		listFunc: func(_ context.Context, userID string) ([]domain.NotificationToken, error) {
			if userID != "user-2" {
				t.Fatalf("unexpected user id: %s", userID)
			}
			return []domain.NotificationToken{{Token: "token-1", Platform: "ios"}}, nil
		},
		deleteFunc: func(_ context.Context, userID, token string) error {
			if userID != "user-2" || token != "token-1" {
				t.Fatalf("unexpected delete args: %s %s", userID, token)
			}
			deleted = true
			return nil
		},
	}

	sender := &stubPushSender{
		sendFunc: func(_ context.Context, token string, msg notifications.Message) error {
			if token != "token-1" {
				t.Fatalf("unexpected token: %s", token)
			}
			if msg.Notification == nil || msg.Notification.Body != "alice sent you a friend request" {
				t.Fatalf("expected ios alert, got %+v", msg)
			}
			if msg.Data["type"] != "friend_request" || msg.Data["senderId"] != "user-1" {
				t.Fatalf("unexpected data: %v", msg.Data)
			}
			return notifications.ErrInvalidToken
		},
	}

	svc := &NotificationService{
		Store:  newMemNotificationsStore(),
		Tokens: tokens,
		Sender: sender,
	}

	_, err := svc.Notify(context.Background(), "user-2", Event{
		Type:     domain.NotificationFriendRequest,
		Message:  "alice sent you a friend request",
		SenderID: "user-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Fatalf("expected invalid token to be deleted")
	}
}
