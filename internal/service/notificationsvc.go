package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
	"github.com/TheProfessor0105/E-Community-Forum/internal/notifications"
	"github.com/TheProfessor0105/E-Community-Forum/internal/realtime"

	"github.com/google/uuid"
)

type NotificationsStore interface {
	Insert(ctx context.Context, n domain.Notification) error
	List(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) (domain.Notification, error)
	MarkAllRead(ctx context.Context, userID string) ([]domain.Notification, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteFromSender(ctx context.Context, userID string, t domain.NotificationType, senderID string) ([]string, error)
}

type NotificationTokensStore interface {
	UpsertToken(ctx context.Context, userID, token, platform string, when time.Time) (domain.NotificationToken, error)
	DeleteToken(ctx context.Context, userID, token string) error
	ListTokens(ctx context.Context, userID string) ([]domain.NotificationToken, error)
}

type PushSender interface {
	Send(ctx context.Context, token string, msg notifications.Message) error
}

// Publisher pushes live events to a realtime room.
type Publisher interface {
	Publish(ctx context.Context, room, event string, data any) error
}

// Event is a notification about to be delivered. Payload holds type-specific
// fields and is stored as JSON.
type Event struct {
	Type     domain.NotificationType
	Message  string
	SenderID string
	Payload  any
}

// Notifier is the part of NotificationService other services depend on.
type Notifier interface {
	NotifyQuietly(ctx context.Context, userID string, ev Event)
	DeleteFromSender(ctx context.Context, userID string, t domain.NotificationType, senderID string) error
}

const notificationListLimit = 100

type NotificationService struct {
	Store     NotificationsStore
	Tokens    NotificationTokensStore
	Sender    PushSender
	Publisher Publisher
	Logger    *slog.Logger
	Now       func() time.Time
}

func (s *NotificationService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *NotificationService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Notify appends a record to the user's inbox and pushes it live and to the
// user's devices. Only the store write can fail the call.
func (s *NotificationService) Notify(ctx context.Context, userID string, ev Event) (domain.Notification, error) {
	n := domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      ev.Type,
		Message:   ev.Message,
		SenderID:  ev.SenderID,
		IsRead:    false,
		Timestamp: s.now().UTC(),
	}
	if ev.Payload != nil {
		raw, err := json.Marshal(ev.Payload)
		if err != nil {
			return domain.Notification{}, fmt.Errorf("encode notification payload: %w", err)
		}
		n.Payload = raw
	}

	if err := s.Store.Insert(ctx, n); err != nil {
		return domain.Notification{}, err
	}

	s.publish(ctx, userID, realtime.EventNewNotification, n)
	s.push(ctx, n)
	return n, nil
}

// NotifyQuietly is Notify for side effects: failures are logged and dropped so
// the action that caused them still succeeds.
func (s *NotificationService) NotifyQuietly(ctx context.Context, userID string, ev Event) {
	if _, err := s.Notify(ctx, userID, ev); err != nil {
		s.logger().Error("notifications: notify failed", "err", err, "user_id", userID, "type", ev.Type)
	}
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	out, err := s.Store.List(ctx, userID, notificationListLimit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Notification{}
	}
	return out, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.Store.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (domain.Notification, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Notification{}, domain.NewValidationError(map[string]string{"notificationId": "required"})
	}
	n, err := s.Store.MarkRead(ctx, userID, id)
	if err != nil {
		return domain.Notification{}, err
	}
	s.publish(ctx, userID, realtime.EventNotificationUpdated, n)
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	changed, err := s.Store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, n := range changed {
		s.publish(ctx, userID, realtime.EventNotificationUpdated, n)
	}
	return len(changed), nil
}

func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.NewValidationError(map[string]string{"notificationId": "required"})
	}
	if err := s.Store.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.publish(ctx, userID, realtime.EventNotificationDeleted, deletedNotification{ID: id})
	return nil
}

// DeleteFromSender prunes userID's notifications of type t sent by senderID.
func (s *NotificationService) DeleteFromSender(ctx context.Context, userID string, t domain.NotificationType, senderID string) error {
	ids, err := s.Store.DeleteFromSender(ctx, userID, t, senderID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		s.publish(ctx, userID, realtime.EventNotificationDeleted, deletedNotification{ID: id})
	}
	return nil
}

type deletedNotification struct {
	ID string `json:"notificationId"`
}

func (s *NotificationService) publish(ctx context.Context, userID, event string, data any) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(ctx, realtime.NotificationsRoom(userID), event, data); err != nil {
		s.logger().Warn("notifications: live push failed", "err", err, "user_id", userID, "event", event)
	}
}

func (s *NotificationService) push(ctx context.Context, n domain.Notification) {
	if s.Tokens == nil || s.Sender == nil {
		return
	}
	logger := s.logger()

	tokens, err := s.Tokens.ListTokens(ctx, n.UserID)
	if err != nil {
		logger.Error("notifications: list tokens failed", "err", err, "user_id", n.UserID)
		return
	}
	if len(tokens) == 0 {
		return
	}

	data := map[string]string{
		"type":           string(n.Type),
		"notificationId": n.ID,
		"message":        n.Message,
	}
	if n.SenderID != "" {
		data["senderId"] = n.SenderID
	}
	dataOnlyMsg := notifications.Message{Data: data}
	iosAlertMsg := notifications.Message{
		Data: data,
		Notification: &notifications.Notification{
			Title: "E-Community",
			Body:  n.Message,
		},
	}

	for _, token := range tokens {
		msg := dataOnlyMsg
		if strings.TrimSpace(strings.ToLower(token.Platform)) == "ios" {
			msg = iosAlertMsg
		}
		if err := s.Sender.Send(ctx, token.Token, msg); err != nil {
			if errors.Is(err, notifications.ErrInvalidToken) {
				if delErr := s.Tokens.DeleteToken(ctx, n.UserID, token.Token); delErr != nil {
					logger.Error("notifications: delete invalid token failed", "err", delErr, "user_id", n.UserID)
				}
				continue
			}
			logger.Error("notifications: send failed", "err", err, "user_id", n.UserID)
		}
	}
}

func (s *NotificationService) RegisterToken(ctx context.Context, userID, token, platform string) (domain.NotificationToken, error) {
	if s.Tokens == nil {
		return domain.NotificationToken{}, errors.New("notifications unavailable")
	}
	token = strings.TrimSpace(token)
	platform = strings.TrimSpace(strings.ToLower(platform))
	if token == "" || platform == "" {
		return domain.NotificationToken{}, domain.NewValidationError(map[string]string{"token": "required", "platform": "required"})
	}
	switch platform {
	case "android", "ios":
	default:
		return domain.NotificationToken{}, domain.NewValidationError(map[string]string{"platform": "must be ios or android"})
	}
	when := s.now().UTC().Truncate(time.Millisecond)
	return s.Tokens.UpsertToken(ctx, userID, token, platform, when)
}

func (s *NotificationService) DeleteToken(ctx context.Context, userID, token string) error {
	if s.Tokens == nil {
		return errors.New("notifications unavailable")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.NewValidationError(map[string]string{"token": "required"})
	}
	return s.Tokens.DeleteToken(ctx, userID, token)
}
