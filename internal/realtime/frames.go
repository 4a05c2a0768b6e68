package realtime

import (
	"context"
	"encoding/json"
	"fmt"
)

// Server events.
const (
	EventNewNotification     = "new-notification"
	EventNotificationUpdated = "notification-updated"
	EventNotificationDeleted = "notification-deleted"
	EventNewMessage          = "new-message"
	EventMessageUpdated      = "message-updated"

	eventJoined = "joined"
	eventLeft   = "left"
	eventError  = "error"
)

// Client events.
const (
	eventJoinNotifications  = "join-notifications"
	eventLeaveNotifications = "leave-notifications"
	eventJoinDiscussion     = "join-discussion"
	eventLeaveDiscussion    = "leave-discussion"
)

func NotificationsRoom(userID string) string { return "notifications-" + userID }

func DiscussionRoom(discussionID string) string { return "discussion-" + discussionID }

// Frame is the envelope exchanged over the socket in both directions.
type Frame struct {
	Event string          `json:"event"`
	Room  string          `json:"room,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Publisher pushes an event to every socket subscribed to room. Delivery is
// best effort.
type Publisher interface {
	Publish(ctx context.Context, room, event string, data any) error
}

func encodeFrame(room, event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	payload, err := json.Marshal(Frame{Event: event, Room: room, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", event, err)
	}
	return payload, nil
}
