package domain

import (
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotificationFriendRequest         NotificationType = "friend_request"
	NotificationFriendRequestAccepted NotificationType = "friend_request_accepted"
	NotificationNewMember             NotificationType = "new_member"
	NotificationAdminPromotion        NotificationType = "admin_promotion"
	NotificationAdminDemotion         NotificationType = "admin_demotion"
	NotificationCommunityRemoval      NotificationType = "community_removal"
	NotificationCommunityDeleted      NotificationType = "community_deleted"
	NotificationPostLike              NotificationType = "post_like"
	NotificationPostDislike           NotificationType = "post_dislike"
	NotificationPostComment           NotificationType = "post_comment"
)

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"-"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	SenderID  string           `json:"senderId,omitempty"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
	IsRead    bool             `json:"isRead"`
	Timestamp time.Time        `json:"timestamp"`
}

type NotificationToken struct {
	ID        string    `json:"-"`
	UserID    string    `json:"-"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
