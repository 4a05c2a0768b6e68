package domain

import "time"

type UserSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestRejected FriendRequestStatus = "rejected"
)

// FriendRequest is a pending request between two users. Accepted and rejected
// requests are not kept.
type FriendRequest struct {
	ID        string              `json:"id"`
	From      UserSummary         `json:"from"`
	To        UserSummary         `json:"to"`
	Status    FriendRequestStatus `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
}

type FriendRequests struct {
	Received      []FriendRequest `json:"receivedRequests"`
	Sent          []FriendRequest `json:"sentRequests"`
	ReceivedCount int             `json:"receivedCount"`
	SentCount     int             `json:"sentCount"`
}

type FriendsList struct {
	Friends      []UserSummary `json:"friends"`
	FriendsCount int           `json:"friendsCount"`
}

type FriendStatus string

const (
	FriendStatusNone            FriendStatus = "none"
	FriendStatusFriends         FriendStatus = "friends"
	FriendStatusRequestSent     FriendStatus = "request_sent"
	FriendStatusRequestReceived FriendStatus = "request_received"
)

// Relation is the friendship state between a viewer and another user.
type Relation struct {
	Status          FriendStatus `json:"status"`
	IsFriend        bool         `json:"isFriend"`
	RequestSent     bool         `json:"requestSent"`
	RequestReceived bool         `json:"requestReceived"`
	RequestID       string       `json:"requestId,omitempty"`
}
