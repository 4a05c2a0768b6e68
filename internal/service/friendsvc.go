package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

type FriendshipsStore interface {
	Relation(ctx context.Context, viewerID, otherID string) (domain.Relation, error)
	CreateRequest(ctx context.Context, senderID, recipientID string, when time.Time) (domain.FriendRequest, error)
	Accept(ctx context.Context, requestID, recipientID string, when time.Time) (domain.FriendRequest, error)
	Reject(ctx context.Context, requestID, recipientID string) (domain.FriendRequest, error)
	Cancel(ctx context.Context, senderID, recipientID string) (string, error)
	RemoveFriend(ctx context.Context, userID, friendID string) error
	AreFriends(ctx context.Context, userA, userB string) (bool, error)
	ListFriends(ctx context.Context, userID string) ([]domain.UserSummary, error)
	ListRequests(ctx context.Context, userID string) (domain.FriendRequests, error)
}

type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
}

type FriendsService struct {
	Users       UserLookup
	Friendships FriendshipsStore
	Notifier    Notifier
	Logger      *slog.Logger
	Now         func() time.Time
}

func (s *FriendsService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *FriendsService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// lookup resolves a user that must exist for the transition to make sense.
func lookup(ctx context.Context, users UserLookup, id string) (domain.User, error) {
	u, err := users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.Decline(domain.ErrNotFound, "User not found")
		}
		return domain.User{}, err
	}
	return u, nil
}

func (s *FriendsService) SendRequest(ctx context.Context, senderID, targetID string) (domain.FriendRequest, error) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return domain.FriendRequest{}, domain.NewValidationError(map[string]string{"targetUserId": "required"})
	}
	if targetID == senderID {
		return domain.FriendRequest{}, domain.Decline(domain.ErrValidation, "You cannot send a friend request to yourself")
	}

	target, err := lookup(ctx, s.Users, targetID)
	if err != nil {
		return domain.FriendRequest{}, err
	}
	if target.Status == domain.UserStatusDisabled {
		return domain.FriendRequest{}, domain.Decline(domain.ErrNotFound, "User not found")
	}
	sender, err := lookup(ctx, s.Users, senderID)
	if err != nil {
		return domain.FriendRequest{}, err
	}

	rel, err := s.Friendships.Relation(ctx, senderID, targetID)
	if err != nil {
		return domain.FriendRequest{}, err
	}
	switch {
	case rel.IsFriend:
		return domain.FriendRequest{}, domain.Decline(domain.ErrConflict, "You are already friends with this user")
	case rel.RequestSent:
		return domain.FriendRequest{}, domain.Decline(domain.ErrConflict, "Friend request already sent")
	case rel.RequestReceived:
		return domain.FriendRequest{}, domain.Decline(domain.ErrConflict, "This user has already sent you a friend request")
	}

	fr, err := s.Friendships.CreateRequest(ctx, senderID, targetID, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrFriendshipExists) {
			return domain.FriendRequest{}, domain.Decline(domain.ErrConflict, "Friend request already sent")
		}
		return domain.FriendRequest{}, err
	}
	fr.From = sender.Summary()
	fr.To = target.Summary()

	s.Notifier.NotifyQuietly(ctx, targetID, Event{
		Type:     domain.NotificationFriendRequest,
		Message:  sender.Username + " sent you a friend request",
		SenderID: senderID,
		Payload:  map[string]string{"requestId": fr.ID, "senderName": sender.Username},
	})
	return fr, nil
}

func (s *FriendsService) Accept(ctx context.Context, recipientID, requestID string) (domain.FriendRequest, error) {
	fr, err := s.Friendships.Accept(ctx, requestID, recipientID, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.FriendRequest{}, domain.Decline(domain.ErrNotFound, "Friend request not found")
		}
		return domain.FriendRequest{}, err
	}

	s.pruneRequestNotification(ctx, recipientID, fr.From.ID)

	recipient, err := s.Users.GetUserByID(ctx, recipientID)
	if err != nil {
		s.logger().Warn("friends: recipient lookup failed", "err", err, "user_id", recipientID)
	} else {
		fr.To = recipient.Summary()
	}
	name := fr.To.Username
	if name == "" {
		name = "Someone"
	}
	s.Notifier.NotifyQuietly(ctx, fr.From.ID, Event{
		Type:     domain.NotificationFriendRequestAccepted,
		Message:  name + " accepted your friend request",
		SenderID: recipientID,
		Payload:  map[string]string{"requestId": fr.ID},
	})
	return fr, nil
}

func (s *FriendsService) Reject(ctx context.Context, recipientID, requestID string) (domain.FriendRequest, error) {
	fr, err := s.Friendships.Reject(ctx, requestID, recipientID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.FriendRequest{}, domain.Decline(domain.ErrNotFound, "Friend request not found")
		}
		return domain.FriendRequest{}, err
	}
	s.pruneRequestNotification(ctx, recipientID, fr.From.ID)
	return fr, nil
}

// Cancel withdraws senderID's pending request to targetID.
func (s *FriendsService) Cancel(ctx context.Context, senderID, targetID string) error {
	if _, err := s.Friendships.Cancel(ctx, senderID, targetID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Decline(domain.ErrNotFound, "No pending friend request to this user")
		}
		return err
	}
	s.pruneRequestNotification(ctx, targetID, senderID)
	return nil
}

func (s *FriendsService) Remove(ctx context.Context, userID, friendID string) error {
	if err := s.Friendships.RemoveFriend(ctx, userID, friendID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Decline(domain.ErrValidation, "You are not friends with this user")
		}
		return err
	}
	return nil
}

// ListFriends is visible to the user and to their friends.
func (s *FriendsService) ListFriends(ctx context.Context, viewerID, userID string) (domain.FriendsList, error) {
	if _, err := lookup(ctx, s.Users, userID); err != nil {
		return domain.FriendsList{}, err
	}
	if viewerID != userID {
		ok, err := s.Friendships.AreFriends(ctx, viewerID, userID)
		if err != nil {
			return domain.FriendsList{}, err
		}
		if !ok {
			return domain.FriendsList{}, domain.Decline(domain.ErrForbidden, "You can only view the friends of your friends")
		}
	}

	friends, err := s.Friendships.ListFriends(ctx, userID)
	if err != nil {
		return domain.FriendsList{}, err
	}
	if friends == nil {
		friends = []domain.UserSummary{}
	}
	return domain.FriendsList{Friends: friends, FriendsCount: len(friends)}, nil
}

func (s *FriendsService) ListRequests(ctx context.Context, userID string) (domain.FriendRequests, error) {
	return s.Friendships.ListRequests(ctx, userID)
}

func (s *FriendsService) Status(ctx context.Context, viewerID, targetID string) (domain.Relation, error) {
	if viewerID == targetID {
		return domain.Relation{}, domain.Decline(domain.ErrValidation, "You cannot check friendship status with yourself")
	}
	if _, err := lookup(ctx, s.Users, targetID); err != nil {
		return domain.Relation{}, err
	}
	return s.Friendships.Relation(ctx, viewerID, targetID)
}

func (s *FriendsService) pruneRequestNotification(ctx context.Context, recipientID, senderID string) {
	if err := s.Notifier.DeleteFromSender(ctx, recipientID, domain.NotificationFriendRequest, senderID); err != nil {
		s.logger().Warn("friends: prune request notification failed", "err", err, "user_id", recipientID)
	}
}
