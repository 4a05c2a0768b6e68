package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
	"github.com/TheProfessor0105/E-Community-Forum/internal/service"
)

type stubFriendshipsStore struct {
	t *testing.T

	relationFunc      func(context.Context, string, string) (domain.Relation, error)
	createRequestFunc func(context.Context, string, string, time.Time) (domain.FriendRequest, error)
	acceptFunc        func(context.Context, string, string, time.Time) (domain.FriendRequest, error)
	cancelFunc        func(context.Context, string, string) (string, error)
	areFriendsFunc    func(context.Context, string, string) (bool, error)
	listFriendsFunc   func(context.Context, string) ([]domain.UserSummary, error)
}

func (s *stubFriendshipsStore) Relation(ctx context.Context, viewerID, otherID string) (domain.Relation, error) {
	if s.relationFunc != nil {
		return s.relationFunc(ctx, viewerID, otherID)
	}
	s.t.Fatalf("Relation called unexpectedly")
	return domain.Relation{}, context.Canceled
}

func (s *stubFriendshipsStore) CreateRequest(ctx context.Context, senderID, recipientID string, when time.Time) (domain.FriendRequest, error) {
	if s.createRequestFunc != nil {
		return s.createRequestFunc(ctx, senderID, recipientID, when)
	}
	s.t.Fatalf("CreateRequest called unexpectedly")
	return domain.FriendRequest{}, context.Canceled
}

func (s *stubFriendshipsStore) Accept(ctx context.Context, requestID, recipientID string, when time.Time) (domain.FriendRequest, error) {
	if s.acceptFunc != nil {
		return s.acceptFunc(ctx, requestID, recipientID, when)
	}
	s.t.Fatalf("Accept called unexpectedly")
	return domain.FriendRequest{}, context.Canceled
}

func (s *stubFriendshipsStore) Reject(context.Context, string, string) (domain.FriendRequest, error) {
	s.t.Fatalf("Reject called unexpectedly")
	return domain.FriendRequest{}, context.Canceled
}

func (s *stubFriendshipsStore) Cancel(ctx context.Context, senderID, recipientID string) (string, error) {
	if s.cancelFunc != nil {
		return s.cancelFunc(ctx, senderID, recipientID)
	}
	s.t.Fatalf("Cancel called unexpectedly")
	return "", context.Canceled
}

func (s *stubFriendshipsStore) RemoveFriend(context.Context, string, string) error {
	s.t.Fatalf("RemoveFriend called unexpectedly")
	return context.Canceled
}

func (s *stubFriendshipsStore) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	if s.areFriendsFunc != nil {
		return s.areFriendsFunc(ctx, userA, userB)
	}
	s.t.Fatalf("AreFriends called unexpectedly")
	return false, context.Canceled
}

func (s *stubFriendshipsStore) ListFriends(ctx context.Context, userID string) ([]domain.UserSummary, error) {
	if s.listFriendsFunc != nil {
		return s.listFriendsFunc(ctx, userID)
	}
	s.t.Fatalf("ListFriends called unexpectedly")
	return nil, context.Canceled
}

func (s *stubFriendshipsStore) ListRequests(context.Context, string) (domain.FriendRequests, error) {
	s.t.Fatalf("ListRequests called unexpectedly")
	return domain.FriendRequests{}, context.Canceled
}

type userLookupFunc func(context.Context, string) (domain.User, error)

func (f userLookupFunc) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return f(ctx, id)
}

func knownUsers(ids ...string) userLookupFunc {
	return func(_ context.Context, id string) (domain.User, error) {
		for _, known := range ids {
			if known == id {
				return domain.User{ID: id, Username: "user_" + id, Status: domain.UserStatusActive}, nil
			}
		}
		return domain.User{}, domain.ErrNotFound
	}
}

type recordingNotifier struct {
	sent   []string
	pruned []string
}

func (n *recordingNotifier) NotifyQuietly(_ context.Context, userID string, ev service.Event) {
	n.sent = append(n.sent, userID+":"+string(ev.Type))
}

func (n *recordingNotifier) DeleteFromSender(_ context.Context, userID string, t domain.NotificationType, senderID string) error {
	n.pruned = append(n.pruned, userID+":"+string(t)+":"+senderID)
	return nil
}

func withUser(req *http.Request, id string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), authUserKey, domain.User{ID: id}))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var resp errorEnvelope
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestFriendsSendRequestToSelfIsDeclined(t *testing.T) {
	api := &api{
		friendsSvc: &service.FriendsService{
			Users:       knownUsers("user-1"),
			Friendships: &stubFriendshipsStore{t: t},
			Notifier:    &recordingNotifier{},
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/friendship/send-request", strings.NewReader(`{"targetUserId":"user-1"}`))
	rr := httptest.NewRecorder()
	api.handleFriendsSendRequest(rr, withUser(req, "user-1"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	resp := decodeError(t, rr)
	if resp.Success || resp.Message != "You cannot send a friend request to yourself" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

func TestFriendsSendRequestWhenReverseRequestPending(t *testing.T) {
	api := &api{
		friendsSvc: &service.FriendsService{
			Users: knownUsers("user-1", "user-2"),
			Friendships: &stubFriendshipsStore{
				t: t,
				relationFunc: func(_ context.Context, viewerID, otherID string) (domain.Relation, error) {
					if viewerID != "user-1" || otherID != "user-2" {
						t.Fatalf("unexpected relation ids: %s %s", viewerID, otherID)
					}
					return domain.Relation{Status: domain.FriendStatusRequestReceived, RequestReceived: true}, nil
				},
			},
			Notifier: &recordingNotifier{},
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/friendship/send-request", strings.NewReader(`{"targetUserId":"user-2"}`))
	rr := httptest.NewRecorder()
	api.handleFriendsSendRequest(rr, withUser(req, "user-1"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	resp := decodeError(t, rr)
	if resp.Error.Code != "conflict" || resp.Message != "This user has already sent you a friend request" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

func TestFriendsSendRequestNotifiesTarget(t *testing.T) {
	notifier := &recordingNotifier{}
	api := &api{
		friendsSvc: &service.FriendsService{
			Users: knownUsers("user-1", "user-2"),
			Friendships: &stubFriendshipsStore{
				t: t,
				relationFunc: func(context.Context, string, string) (domain.Relation, error) {
					return domain.Relation{Status: domain.FriendStatusNone}, nil
				},
				createRequestFunc: func(_ context.Context, senderID, recipientID string, _ time.Time) (domain.FriendRequest, error) {
					return domain.FriendRequest{ID: "req-1", Status: domain.FriendRequestPending}, nil
				},
			},
			Notifier: notifier,
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/friendship/send-request", strings.NewReader(`{"targetUserId":"user-2"}`))
	rr := httptest.NewRecorder()
	api.handleFriendsSendRequest(rr, withUser(req, "user-1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var resp friendRequestResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Request.ID != "req-1" || resp.Request.From.ID != "user-1" || resp.Request.To.ID != "user-2" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != "user-2:friend_request" {
		t.Fatalf("unexpected notifications: %v", notifier.sent)
	}
}

func TestFriendsAcceptMissingRequest(t *testing.T) {
	api := &api{
		friendsSvc: &service.FriendsService{
			Users: knownUsers("user-1"),
			Friendships: &stubFriendshipsStore{
				t: t,
				acceptFunc: func(_ context.Context, requestID, recipientID string, _ time.Time) (domain.FriendRequest, error) {
					if requestID != "req-9" || recipientID != "user-1" {
						t.Fatalf("unexpected accept ids: %s %s", requestID, recipientID)
					}
					return domain.FriendRequest{}, domain.ErrNotFound
				},
			},
			Notifier: &recordingNotifier{},
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/friendship/accept-request/req-9", nil)
	req.SetPathValue("requestId", "req-9")
	rr := httptest.NewRecorder()
	api.handleFriendsAccept(rr, withUser(req, "user-1"))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Message != "Friend request not found" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestFriendsListOfStrangerIsForbidden(t *testing.T) {
	api := &api{
		friendsSvc: &service.FriendsService{
			Users: knownUsers("user-1", "user-2"),
			Friendships: &stubFriendshipsStore{
				t: t,
				areFriendsFunc: func(context.Context, string, string) (bool, error) { return false, nil },
			},
			Notifier: &recordingNotifier{},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/friendship/friends/user-2", nil)
	req.SetPathValue("userId", "user-2")
	rr := httptest.NewRecorder()
	api.handleFriendsList(rr, withUser(req, "user-1"))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestFriendsListOwn(t *testing.T) {
	api := &api{
		friendsSvc: &service.FriendsService{
			Users: knownUsers("user-1"),
			Friendships: &stubFriendshipsStore{
				t: t,
				listFriendsFunc: func(context.Context, string) ([]domain.UserSummary, error) {
					return []domain.UserSummary{{ID: "user-2", Username: "alice"}}, nil
				},
			},
			Notifier: &recordingNotifier{},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/friendship/friends/user-1", nil)
	req.SetPathValue("userId", "user-1")
	rr := httptest.NewRecorder()
	api.handleFriendsList(rr, withUser(req, "user-1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var resp friendsListResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.FriendsCount != 1 || resp.Friends[0].Username != "alice" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}
