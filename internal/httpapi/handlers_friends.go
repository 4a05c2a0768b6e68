package httpapi

import (
	"net/http"
	"strings"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

type sendFriendRequestRequest struct {
	TargetUserID string `json:"targetUserId"`
}

type friendRequestResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Request domain.FriendRequest `json:"request"`
}

type friendsListResponse struct {
	Success bool `json:"success"`
	domain.FriendsList
}

type friendRequestsResponse struct {
	Success bool `json:"success"`
	domain.FriendRequests
}

type relationResponse struct {
	Success bool `json:"success"`
	domain.Relation
}

func (a *api) handleFriendsSendRequest(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req sendFriendRequestRequest
	if err := decodeJSONLenient(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	target := strings.TrimSpace(req.TargetUserID)
	if target == "" {
		WriteDomainError(w, domain.Decline(domain.ErrValidation, "Target user ID is required"))
		return
	}

	fr, err := a.friendsSvc.SendRequest(r.Context(), u.ID, target)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, friendRequestResponse{Success: true, Message: "Friend request sent successfully", Request: fr})
}

func (a *api) handleFriendsAccept(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	fr, err := a.friendsSvc.Accept(r.Context(), u.ID, strings.TrimSpace(r.PathValue("requestId")))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, friendRequestResponse{Success: true, Message: "Friend request accepted successfully", Request: fr})
}

func (a *api) handleFriendsReject(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	fr, err := a.friendsSvc.Reject(r.Context(), u.ID, strings.TrimSpace(r.PathValue("requestId")))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, friendRequestResponse{Success: true, Message: "Friend request rejected successfully", Request: fr})
}

func (a *api) handleFriendsCancel(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	if err := a.friendsSvc.Cancel(r.Context(), u.ID, strings.TrimSpace(r.PathValue("targetUserId"))); err != nil {
		WriteDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Friend request cancelled successfully")
}

func (a *api) handleFriendsRemove(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	if err := a.friendsSvc.Remove(r.Context(), u.ID, strings.TrimSpace(r.PathValue("friendId"))); err != nil {
		WriteDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Friend removed successfully")
}

func (a *api) handleFriendsList(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	out, err := a.friendsSvc.ListFriends(r.Context(), u.ID, strings.TrimSpace(r.PathValue("userId")))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, friendsListResponse{Success: true, FriendsList: out})
}

func (a *api) handleFriendsRequests(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	out, err := a.friendsSvc.ListRequests(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, friendRequestsResponse{Success: true, FriendRequests: out})
}

func (a *api) handleFriendsStatus(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	out, err := a.friendsSvc.Status(r.Context(), u.ID, strings.TrimSpace(r.PathValue("targetUserId")))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, relationResponse{Success: true, Relation: out})
}
