package httpapi

import (
	"net/http"
	"strings"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

type notificationIDRequest struct {
	NotificationID string `json:"notificationId"`
}

type unreadCountResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

type markedReadResponse struct {
	Success      bool                `json:"success"`
	Message      string              `json:"message"`
	Notification domain.Notification `json:"notification"`
}

type markedAllReadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Updated int    `json:"updated"`
}

type notificationTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (a *api) handleNotificationsList(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	out, err := a.notificationsSvc.List(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

func (a *api) handleNotificationsCount(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	n, err := a.notificationsSvc.UnreadCount(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, unreadCountResponse{Success: true, Count: n})
}

func (a *api) handleNotificationsRead(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req notificationIDRequest
	if err := decodeJSONLenient(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	n, err := a.notificationsSvc.MarkRead(r.Context(), u.ID, strings.TrimSpace(req.NotificationID))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, markedReadResponse{Success: true, Message: "Notification marked as read", Notification: n})
}

func (a *api) handleNotificationsReadAll(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	n, err := a.notificationsSvc.MarkAllRead(r.Context(), u.ID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, markedAllReadResponse{Success: true, Message: "All notifications marked as read", Updated: n})
}

// handleNotificationsDelete reads the id from the body, or from the query for
// clients that cannot send a DELETE body.
func (a *api) handleNotificationsDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("notificationId"))
	if id == "" {
		var req notificationIDRequest
		if err := decodeJSONLenient(w, r, &req); err != nil {
			writeBadJSON(w)
			return
		}
		id = strings.TrimSpace(req.NotificationID)
	}

	if err := a.notificationsSvc.Delete(r.Context(), u.ID, id); err != nil {
		WriteDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Notification deleted")
}

func (a *api) handleNotificationsTokenUpsert(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req notificationTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	out, err := a.notificationsSvc.RegisterToken(r.Context(), u.ID, req.Token, req.Platform)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

func (a *api) handleNotificationsTokenDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	if err := a.notificationsSvc.DeleteToken(r.Context(), u.ID, r.URL.Query().Get("token")); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
