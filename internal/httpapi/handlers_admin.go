package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

type userStatusRequest struct {
	Status string `json:"status"`
}

func (a *api) handleAdminUsersList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(strings.TrimSpace(q.Get("limit")))
	offset, _ := strconv.Atoi(strings.TrimSpace(q.Get("offset")))
	if offset < 0 {
		offset = 0
	}

	out, err := a.adminSvc.ListUsers(r.Context(), strings.TrimSpace(q.Get("q")), limit, offset)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(out))
}

func (a *api) handleAdminUsersSetStatus(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req userStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	out, err := a.adminSvc.SetStatus(r.Context(), u.ID, r.PathValue("id"), domain.UserStatus(strings.ToLower(strings.TrimSpace(req.Status))))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}
