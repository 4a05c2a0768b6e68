package httpapi

import (
	"net/http"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

type profileUpdateRequest struct {
	Username     *string `json:"username"`
	Firstname    *string `json:"firstname"`
	Lastname     *string `json:"lastname"`
	About        *string `json:"about"`
	LivesIn      *string `json:"livesin"`
	Avatar       *string `json:"avatar"`
	CoverPicture *string `json:"coverPicture"`
}

func (a *api) handleUsersGet(w http.ResponseWriter, r *http.Request) {
	p, err := a.usersSvc.GetProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

func (a *api) handleUsersUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req profileUpdateRequest
	if err := decodeJSONLenient(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	if req.Username != nil {
		name := normalizeUsername(*req.Username)
		if !validUsername(name) {
			WriteDomainError(w, domain.NewValidationError(map[string]string{"username": "must be 3-24 chars [A-Za-z0-9_]"}))
			return
		}
		req.Username = &name
	}

	updated, err := a.usersSvc.UpdateProfile(r.Context(), u.ID, r.PathValue("id"), domain.ProfileUpdate{
		Username:     req.Username,
		Firstname:    req.Firstname,
		Lastname:     req.Lastname,
		About:        req.About,
		LivesIn:      req.LivesIn,
		Avatar:       req.Avatar,
		CoverPicture: req.CoverPicture,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, updated)
}
