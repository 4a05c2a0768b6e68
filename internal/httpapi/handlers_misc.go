package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

func (a *api) handleRoot(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Server is running!"})
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}

func (a *api) handleTagsList(w http.ResponseWriter, r *http.Request) {
	out, err := a.tagsSvc.List(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

// handleWS upgrades an authenticated request onto the realtime hub.
func (a *api) handleWS(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	a.hub.ServeWS(w, r, u.ID)
}
