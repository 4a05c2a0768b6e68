package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
	"github.com/TheProfessor0105/E-Community-Forum/internal/service"
)

type communityRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Privacy     string   `json:"privacy"`
	Tags        []string `json:"tags"`
	Image       string   `json:"image"`
	CoverImage  string   `json:"coverImage"`
}

type memberRequest struct {
	Member string `json:"member"`
}

type joinResponse struct {
	Message string `json:"message"`
	service.JoinOutcome
}

type leaveResponse struct {
	Message string `json:"message"`
	domain.LeaveOutcome
}

func (a *api) handleCommunitiesList(w http.ResponseWriter, r *http.Request) {
	out, err := a.communitiesSvc.List(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(out))
}

// handleCommunitiesSubresource serves /api/communities/user/{userId} and
// /api/communities/{id}/members, which overlap as mux patterns.
func (a *api) handleCommunitiesSubresource(w http.ResponseWriter, r *http.Request) {
	first, second := r.PathValue("first"), r.PathValue("second")
	switch {
	case first == "user":
		a.listCommunitiesForUser(w, r, second)
	case second == "members":
		a.listMembers(w, r, first)
	default:
		handleAPINotFound(w, r)
	}
}

func (a *api) listCommunitiesForUser(w http.ResponseWriter, r *http.Request, userID string) {
	out, err := a.communitiesSvc.ListForUser(r.Context(), userID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(out))
}

func (a *api) handleCommunitiesGet(w http.ResponseWriter, r *http.Request) {
	c, err := a.communitiesSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, c)
}

func (a *api) listMembers(w http.ResponseWriter, r *http.Request, communityID string) {
	out, err := a.communitiesSvc.Members(r.Context(), communityID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(out))
}

func (a *api) handleCommunitiesCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req communityRequest
	if err := decodeJSONLenient(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	c, err := a.communitiesSvc.Create(r.Context(), u.ID, service.CommunityInput{
		Name:        req.Name,
		Description: req.Description,
		Privacy:     domain.CommunityPrivacy(strings.ToLower(strings.TrimSpace(req.Privacy))),
		Tags:        req.Tags,
		Image:       req.Image,
		CoverImage:  req.CoverImage,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, c)
}

func (a *api) handleCommunitiesDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	if err := a.communitiesSvc.Delete(r.Context(), u.ID, r.PathValue("id")); err != nil {
		WriteDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Community deleted successfully")
}

func (a *api) handleCommunitiesJoin(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	out, err := a.communitiesSvc.Join(r.Context(), u.ID, r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	msg := "Joined the community"
	if !out.Joined {
		msg = "Already a member of this community"
	}
	WriteJSON(w, http.StatusOK, joinResponse{Message: msg, JoinOutcome: out})
}

func (a *api) handleCommunitiesLeave(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	out, err := a.communitiesSvc.Leave(r.Context(), u.ID, r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	msg := "You have left the community."
	if out.NewAuthorID != "" {
		msg = "You have left the community. Another admin has been promoted to community author."
	}
	WriteJSON(w, http.StatusOK, leaveResponse{Message: msg, LeaveOutcome: out})
}

func (a *api) handleCommunitiesPromote(w http.ResponseWriter, r *http.Request) {
	a.handleCommunitiesRoleChange(w, r, a.communitiesSvc.Promote)
}

func (a *api) handleCommunitiesDemote(w http.ResponseWriter, r *http.Request) {
	a.handleCommunitiesRoleChange(w, r, a.communitiesSvc.Demote)
}

type roleChange func(ctx context.Context, actorID, id, memberID string) (domain.Community, error)

func (a *api) handleCommunitiesRoleChange(w http.ResponseWriter, r *http.Request, change roleChange) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req memberRequest
	if err := decodeJSONLenient(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	member := strings.TrimSpace(req.Member)
	if member == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"member": "required"}))
		return
	}

	c, err := change(r.Context(), u.ID, r.PathValue("id"), member)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, c)
}

func (a *api) handleCommunitiesRemoveMember(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	if err := a.communitiesSvc.RemoveMember(r.Context(), u.ID, r.PathValue("id"), r.PathValue("memberId")); err != nil {
		WriteDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Member removed")
}

// nonNil keeps empty collections rendering as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
