package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
	"github.com/TheProfessor0105/E-Community-Forum/internal/service"
)

type discussionRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	MaxParticipants int      `json:"maxParticipants"`
	Category        string   `json:"category"`
	Tags            []string `json:"tags"`
}

type contentRequest struct {
	Content string `json:"content"`
}

type discussionResponse struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message,omitempty"`
	Discussion domain.Discussion `json:"discussion"`
}

type discussionPageResponse struct {
	Success bool `json:"success"`
	domain.DiscussionPage
}

type discussionViewResponse struct {
	Success       bool              `json:"success"`
	Discussion    domain.Discussion `json:"discussion"`
	IsParticipant bool              `json:"isParticipant"`
}

type newMessageResponse struct {
	Success    bool                     `json:"success"`
	Message    string                   `json:"message"`
	NewMessage domain.DiscussionMessage `json:"newMessage"`
}

type updatedMessageResponse struct {
	Success        bool                     `json:"success"`
	Message        string                   `json:"message"`
	UpdatedMessage domain.DiscussionMessage `json:"updatedMessage"`
}

func (a *api) handleDiscussionsCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req discussionRequest
	if err := decodeJSONLenient(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	d, err := a.discussionsSvc.Create(r.Context(), u.ID, service.DiscussionInput{
		Title:           req.Title,
		Description:     req.Description,
		MaxParticipants: req.MaxParticipants,
		Category:        domain.DiscussionCategory(strings.ToLower(strings.TrimSpace(req.Category))),
		Tags:            req.Tags,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, discussionResponse{Success: true, Message: "Discussion created successfully", Discussion: d})
}

func (a *api) handleDiscussionsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := pageParams(r)
	category := strings.ToLower(strings.TrimSpace(q.Get("category")))
	if category == "all" {
		category = ""
	}

	out, err := a.discussionsSvc.List(r.Context(), domain.DiscussionFilter{
		Category: domain.DiscussionCategory(category),
		Search:   q.Get("search"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, discussionPageResponse{Success: true, DiscussionPage: out})
}

func (a *api) handleDiscussionsMine(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	page, limit := pageParams(r)
	out, err := a.discussionsSvc.ListMine(r.Context(), u.ID, page, limit)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, discussionPageResponse{Success: true, DiscussionPage: out})
}

func (a *api) handleDiscussionsGet(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	v, err := a.discussionsSvc.Get(r.Context(), u.ID, r.PathValue("discussionId"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, discussionViewResponse{Success: true, Discussion: v.Discussion, IsParticipant: v.IsParticipant})
}

func (a *api) handleDiscussionsJoin(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	d, err := a.discussionsSvc.Join(r.Context(), u.ID, r.PathValue("discussionId"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, discussionResponse{Success: true, Message: "Joined discussion successfully", Discussion: d})
}

func (a *api) handleDiscussionsLeave(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	if err := a.discussionsSvc.Leave(r.Context(), u.ID, r.PathValue("discussionId")); err != nil {
		WriteDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Left discussion successfully")
}

func (a *api) handleDiscussionsPostMessage(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req contentRequest
	if err := decodeJSONLenient(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	m, err := a.discussionsSvc.PostMessage(r.Context(), u.ID, r.PathValue("discussionId"), req.Content)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, newMessageResponse{Success: true, Message: "Message sent successfully", NewMessage: m})
}

func (a *api) handleDiscussionsEditMessage(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req contentRequest
	if err := decodeJSONLenient(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	m, err := a.discussionsSvc.EditMessage(r.Context(), u.ID, r.PathValue("discussionId"), r.PathValue("messageId"), req.Content)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, updatedMessageResponse{Success: true, Message: "Message updated successfully", UpdatedMessage: m})
}

func (a *api) handleDiscussionsDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	if err := a.discussionsSvc.Delete(r.Context(), u.ID, r.PathValue("discussionId")); err != nil {
		WriteDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Discussion deleted successfully")
}

// pageParams reads ?page= and ?limit=, leaving bad values to the store
// defaults.
func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(strings.TrimSpace(q.Get("page")))
	limit, _ := strconv.Atoi(strings.TrimSpace(q.Get("limit")))
	return page, limit
}
