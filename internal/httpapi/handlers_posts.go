package httpapi

import (
	"context"
	"net/http"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
	"github.com/TheProfessor0105/E-Community-Forum/internal/service"
)

type postRequest struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	CommunityID string   `json:"communityId"`
	Tags        []string `json:"tags"`
	Image       string   `json:"image"`
}

type postUpdateRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

type commentRequest struct {
	Content       string `json:"content"`
	ParentComment string `json:"parentComment"`
}

func (a *api) handlePostsList(w http.ResponseWriter, r *http.Request) {
	a.listPosts(w, r, domain.PostFilter{})
}

// handlePostsSubresource serves /api/posts/user/{userId},
// /api/posts/community/{communityId} and /api/posts/{id}/comments, which
// overlap as mux patterns.
func (a *api) handlePostsSubresource(w http.ResponseWriter, r *http.Request) {
	first, second := r.PathValue("first"), r.PathValue("second")
	switch {
	case first == "user":
		a.listPosts(w, r, domain.PostFilter{AuthorID: second})
	case first == "community":
		a.listPosts(w, r, domain.PostFilter{CommunityID: second})
	case second == "comments":
		a.listComments(w, r, first)
	default:
		handleAPINotFound(w, r)
	}
}

func (a *api) listPosts(w http.ResponseWriter, r *http.Request, f domain.PostFilter) {
	out, err := a.postsSvc.List(r.Context(), f)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(out))
}

func (a *api) handlePostsGet(w http.ResponseWriter, r *http.Request) {
	p, err := a.postsSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

func (a *api) handlePostsCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req postRequest
	if err := decodeJSONLenient(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	p, err := a.postsSvc.Create(r.Context(), u.ID, service.PostInput{
		Title:       req.Title,
		Content:     req.Content,
		CommunityID: req.CommunityID,
		Tags:        req.Tags,
		Image:       req.Image,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, p)
}

func (a *api) handlePostsUpdate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req postUpdateRequest
	if err := decodeJSONLenient(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	p, err := a.postsSvc.Update(r.Context(), u.ID, r.PathValue("id"), req.Title, req.Content)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

func (a *api) handlePostsDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	if err := a.postsSvc.Delete(r.Context(), u.ID, r.PathValue("id")); err != nil {
		WriteDomainError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Post deleted successfully")
}

func (a *api) handlePostsLike(w http.ResponseWriter, r *http.Request) {
	a.react(w, r, a.postsSvc.Like)
}

func (a *api) handlePostsDislike(w http.ResponseWriter, r *http.Request) {
	a.react(w, r, a.postsSvc.Dislike)
}

func (a *api) react(w http.ResponseWriter, r *http.Request, toggle func(ctx context.Context, userID, id string) (domain.ReactionResult, error)) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	res, err := toggle(r.Context(), u.ID, r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (a *api) listComments(w http.ResponseWriter, r *http.Request, postID string) {
	out, err := a.postsSvc.ListComments(r.Context(), postID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(out))
}

func (a *api) handleCommentsCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req commentRequest
	if err := decodeJSONLenient(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	c, err := a.postsSvc.AddComment(r.Context(), u.ID, r.PathValue("id"), req.Content, req.ParentComment)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, c)
}
