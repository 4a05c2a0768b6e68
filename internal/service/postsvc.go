package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

type PostsStore interface {
	Create(ctx context.Context, np domain.NewPost, when time.Time) (domain.Post, error)
	Get(ctx context.Context, id string) (domain.Post, error)
	List(ctx context.Context, f domain.PostFilter) ([]domain.Post, error)
	Update(ctx context.Context, id string, title, content *string, when time.Time) (domain.Post, error)
	Delete(ctx context.Context, id string) error
	React(ctx context.Context, postID, userID string, kind domain.ReactionKind, when time.Time) (domain.ReactionResult, error)
	AddComment(ctx context.Context, postID, authorID, content, parentID string, when time.Time) (domain.Comment, error)
	ListComments(ctx context.Context, postID string) ([]domain.Comment, error)
}

type PostInput struct {
	Title       string
	Content     string
	CommunityID string
	Tags        []string
	Image       string
}

type PostService struct {
	Posts       PostsStore
	Communities CommunitiesStore
	Users       UserLookup
	Notifier    Notifier
	Logger      *slog.Logger
	Now         func() time.Time
}

func (s *PostService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *PostService) List(ctx context.Context, f domain.PostFilter) ([]domain.Post, error) {
	return s.Posts.List(ctx, f)
}

func (s *PostService) Get(ctx context.Context, id string) (domain.Post, error) {
	p, err := s.Posts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Post{}, domain.Decline(domain.ErrNotFound, "Post not found")
		}
		return domain.Post{}, err
	}
	return p, nil
}

func (s *PostService) community(ctx context.Context, id string) (domain.Community, error) {
	c, err := s.Communities.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Community{}, domain.Decline(domain.ErrNotFound, "Community not found")
		}
		return domain.Community{}, err
	}
	return c, nil
}

func (s *PostService) Create(ctx context.Context, authorID string, in PostInput) (domain.Post, error) {
	np := domain.NewPost{
		Title:       strings.TrimSpace(in.Title),
		Content:     strings.TrimSpace(in.Content),
		AuthorID:    authorID,
		CommunityID: strings.TrimSpace(in.CommunityID),
		Tags:        cleanTags(in.Tags, 0),
		Image:       strings.TrimSpace(in.Image),
	}
	fields := map[string]string{}
	if np.Title == "" {
		fields["title"] = "required"
	}
	if np.Content == "" {
		fields["content"] = "required"
	}
	if np.CommunityID == "" {
		fields["communityId"] = "required"
	}
	if len(fields) > 0 {
		return domain.Post{}, domain.NewValidationError(fields)
	}

	c, err := s.community(ctx, np.CommunityID)
	if err != nil {
		return domain.Post{}, err
	}
	role, err := s.Communities.Role(ctx, c.ID, authorID)
	if err != nil {
		return domain.Post{}, err
	}
	if !c.CanPost(authorID, role) {
		if role == domain.RoleNone {
			return domain.Post{}, domain.Decline(domain.ErrForbidden, "You must be a member of this community to post")
		}
		return domain.Post{}, domain.Decline(domain.ErrForbidden, "Only admins can post in this community")
	}

	return s.Posts.Create(ctx, np, s.now().UTC())
}

func (s *PostService) Update(ctx context.Context, userID, id string, title, content *string) (domain.Post, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return domain.Post{}, err
	}
	if p.Author.ID != userID {
		return domain.Post{}, domain.Decline(domain.ErrForbidden, "You can only edit your own posts")
	}

	fields := map[string]string{}
	if title != nil {
		t := strings.TrimSpace(*title)
		if t == "" {
			fields["title"] = "must not be empty"
		}
		title = &t
	}
	if content != nil {
		c := strings.TrimSpace(*content)
		if c == "" {
			fields["content"] = "must not be empty"
		}
		content = &c
	}
	if len(fields) > 0 {
		return domain.Post{}, domain.NewValidationError(fields)
	}
	if title == nil && content == nil {
		return p, nil
	}
	return s.Posts.Update(ctx, id, title, content, s.now().UTC())
}

// Delete is open to the post author, the community author, and community
// admins except on posts written by the community author.
func (s *PostService) Delete(ctx context.Context, userID, id string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.Author.ID != userID {
		c, err := s.community(ctx, p.CommunityID)
		if err != nil {
			return err
		}
		allowed := userID == c.AuthorID
		if !allowed && p.Author.ID != c.AuthorID {
			role, err := s.Communities.Role(ctx, c.ID, userID)
			if err != nil {
				return err
			}
			allowed = role == domain.RoleAdmin
		}
		if !allowed {
			return domain.Decline(domain.ErrForbidden, "You are not allowed to delete this post")
		}
	}
	return s.Posts.Delete(ctx, id)
}

func (s *PostService) Like(ctx context.Context, userID, id string) (domain.ReactionResult, error) {
	return s.react(ctx, userID, id, domain.ReactionLike)
}

func (s *PostService) Dislike(ctx context.Context, userID, id string) (domain.ReactionResult, error) {
	return s.react(ctx, userID, id, domain.ReactionDislike)
}

func (s *PostService) react(ctx context.Context, userID, id string, kind domain.ReactionKind) (domain.ReactionResult, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return domain.ReactionResult{}, err
	}
	res, err := s.Posts.React(ctx, id, userID, kind, s.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ReactionResult{}, domain.Decline(domain.ErrNotFound, "Post not found")
		}
		return domain.ReactionResult{}, err
	}

	if res.Active && p.Author.ID != userID {
		t, verb := domain.NotificationPostLike, " liked your post"
		if kind == domain.ReactionDislike {
			t, verb = domain.NotificationPostDislike, " disliked your post"
		}
		s.Notifier.NotifyQuietly(ctx, p.Author.ID, Event{
			Type:     t,
			Message:  s.username(ctx, userID) + verb,
			SenderID: userID,
			Payload:  map[string]string{"postId": p.ID, "postTitle": p.Title},
		})
	}
	return res, nil
}

func (s *PostService) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	if _, err := s.Get(ctx, postID); err != nil {
		return nil, err
	}
	return s.Posts.ListComments(ctx, postID)
}

func (s *PostService) AddComment(ctx context.Context, userID, postID, content, parentID string) (domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Comment{}, domain.NewValidationError(map[string]string{"content": "required"})
	}
	p, err := s.Get(ctx, postID)
	if err != nil {
		return domain.Comment{}, err
	}
	c, err := s.Posts.AddComment(ctx, postID, userID, content, strings.TrimSpace(parentID), s.now().UTC())
	if err != nil {
		return domain.Comment{}, err
	}

	if p.Author.ID != userID {
		s.Notifier.NotifyQuietly(ctx, p.Author.ID, Event{
			Type:     domain.NotificationPostComment,
			Message:  s.username(ctx, userID) + " commented on your post",
			SenderID: userID,
			Payload:  map[string]string{"postId": p.ID, "commentId": c.ID},
		})
	}
	return c, nil
}

func (s *PostService) username(ctx context.Context, userID string) string {
	if s.Users != nil {
		if u, err := s.Users.GetUserByID(ctx, userID); err == nil {
			return u.Username
		}
	}
	return "Someone"
}
