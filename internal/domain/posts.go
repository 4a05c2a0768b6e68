package domain

import "time"

type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

type Post struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Content       string      `json:"content"`
	Author        UserSummary `json:"author"`
	CommunityID   string      `json:"communityId"`
	CommunityName string      `json:"communityName,omitempty"`
	Tags          []string    `json:"tags"`
	Image         string      `json:"image,omitempty"`
	Likes         []string    `json:"likes"`
	Dislikes      []string    `json:"dislikes"`
	CommentCount  int         `json:"commentCount"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

type NewPost struct {
	Title       string
	Content     string
	AuthorID    string
	CommunityID string
	Tags        []string
	Image       string
}

// PostFilter narrows a post listing. Empty fields match everything.
type PostFilter struct {
	AuthorID    string
	CommunityID string
}

type Comment struct {
	ID              string      `json:"id"`
	PostID          string      `json:"postId"`
	Author          UserSummary `json:"author"`
	Content         string      `json:"content"`
	ParentCommentID string      `json:"parentComment,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// ReactionResult is the state of a post after a like or dislike toggle.
type ReactionResult struct {
	Active   bool         `json:"active"`
	Kind     ReactionKind `json:"kind"`
	Likes    int          `json:"likes"`
	Dislikes int          `json:"dislikes"`
}
