package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postSelect = `
	SELECT p.id, p.title, p.content, p.community_id, c.name, p.tags, p.image,
		p.created_at, p.updated_at, ` + summaryColumns("au") + `,
		COALESCE((SELECT array_agg(r.user_id::text ORDER BY r.created_at) FROM post_reactions r
			WHERE r.post_id = p.id AND r.kind = 'like'), '{}'),
		COALESCE((SELECT array_agg(r.user_id::text ORDER BY r.created_at) FROM post_reactions r
			WHERE r.post_id = p.id AND r.kind = 'dislike'), '{}'),
		(SELECT count(*) FROM comments cm WHERE cm.post_id = p.id)
	FROM posts p
	JOIN users au ON au.id = p.author_id
	JOIN communities c ON c.id = p.community_id
`

type PostsStore struct {
	pool *pgxpool.Pool
}

func NewPostsStore(pool *pgxpool.Pool) *PostsStore {
	return &PostsStore{pool: pool}
}

func scanPost(row pgx.Row) (domain.Post, error) {
	var (
		p        domain.Post
		idUUID   pgtype.UUID
		commUUID pgtype.UUID
		author   summaryScan
	)
	dest := []any{&idUUID, &p.Title, &p.Content, &commUUID, &p.CommunityName, &p.Tags, &p.Image, &p.CreatedAt, &p.UpdatedAt}
	dest = append(dest, author.dest()...)
	dest = append(dest, &p.Likes, &p.Dislikes, &p.CommentCount)
	if err := row.Scan(dest...); err != nil {
		return domain.Post{}, err
	}
	p.ID = uuidOrEmpty(idUUID)
	p.CommunityID = uuidOrEmpty(commUUID)
	p.Author = author.value()
	p.Tags = nonNilStrings(p.Tags)
	p.Likes = nonNilStrings(p.Likes)
	p.Dislikes = nonNilStrings(p.Dislikes)
	return p, nil
}

func (s *PostsStore) Create(ctx context.Context, np domain.NewPost, when time.Time) (domain.Post, error) {
	const q = `
		INSERT INTO posts (title, content, author_id, community_id, tags, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id
	`
	var idUUID pgtype.UUID
	err := s.pool.QueryRow(ctx, q, np.Title, np.Content, np.AuthorID, np.CommunityID,
		nonNilStrings(np.Tags), np.Image, when).Scan(&idUUID)
	if err != nil {
		if code, _ := pgErrorCode(err); code == pgForeignKeyViolation || isMissing(err) {
			return domain.Post{}, domain.ErrNotFound
		}
		return domain.Post{}, fmt.Errorf("insert post: %w", err)
	}
	return s.Get(ctx, uuidOrEmpty(idUUID))
}

func (s *PostsStore) Get(ctx context.Context, id string) (domain.Post, error) {
	p, err := scanPost(s.pool.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if isMissing(err) {
			return domain.Post{}, domain.ErrNotFound
		}
		return domain.Post{}, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

// List returns posts newest first.
func (s *PostsStore) List(ctx context.Context, f domain.PostFilter) ([]domain.Post, error) {
	query := postSelect + `
		WHERE ($1 = '' OR p.author_id::text = $1)
		  AND ($2 = '' OR p.community_id::text = $2)
		ORDER BY p.created_at DESC, p.id
	`
	rows, err := s.pool.Query(ctx, query, f.AuthorID, f.CommunityID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	out := []domain.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return out, nil
}

func (s *PostsStore) Update(ctx context.Context, id string, title, content *string, when time.Time) (domain.Post, error) {
	const q = `
		UPDATE posts
		SET title = COALESCE($2, title),
			content = COALESCE($3, content),
			updated_at = $4
		WHERE id = $1
	`
	ct, err := s.pool.Exec(ctx, q, id, title, content, when)
	if err != nil {
		if isMissing(err) {
			return domain.Post{}, domain.ErrNotFound
		}
		return domain.Post{}, fmt.Errorf("update post: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.Post{}, domain.ErrNotFound
	}
	return s.Get(ctx, id)
}

func (s *PostsStore) Delete(ctx context.Context, id string) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		if isMissing(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete post: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// React toggles kind for userID. Repeating the same reaction clears it and a
// different reaction replaces the previous one.
func (s *PostsStore) React(ctx context.Context, postID, userID string, kind domain.ReactionKind, when time.Time) (domain.ReactionResult, error) {
	const current = `SELECT kind FROM post_reactions WHERE post_id = $1 AND user_id = $2 FOR UPDATE`
	const clearReaction = `DELETE FROM post_reactions WHERE post_id = $1 AND user_id = $2`
	const upsert = `
		INSERT INTO post_reactions (post_id, user_id, kind, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (post_id, user_id) DO UPDATE SET kind = EXCLUDED.kind, created_at = EXCLUDED.created_at
	`
	const counts = `
		SELECT count(*) FILTER (WHERE kind = 'like'), count(*) FILTER (WHERE kind = 'dislike')
		FROM post_reactions WHERE post_id = $1
	`

	res := domain.ReactionResult{Kind: kind}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var existing domain.ReactionKind
		err := tx.QueryRow(ctx, current, postID, userID).Scan(&existing)
		switch {
		case err == nil && existing == kind:
			if _, err := tx.Exec(ctx, clearReaction, postID, userID); err != nil {
				return fmt.Errorf("clear reaction: %w", err)
			}
		case err == nil || isMissing(err):
			if _, err := tx.Exec(ctx, upsert, postID, userID, kind, when); err != nil {
				if code, _ := pgErrorCode(err); code == pgForeignKeyViolation || isMissing(err) {
					return domain.ErrNotFound
				}
				return fmt.Errorf("set reaction: %w", err)
			}
			res.Active = true
		default:
			return fmt.Errorf("get reaction: %w", err)
		}
		if err := tx.QueryRow(ctx, counts, postID).Scan(&res.Likes, &res.Dislikes); err != nil {
			return fmt.Errorf("count reactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.ReactionResult{}, err
	}
	return res, nil
}

var commentSelect = `
	SELECT cm.id, cm.post_id, cm.parent_id, cm.content, cm.created_at, ` + summaryColumns("u") + `
	FROM comments cm
	JOIN users u ON u.id = cm.author_id
`

func scanComment(row pgx.Row) (domain.Comment, error) {
	var (
		c          domain.Comment
		idUUID     pgtype.UUID
		postUUID   pgtype.UUID
		parentUUID pgtype.UUID
		author     summaryScan
	)
	dest := append([]any{&idUUID, &postUUID, &parentUUID, &c.Content, &c.CreatedAt}, author.dest()...)
	if err := row.Scan(dest...); err != nil {
		return domain.Comment{}, err
	}
	c.ID = uuidOrEmpty(idUUID)
	c.PostID = uuidOrEmpty(postUUID)
	c.ParentCommentID = uuidOrEmpty(parentUUID)
	c.Author = author.value()
	return c, nil
}

// AddComment stores a comment. A reply to a reply is attached to the root of
// its thread, and a parent from another post is refused.
func (s *PostsStore) AddComment(ctx context.Context, postID, authorID, content, parentID string, when time.Time) (domain.Comment, error) {
	const rootOf = `SELECT COALESCE(parent_id, id) FROM comments WHERE id = $1 AND post_id = $2`
	const insert = `
		INSERT INTO comments (post_id, author_id, parent_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var parent any
	if parentID != "" {
		var root pgtype.UUID
		if err := s.pool.QueryRow(ctx, rootOf, parentID, postID).Scan(&root); err != nil {
			if isMissing(err) {
				return domain.Comment{}, domain.Decline(domain.ErrNotFound, "Parent comment not found")
			}
			return domain.Comment{}, fmt.Errorf("get parent comment: %w", err)
		}
		parent = root
	}

	var idUUID pgtype.UUID
	if err := s.pool.QueryRow(ctx, insert, postID, authorID, parent, content, when).Scan(&idUUID); err != nil {
		if code, _ := pgErrorCode(err); code == pgForeignKeyViolation || isMissing(err) {
			return domain.Comment{}, domain.ErrNotFound
		}
		return domain.Comment{}, fmt.Errorf("insert comment: %w", err)
	}

	c, err := scanComment(s.pool.QueryRow(ctx, commentSelect+` WHERE cm.id = $1`, idUUID))
	if err != nil {
		return domain.Comment{}, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

// ListComments returns a post's comments oldest first.
func (s *PostsStore) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	rows, err := s.pool.Query(ctx, commentSelect+` WHERE cm.post_id = $1 ORDER BY cm.created_at, cm.id`, postID)
	if err != nil {
		if isMissing(err) {
			return []domain.Comment{}, nil
		}
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := []domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return out, nil
}
