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

var discussionSelect = `
	SELECT d.id, d.title, d.description, d.category, d.tags, d.max_participants, d.is_active,
		d.created_at, d.updated_at, ` + summaryColumns("cu") + `,
		COALESCE((
			SELECT json_agg(json_build_object(
				'id', u.id, 'username', u.username, 'firstname', u.firstname,
				'lastname', u.lastname, 'avatar', u.avatar
			) ORDER BY dp.joined_at, u.id)
			FROM discussion_participants dp
			JOIN users u ON u.id = dp.user_id
			WHERE dp.discussion_id = d.id
		), '[]'::json)
	FROM discussions d
	JOIN users cu ON cu.id = d.creator_id
`

// discussionWhere matches the filter arguments $1..$4 of List.
const discussionWhere = `
	WHERE d.is_active
	  AND ($1 = '' OR d.category = $1)
	  AND ($2 = '' OR d.title ILIKE '%' || $2 || '%' ESCAPE '\' OR d.description ILIKE '%' || $2 || '%' ESCAPE '\')
	  AND ($3 = '' OR d.creator_id::text = $3)
	  AND ($4 = '' OR d.creator_id::text = $4
	       OR EXISTS (SELECT 1 FROM discussion_participants p WHERE p.discussion_id = d.id AND p.user_id::text = $4))
`

type DiscussionsStore struct {
	pool *pgxpool.Pool
}

func NewDiscussionsStore(pool *pgxpool.Pool) *DiscussionsStore {
	return &DiscussionsStore{pool: pool}
}

func scanDiscussion(row pgx.Row) (domain.Discussion, error) {
	var (
		d       domain.Discussion
		idUUID  pgtype.UUID
		creator summaryScan
	)
	dest := []any{&idUUID, &d.Title, &d.Description, &d.Category, &d.Tags, &d.MaxParticipants, &d.IsActive, &d.CreatedAt, &d.UpdatedAt}
	dest = append(dest, creator.dest()...)
	dest = append(dest, &d.Participants)
	if err := row.Scan(dest...); err != nil {
		return domain.Discussion{}, err
	}
	d.ID = uuidOrEmpty(idUUID)
	d.Creator = creator.value()
	d.Tags = nonNilStrings(d.Tags)
	if d.Participants == nil {
		d.Participants = []domain.UserSummary{}
	}
	d.ParticipantsCount = len(d.Participants)
	return d, nil
}

// Create inserts the room with its creator as the first participant.
func (s *DiscussionsStore) Create(ctx context.Context, nd domain.NewDiscussion, when time.Time) (domain.Discussion, error) {
	const insertDiscussion = `
		INSERT INTO discussions (title, description, creator_id, category, tags, max_participants, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id
	`
	const insertParticipant = `
		INSERT INTO discussion_participants (discussion_id, user_id, joined_at)
		VALUES ($1, $2, $3)
	`

	var id string
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var idUUID pgtype.UUID
		err := tx.QueryRow(ctx, insertDiscussion, nd.Title, nd.Description, nd.CreatorID, nd.Category,
			nonNilStrings(nd.Tags), nd.MaxParticipants, when).Scan(&idUUID)
		if err != nil {
			return fmt.Errorf("insert discussion: %w", err)
		}
		id = uuidOrEmpty(idUUID)
		if _, err := tx.Exec(ctx, insertParticipant, id, nd.CreatorID, when); err != nil {
			return fmt.Errorf("insert discussion creator: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Discussion{}, err
	}
	return s.Get(ctx, id)
}

// Get returns the room without its messages.
func (s *DiscussionsStore) Get(ctx context.Context, id string) (domain.Discussion, error) {
	d, err := scanDiscussion(s.pool.QueryRow(ctx, discussionSelect+` WHERE d.id = $1`, id))
	if err != nil {
		if isMissing(err) {
			return domain.Discussion{}, domain.ErrNotFound
		}
		return domain.Discussion{}, fmt.Errorf("get discussion: %w", err)
	}
	return d, nil
}

// List returns one page of active rooms, newest first.
func (s *DiscussionsStore) List(ctx context.Context, f domain.DiscussionFilter) (domain.DiscussionPage, error) {
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	args := []any{string(f.Category), escapeLike(f.Search), f.CreatorOf, f.MemberOf}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM discussions d `+discussionWhere, args...).Scan(&total); err != nil {
		return domain.DiscussionPage{}, fmt.Errorf("count discussions: %w", err)
	}

	query := discussionSelect + discussionWhere + ` ORDER BY d.created_at DESC, d.id LIMIT $5 OFFSET $6`
	rows, err := s.pool.Query(ctx, query, append(args, limit, (page-1)*limit)...)
	if err != nil {
		return domain.DiscussionPage{}, fmt.Errorf("list discussions: %w", err)
	}
	defer rows.Close()

	out := domain.DiscussionPage{
		Discussions: []domain.Discussion{},
		Total:       total,
		CurrentPage: page,
		TotalPages:  (total + limit - 1) / limit,
	}
	for rows.Next() {
		d, err := scanDiscussion(rows)
		if err != nil {
			return domain.DiscussionPage{}, fmt.Errorf("scan discussion: %w", err)
		}
		out.Discussions = append(out.Discussions, d)
	}
	if err := rows.Err(); err != nil {
		return domain.DiscussionPage{}, fmt.Errorf("list discussions: %w", err)
	}
	return out, nil
}

// Join adds userID with the room row locked so the capacity check and the
// insert cannot interleave with another join.
func (s *DiscussionsStore) Join(ctx context.Context, id, userID string, when time.Time) error {
	const lockRoom = `SELECT is_active, max_participants FROM discussions WHERE id = $1 FOR UPDATE`
	const roomState = `
		SELECT count(*), COALESCE(bool_or(user_id = $2), false)
		FROM discussion_participants WHERE discussion_id = $1
	`
	const insertParticipant = `
		INSERT INTO discussion_participants (discussion_id, user_id, joined_at)
		VALUES ($1, $2, $3)
	`

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var (
			active          bool
			maxParticipants int
		)
		if err := tx.QueryRow(ctx, lockRoom, id).Scan(&active, &maxParticipants); err != nil {
			if isMissing(err) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("lock discussion: %w", err)
		}

		var (
			count  int
			joined bool
		)
		if err := tx.QueryRow(ctx, roomState, id, userID).Scan(&count, &joined); err != nil {
			return fmt.Errorf("count participants: %w", err)
		}
		if err := domain.CheckJoin(active, joined, count, maxParticipants); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insertParticipant, id, userID, when); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
		return nil
	})
}

// Leave removes userID from the room and reports whether it was a participant.
func (s *DiscussionsStore) Leave(ctx context.Context, id, userID string) (bool, error) {
	const q = `DELETE FROM discussion_participants WHERE discussion_id = $1 AND user_id = $2`
	ct, err := s.pool.Exec(ctx, q, id, userID)
	if err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, fmt.Errorf("leave discussion: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// Deactivate soft-deletes a room. Its history stays readable.
func (s *DiscussionsStore) Deactivate(ctx context.Context, id string, when time.Time) error {
	const q = `UPDATE discussions SET is_active = false, updated_at = $2 WHERE id = $1`
	ct, err := s.pool.Exec(ctx, q, id, when)
	if err != nil {
		if isMissing(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("deactivate discussion: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var messageSelect = `
	SELECT m.id, m.discussion_id, m.content, m.created_at, m.edited, m.edited_at, ` + summaryColumns("u") + `
	FROM discussion_messages m
	JOIN users u ON u.id = m.sender_id
`

func scanMessage(row pgx.Row) (domain.DiscussionMessage, error) {
	var (
		m        domain.DiscussionMessage
		idUUID   pgtype.UUID
		discUUID pgtype.UUID
		editedAt pgtype.Timestamptz
		sender   summaryScan
	)
	dest := append([]any{&idUUID, &discUUID, &m.Content, &m.Timestamp, &m.Edited, &editedAt}, sender.dest()...)
	if err := row.Scan(dest...); err != nil {
		return domain.DiscussionMessage{}, err
	}
	m.ID = uuidOrEmpty(idUUID)
	m.DiscussionID = uuidOrEmpty(discUUID)
	m.EditedAt = timestamptzPtr(editedAt)
	m.Sender = sender.value()
	return m, nil
}

// Messages returns a room's history in posting order.
func (s *DiscussionsStore) Messages(ctx context.Context, id string) ([]domain.DiscussionMessage, error) {
	rows, err := s.pool.Query(ctx, messageSelect+` WHERE m.discussion_id = $1 ORDER BY m.seq`, id)
	if err != nil {
		if isMissing(err) {
			return []domain.DiscussionMessage{}, nil
		}
		return nil, fmt.Errorf("list discussion messages: %w", err)
	}
	defer rows.Close()

	out := []domain.DiscussionMessage{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discussion message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list discussion messages: %w", err)
	}
	return out, nil
}

func (s *DiscussionsStore) AddMessage(ctx context.Context, id, senderID, content string, when time.Time) (domain.DiscussionMessage, error) {
	const q = `
		INSERT INTO discussion_messages (discussion_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var idUUID pgtype.UUID
	if err := s.pool.QueryRow(ctx, q, id, senderID, content, when).Scan(&idUUID); err != nil {
		if code, _ := pgErrorCode(err); code == pgForeignKeyViolation || isMissing(err) {
			return domain.DiscussionMessage{}, domain.ErrNotFound
		}
		return domain.DiscussionMessage{}, fmt.Errorf("insert discussion message: %w", err)
	}
	return s.GetMessage(ctx, id, uuidOrEmpty(idUUID))
}

func (s *DiscussionsStore) GetMessage(ctx context.Context, id, messageID string) (domain.DiscussionMessage, error) {
	m, err := scanMessage(s.pool.QueryRow(ctx, messageSelect+` WHERE m.id = $1 AND m.discussion_id = $2`, messageID, id))
	if err != nil {
		if isMissing(err) {
			return domain.DiscussionMessage{}, domain.ErrNotFound
		}
		return domain.DiscussionMessage{}, fmt.Errorf("get discussion message: %w", err)
	}
	return m, nil
}

func (s *DiscussionsStore) EditMessage(ctx context.Context, id, messageID, content string, when time.Time) (domain.DiscussionMessage, error) {
	const q = `
		UPDATE discussion_messages
		SET content = $3, edited = true, edited_at = $4
		WHERE id = $1 AND discussion_id = $2
	`
	ct, err := s.pool.Exec(ctx, q, messageID, id, content, when)
	if err != nil {
		if isMissing(err) {
			return domain.DiscussionMessage{}, domain.ErrNotFound
		}
		return domain.DiscussionMessage{}, fmt.Errorf("edit discussion message: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.DiscussionMessage{}, domain.ErrNotFound
	}
	return s.GetMessage(ctx, id, messageID)
}
