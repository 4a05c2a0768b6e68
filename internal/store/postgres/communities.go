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

var communitySelect = `
	SELECT c.id, c.name, c.description, c.privacy, c.tags, c.image, c.cover_image,
		c.created_at, c.updated_at, ` + summaryColumns("au") + `,
		COALESCE((
			SELECT array_agg(m.user_id::text ORDER BY m.joined_at, m.user_id)
			FROM community_members m
			WHERE m.community_id = c.id AND m.role = 'admin'
		), '{}'),
		(SELECT count(*) FROM community_members m WHERE m.community_id = c.id)
	FROM communities c
	JOIN users au ON au.id = c.author_id
`

type CommunitiesStore struct {
	pool *pgxpool.Pool
}

func NewCommunitiesStore(pool *pgxpool.Pool) *CommunitiesStore {
	return &CommunitiesStore{pool: pool}
}

func scanCommunity(row pgx.Row) (domain.Community, error) {
	var (
		c      domain.Community
		idUUID pgtype.UUID
		author summaryScan
	)
	dest := []any{&idUUID, &c.Name, &c.Description, &c.Privacy, &c.Tags, &c.Image, &c.CoverImage, &c.CreatedAt, &c.UpdatedAt}
	dest = append(dest, author.dest()...)
	dest = append(dest, &c.Admins, &c.MembersCount)
	if err := row.Scan(dest...); err != nil {
		return domain.Community{}, err
	}
	c.ID = uuidOrEmpty(idUUID)
	c.Author = author.value()
	c.AuthorID = c.Author.ID
	c.Tags = nonNilStrings(c.Tags)
	c.Admins = nonNilStrings(c.Admins)
	return c, nil
}

func (s *CommunitiesStore) list(ctx context.Context, where string, args ...any) ([]domain.Community, error) {
	rows, err := s.pool.Query(ctx, communitySelect+where+` ORDER BY c.created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list communities: %w", err)
	}
	defer rows.Close()

	out := []domain.Community{}
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan community: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list communities: %w", err)
	}
	return out, nil
}

// Create inserts the community and makes its author an admin member in one
// transaction.
func (s *CommunitiesStore) Create(ctx context.Context, nc domain.NewCommunity, when time.Time) (domain.Community, error) {
	const insertCommunity = `
		INSERT INTO communities (name, description, author_id, privacy, tags, image, cover_image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id
	`
	const insertAdmin = `
		INSERT INTO community_members (community_id, user_id, role, joined_at)
		VALUES ($1, $2, 'admin', $3)
	`

	var id string
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var idUUID pgtype.UUID
		err := tx.QueryRow(ctx, insertCommunity, nc.Name, nc.Description, nc.AuthorID, nc.Privacy,
			nonNilStrings(nc.Tags), nc.Image, nc.CoverImage, when).Scan(&idUUID)
		if err != nil {
			if code, constraint := pgErrorCode(err); code == pgUniqueViolation && constraint == "communities_name_uq" {
				return domain.ErrCommunityNameTaken
			}
			return fmt.Errorf("insert community: %w", err)
		}
		id = uuidOrEmpty(idUUID)
		if _, err := tx.Exec(ctx, insertAdmin, id, nc.AuthorID, when); err != nil {
			return fmt.Errorf("insert community author: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Community{}, err
	}
	return s.Get(ctx, id)
}

func (s *CommunitiesStore) Get(ctx context.Context, id string) (domain.Community, error) {
	c, err := scanCommunity(s.pool.QueryRow(ctx, communitySelect+` WHERE c.id = $1`, id))
	if err != nil {
		if isMissing(err) {
			return domain.Community{}, domain.ErrNotFound
		}
		return domain.Community{}, fmt.Errorf("get community: %w", err)
	}
	return c, nil
}

func (s *CommunitiesStore) List(ctx context.Context) ([]domain.Community, error) {
	return s.list(ctx, "")
}

// ListForUser returns communities the user wrote or belongs to.
func (s *CommunitiesStore) ListForUser(ctx context.Context, userID string) ([]domain.Community, error) {
	return s.list(ctx, `
		WHERE c.author_id::text = $1
		   OR EXISTS (SELECT 1 FROM community_members m WHERE m.community_id = c.id AND m.user_id::text = $1)
	`, userID)
}

func (s *CommunitiesStore) Role(ctx context.Context, communityID, userID string) (domain.MemberRole, error) {
	const q = `SELECT role FROM community_members WHERE community_id = $1 AND user_id = $2`

	var role domain.MemberRole
	if err := s.pool.QueryRow(ctx, q, communityID, userID).Scan(&role); err != nil {
		if isMissing(err) {
			return domain.RoleNone, nil
		}
		return domain.RoleNone, fmt.Errorf("get community role: %w", err)
	}
	return role, nil
}

// AddMember is idempotent; joined is false when the user was already a member.
func (s *CommunitiesStore) AddMember(ctx context.Context, communityID, userID string, when time.Time) (bool, error) {
	const q = `
		INSERT INTO community_members (community_id, user_id, role, joined_at)
		VALUES ($1, $2, 'member', $3)
		ON CONFLICT DO NOTHING
	`
	ct, err := s.pool.Exec(ctx, q, communityID, userID, when)
	if err != nil {
		if code, _ := pgErrorCode(err); code == pgForeignKeyViolation || isMissing(err) {
			return false, domain.ErrNotFound
		}
		return false, fmt.Errorf("add community member: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// SetRole moves a membership from one role to another and reports whether the
// row was in the expected role.
func (s *CommunitiesStore) SetRole(ctx context.Context, communityID, userID string, from, to domain.MemberRole) (bool, error) {
	const q = `
		UPDATE community_members
		SET role = $4
		WHERE community_id = $1 AND user_id = $2 AND role = $3
	`
	ct, err := s.pool.Exec(ctx, q, communityID, userID, from, to)
	if err != nil {
		return false, fmt.Errorf("set community role: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// RemoveMember deletes the membership, which also drops any admin role.
func (s *CommunitiesStore) RemoveMember(ctx context.Context, communityID, userID string) (bool, error) {
	const q = `DELETE FROM community_members WHERE community_id = $1 AND user_id = $2`
	ct, err := s.pool.Exec(ctx, q, communityID, userID)
	if err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, fmt.Errorf("remove community member: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// Leave runs the leave decision with the community row locked, so two admins
// leaving at once cannot strand the community without an author.
func (s *CommunitiesStore) Leave(ctx context.Context, communityID, userID string, when time.Time) (domain.LeaveOutcome, error) {
	const lockCommunity = `SELECT author_id FROM communities WHERE id = $1 FOR UPDATE`
	const memberRole = `SELECT role FROM community_members WHERE community_id = $1 AND user_id = $2`
	const otherAdmins = `
		SELECT user_id FROM community_members
		WHERE community_id = $1 AND role = 'admin' AND user_id <> $2
		ORDER BY joined_at, user_id
	`
	const setAuthor = `UPDATE communities SET author_id = $2, updated_at = $3 WHERE id = $1`
	const deleteMember = `DELETE FROM community_members WHERE community_id = $1 AND user_id = $2`

	var out domain.LeaveOutcome
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var authorUUID pgtype.UUID
		if err := tx.QueryRow(ctx, lockCommunity, communityID).Scan(&authorUUID); err != nil {
			if isMissing(err) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("lock community: %w", err)
		}

		role := domain.RoleNone
		if err := tx.QueryRow(ctx, memberRole, communityID, userID).Scan(&role); err != nil && !isMissing(err) {
			return fmt.Errorf("get community role: %w", err)
		}

		rows, err := tx.Query(ctx, otherAdmins, communityID, userID)
		if err != nil {
			return fmt.Errorf("list community admins: %w", err)
		}
		admins, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
			var u pgtype.UUID
			err := row.Scan(&u)
			return uuidOrEmpty(u), err
		})
		if err != nil {
			return fmt.Errorf("list community admins: %w", err)
		}

		out, err = domain.PlanLeave(uuidOrEmpty(authorUUID), userID, role, admins)
		if err != nil {
			return err
		}
		if out.NewAuthorID != "" {
			if _, err := tx.Exec(ctx, setAuthor, communityID, out.NewAuthorID, when); err != nil {
				return fmt.Errorf("transfer community author: %w", err)
			}
		}
		if _, err := tx.Exec(ctx, deleteMember, communityID, userID); err != nil {
			return fmt.Errorf("delete community member: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.LeaveOutcome{}, err
	}
	return out, nil
}

// Delete removes the community (posts cascade) and returns the ids of the
// members it had.
func (s *CommunitiesStore) Delete(ctx context.Context, communityID string) ([]string, error) {
	const listMembers = `SELECT user_id FROM community_members WHERE community_id = $1`
	const deleteCommunity = `DELETE FROM communities WHERE id = $1`

	var members []string
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, listMembers, communityID)
		if err != nil {
			if isMissing(err) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("list community members: %w", err)
		}
		members, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
			var u pgtype.UUID
			err := row.Scan(&u)
			return uuidOrEmpty(u), err
		})
		if err != nil {
			return fmt.Errorf("list community members: %w", err)
		}

		ct, err := tx.Exec(ctx, deleteCommunity, communityID)
		if err != nil {
			return fmt.Errorf("delete community: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (s *CommunitiesStore) Members(ctx context.Context, communityID string) ([]domain.CommunityMember, error) {
	query := `
		SELECT ` + summaryColumns("u") + `, m.role = 'admin', c.author_id = m.user_id, m.joined_at
		FROM community_members m
		JOIN users u ON u.id = m.user_id
		JOIN communities c ON c.id = m.community_id
		WHERE m.community_id = $1
		ORDER BY m.joined_at, u.username
	`
	rows, err := s.pool.Query(ctx, query, communityID)
	if err != nil {
		if isMissing(err) {
			return []domain.CommunityMember{}, nil
		}
		return nil, fmt.Errorf("list community members: %w", err)
	}
	defer rows.Close()

	out := []domain.CommunityMember{}
	for rows.Next() {
		var (
			m  domain.CommunityMember
			sc summaryScan
		)
		dest := append(sc.dest(), &m.IsAdmin, &m.IsAuthor, &m.JoinedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan community member: %w", err)
		}
		m.User = sc.value()
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list community members: %w", err)
	}
	return out, nil
}
