package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

// ListUsers pages through all accounts newest first. A non-empty query
// matches the id, username or email.
func (s *UsersStore) ListUsers(ctx context.Context, query string, limit, offset int) ([]domain.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	like := ""
	if query = strings.TrimSpace(query); query != "" {
		like = "%" + escapeLike(query) + "%"
	}
	q := `
		SELECT ` + userColumns + `
		FROM users
		WHERE $1 = ''
		   OR id::text ILIKE $1
		   OR username ILIKE $1
		   OR email ILIKE $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := s.pool.Query(ctx, q, like, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (s *UsersStore) SetUserStatus(ctx context.Context, userID string, status domain.UserStatus, when time.Time) (domain.User, error) {
	q := `UPDATE users SET status = $2, updated_at = $3 WHERE id = $1 RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, q, userID, status, when))
	if err != nil {
		if isMissing(err) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("set user status: %w", err)
	}
	return u, nil
}
