package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

func (s *UsersStore) SearchUsers(ctx context.Context, q string, limit int, excludeUserID string) ([]domain.UserSummary, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	q = strings.TrimSpace(q)
	if q == "" {
		return []domain.UserSummary{}, nil
	}

	like := "%" + escapeLike(q) + "%"
	query := `
		SELECT ` + summaryColumns("u") + `
		FROM users u
		WHERE u.status = 'active'
		  AND u.id::text <> $3
		  AND (u.username ILIKE $1 OR u.firstname ILIKE $1 OR u.lastname ILIKE $1 OR u.email ILIKE $1)
		ORDER BY u.username ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, like, limit, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	out, err := collectSummaries(rows)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
