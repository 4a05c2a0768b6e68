package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TagsStore struct {
	pool *pgxpool.Pool
}

func NewTagsStore(pool *pgxpool.Pool) *TagsStore {
	return &TagsStore{pool: pool}
}

// List returns the suggested tag catalog in display order.
func (s *TagsStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM tags ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	tags, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}
