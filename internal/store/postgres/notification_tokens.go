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

const tokenColumns = `id, user_id, token, platform, created_at, updated_at`

type NotificationTokensStore struct {
	pool *pgxpool.Pool
}

func NewNotificationTokensStore(pool *pgxpool.Pool) *NotificationTokensStore {
	return &NotificationTokensStore{pool: pool}
}

func scanToken(row pgx.Row) (domain.NotificationToken, error) {
	var (
		t        domain.NotificationToken
		idUUID   pgtype.UUID
		userUUID pgtype.UUID
	)
	if err := row.Scan(&idUUID, &userUUID, &t.Token, &t.Platform, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.NotificationToken{}, err
	}
	t.ID = uuidOrEmpty(idUUID)
	t.UserID = uuidOrEmpty(userUUID)
	return t, nil
}

// UpsertToken registers a device token for userID. A token that moves to a
// different account is reassigned.
func (s *NotificationTokensStore) UpsertToken(ctx context.Context, userID, token, platform string, when time.Time) (domain.NotificationToken, error) {
	query := `
		INSERT INTO notification_tokens (user_id, token, platform, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (token)
		DO UPDATE SET
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + tokenColumns

	t, err := scanToken(s.pool.QueryRow(ctx, query, userID, token, platform, when))
	if err != nil {
		return domain.NotificationToken{}, fmt.Errorf("upsert notification token: %w", err)
	}
	return t, nil
}

func (s *NotificationTokensStore) DeleteToken(ctx context.Context, userID, token string) error {
	const q = `
		DELETE FROM notification_tokens
		WHERE user_id = $1 AND token = $2
	`
	if _, err := s.pool.Exec(ctx, q, userID, token); err != nil {
		return fmt.Errorf("delete notification token: %w", err)
	}
	return nil
}

func (s *NotificationTokensStore) ListTokens(ctx context.Context, userID string) ([]domain.NotificationToken, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM notification_tokens
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list notification tokens: %w", err)
	}
	defer rows.Close()

	var out []domain.NotificationToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification token: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notification tokens: %w", err)
	}
	return out, nil
}
