package postgres

import (
	"context"
	"fmt"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const notificationColumns = `id, user_id, type, message, sender_id, payload, is_read, created_at`

type NotificationsStore struct {
	pool *pgxpool.Pool
}

func NewNotificationsStore(pool *pgxpool.Pool) *NotificationsStore {
	return &NotificationsStore{pool: pool}
}

func scanNotification(row pgx.Row) (domain.Notification, error) {
	var (
		n          domain.Notification
		idUUID     pgtype.UUID
		userUUID   pgtype.UUID
		senderUUID pgtype.UUID
		payload    []byte
	)
	if err := row.Scan(&idUUID, &userUUID, &n.Type, &n.Message, &senderUUID, &payload, &n.IsRead, &n.Timestamp); err != nil {
		return domain.Notification{}, err
	}
	n.ID = uuidOrEmpty(idUUID)
	n.UserID = uuidOrEmpty(userUUID)
	n.SenderID = uuidOrEmpty(senderUUID)
	if len(payload) > 0 {
		n.Payload = payload
	}
	return n, nil
}

func collectNotifications(rows pgx.Rows) ([]domain.Notification, error) {
	defer rows.Close()

	out := []domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *NotificationsStore) Insert(ctx context.Context, n domain.Notification) error {
	const q = `
		INSERT INTO notifications (id, user_id, type, message, sender_id, payload, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	var payload any
	if len(n.Payload) > 0 {
		payload = []byte(n.Payload)
	}
	if _, err := s.pool.Exec(ctx, q, n.ID, n.UserID, n.Type, n.Message, nullIfEmpty(n.SenderID), payload, n.IsRead, n.Timestamp); err != nil {
		if code, _ := pgErrorCode(err); code == pgForeignKeyViolation {
			return domain.ErrNotFound
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// List returns the inbox newest first; seq orders records that share a
// timestamp.
func (s *NotificationsStore) List(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out, err := collectNotifications(rows)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (s *NotificationsStore) CountUnread(ctx context.Context, userID string) (int, error) {
	const q = `SELECT count(*) FROM notifications WHERE user_id = $1 AND NOT is_read`

	var n int
	if err := s.pool.QueryRow(ctx, q, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

func (s *NotificationsStore) MarkRead(ctx context.Context, userID, id string) (domain.Notification, error) {
	query := `
		UPDATE notifications
		SET is_read = true
		WHERE id = $1 AND user_id = $2
		RETURNING ` + notificationColumns
	n, err := scanNotification(s.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if isMissing(err) {
			return domain.Notification{}, domain.ErrNotFound
		}
		return domain.Notification{}, fmt.Errorf("mark notification read: %w", err)
	}
	return n, nil
}

// MarkAllRead flips every unread record and returns the ones that changed.
func (s *NotificationsStore) MarkAllRead(ctx context.Context, userID string) ([]domain.Notification, error) {
	query := `
		UPDATE notifications
		SET is_read = true
		WHERE user_id = $1 AND NOT is_read
		RETURNING ` + notificationColumns
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("mark all notifications read: %w", err)
	}
	out, err := collectNotifications(rows)
	if err != nil {
		return nil, fmt.Errorf("mark all notifications read: %w", err)
	}
	return out, nil
}

func (s *NotificationsStore) Delete(ctx context.Context, userID, id string) error {
	const q = `DELETE FROM notifications WHERE id = $1 AND user_id = $2`
	ct, err := s.pool.Exec(ctx, q, id, userID)
	if err != nil {
		if isMissing(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete notification: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteFromSender removes userID's notifications of type t sent by senderID
// and returns the removed ids.
func (s *NotificationsStore) DeleteFromSender(ctx context.Context, userID string, t domain.NotificationType, senderID string) ([]string, error) {
	const q = `
		DELETE FROM notifications
		WHERE user_id = $1 AND type = $2 AND sender_id = $3
		RETURNING id
	`
	rows, err := s.pool.Query(ctx, q, userID, t, senderID)
	if err != nil {
		return nil, fmt.Errorf("delete notifications from sender: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var idUUID pgtype.UUID
		if err := rows.Scan(&idUUID); err != nil {
			return nil, fmt.Errorf("scan notification id: %w", err)
		}
		ids = append(ids, uuidOrEmpty(idUUID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete notifications from sender: %w", err)
	}
	return ids, nil
}
