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

type FriendshipsStore struct {
	pool *pgxpool.Pool
}

func NewFriendshipsStore(pool *pgxpool.Pool) *FriendshipsStore {
	return &FriendshipsStore{pool: pool}
}

// Relation reports the friendship state from viewer towards other.
func (s *FriendshipsStore) Relation(ctx context.Context, viewerID, otherID string) (domain.Relation, error) {
	const q = `
		SELECT
			EXISTS (SELECT 1 FROM friends WHERE user_id = $1 AND friend_id = $2),
			(SELECT id FROM friend_requests WHERE sender_id = $1 AND recipient_id = $2),
			(SELECT id FROM friend_requests WHERE sender_id = $2 AND recipient_id = $1)
	`

	var (
		isFriend   bool
		sentID     pgtype.UUID
		receivedID pgtype.UUID
	)
	if err := s.pool.QueryRow(ctx, q, viewerID, otherID).Scan(&isFriend, &sentID, &receivedID); err != nil {
		if isMissing(err) {
			return domain.Relation{Status: domain.FriendStatusNone}, nil
		}
		return domain.Relation{}, fmt.Errorf("friend relation: %w", err)
	}

	rel := domain.Relation{Status: domain.FriendStatusNone}
	switch {
	case isFriend:
		rel.Status = domain.FriendStatusFriends
		rel.IsFriend = true
	case sentID.Valid:
		rel.Status = domain.FriendStatusRequestSent
		rel.RequestSent = true
		rel.RequestID = uuidOrEmpty(sentID)
	case receivedID.Valid:
		rel.Status = domain.FriendStatusRequestReceived
		rel.RequestReceived = true
		rel.RequestID = uuidOrEmpty(receivedID)
	}
	return rel, nil
}

func (s *FriendshipsStore) CreateRequest(ctx context.Context, senderID, recipientID string, when time.Time) (domain.FriendRequest, error) {
	const q = `
		INSERT INTO friend_requests (sender_id, recipient_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var idUUID pgtype.UUID
	if err := s.pool.QueryRow(ctx, q, senderID, recipientID, when).Scan(&idUUID); err != nil {
		if code, constraint := pgErrorCode(err); code == pgUniqueViolation && constraint == "friend_requests_pair_uq" {
			return domain.FriendRequest{}, domain.ErrFriendshipExists
		}
		return domain.FriendRequest{}, fmt.Errorf("create friend request: %w", err)
	}

	return domain.FriendRequest{
		ID:        uuidOrEmpty(idUUID),
		From:      domain.UserSummary{ID: senderID},
		To:        domain.UserSummary{ID: recipientID},
		Status:    domain.FriendRequestPending,
		CreatedAt: when,
	}, nil
}

func (s *FriendshipsStore) GetRequest(ctx context.Context, requestID string) (domain.FriendRequest, error) {
	query := `
		SELECT fr.id, fr.created_at, ` + summaryColumns("su") + `, ` + summaryColumns("ru") + `
		FROM friend_requests fr
		JOIN users su ON su.id = fr.sender_id
		JOIN users ru ON ru.id = fr.recipient_id
		WHERE fr.id = $1
	`

	var (
		fr       domain.FriendRequest
		idUUID   pgtype.UUID
		from, to summaryScan
	)
	dest := append([]any{&idUUID, &fr.CreatedAt}, from.dest()...)
	dest = append(dest, to.dest()...)
	if err := s.pool.QueryRow(ctx, query, requestID).Scan(dest...); err != nil {
		if isMissing(err) {
			return domain.FriendRequest{}, domain.ErrNotFound
		}
		return domain.FriendRequest{}, fmt.Errorf("get friend request: %w", err)
	}

	fr.ID = uuidOrEmpty(idUUID)
	fr.From = from.value()
	fr.To = to.value()
	fr.Status = domain.FriendRequestPending
	return fr, nil
}

// Accept removes the pending request addressed to recipientID and writes both
// friendship rows in the same transaction. It returns the consumed request.
func (s *FriendshipsStore) Accept(ctx context.Context, requestID, recipientID string, when time.Time) (domain.FriendRequest, error) {
	const deleteReq = `
		DELETE FROM friend_requests
		WHERE id = $1 AND recipient_id = $2
		RETURNING sender_id, created_at
	`
	const insertFriends = `
		INSERT INTO friends (user_id, friend_id, created_at)
		VALUES ($1, $2, $3), ($2, $1, $3)
		ON CONFLICT DO NOTHING
	`

	var fr domain.FriendRequest
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var senderUUID pgtype.UUID
		if err := tx.QueryRow(ctx, deleteReq, requestID, recipientID).Scan(&senderUUID, &fr.CreatedAt); err != nil {
			if isMissing(err) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("consume friend request: %w", err)
		}
		senderID := uuidOrEmpty(senderUUID)
		if _, err := tx.Exec(ctx, insertFriends, senderID, recipientID, when); err != nil {
			return fmt.Errorf("insert friendship: %w", err)
		}

		fr.ID = requestID
		fr.From = domain.UserSummary{ID: senderID}
		fr.To = domain.UserSummary{ID: recipientID}
		fr.Status = domain.FriendRequestAccepted
		return nil
	})
	if err != nil {
		return domain.FriendRequest{}, err
	}
	return fr, nil
}

// Reject deletes a pending request addressed to recipientID.
func (s *FriendshipsStore) Reject(ctx context.Context, requestID, recipientID string) (domain.FriendRequest, error) {
	const q = `
		DELETE FROM friend_requests
		WHERE id = $1 AND recipient_id = $2
		RETURNING sender_id, created_at
	`

	var (
		fr         domain.FriendRequest
		senderUUID pgtype.UUID
	)
	if err := s.pool.QueryRow(ctx, q, requestID, recipientID).Scan(&senderUUID, &fr.CreatedAt); err != nil {
		if isMissing(err) {
			return domain.FriendRequest{}, domain.ErrNotFound
		}
		return domain.FriendRequest{}, fmt.Errorf("reject friend request: %w", err)
	}

	fr.ID = requestID
	fr.From = domain.UserSummary{ID: uuidOrEmpty(senderUUID)}
	fr.To = domain.UserSummary{ID: recipientID}
	fr.Status = domain.FriendRequestRejected
	return fr, nil
}

// Cancel deletes the pending request from senderID to recipientID.
func (s *FriendshipsStore) Cancel(ctx context.Context, senderID, recipientID string) (string, error) {
	const q = `
		DELETE FROM friend_requests
		WHERE sender_id = $1 AND recipient_id = $2
		RETURNING id
	`

	var idUUID pgtype.UUID
	if err := s.pool.QueryRow(ctx, q, senderID, recipientID).Scan(&idUUID); err != nil {
		if isMissing(err) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("cancel friend request: %w", err)
	}
	return uuidOrEmpty(idUUID), nil
}

// RemoveFriend deletes both directions of a friendship in one statement.
func (s *FriendshipsStore) RemoveFriend(ctx context.Context, userID, friendID string) error {
	const q = `
		DELETE FROM friends
		WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
	`
	ct, err := s.pool.Exec(ctx, q, userID, friendID)
	if err != nil {
		if isMissing(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("remove friend: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *FriendshipsStore) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM friends WHERE user_id = $1 AND friend_id = $2)`

	var ok bool
	if err := s.pool.QueryRow(ctx, q, userA, userB).Scan(&ok); err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, fmt.Errorf("are friends: %w", err)
	}
	return ok, nil
}

func (s *FriendshipsStore) ListFriends(ctx context.Context, userID string) ([]domain.UserSummary, error) {
	query := `
		SELECT ` + summaryColumns("u") + `
		FROM friends f
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = $1
		ORDER BY u.username ASC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	out, err := collectSummaries(rows)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return out, nil
}

func (s *FriendshipsStore) ListRequests(ctx context.Context, userID string) (domain.FriendRequests, error) {
	query := `
		SELECT fr.id, fr.created_at, fr.sender_id = $1, ` + summaryColumns("su") + `, ` + summaryColumns("ru") + `
		FROM friend_requests fr
		JOIN users su ON su.id = fr.sender_id
		JOIN users ru ON ru.id = fr.recipient_id
		WHERE fr.sender_id = $1 OR fr.recipient_id = $1
		ORDER BY fr.created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return domain.FriendRequests{}, fmt.Errorf("list friend requests: %w", err)
	}
	defer rows.Close()

	out := domain.FriendRequests{
		Received: []domain.FriendRequest{},
		Sent:     []domain.FriendRequest{},
	}
	for rows.Next() {
		var (
			fr       domain.FriendRequest
			idUUID   pgtype.UUID
			outgoing bool
			from, to summaryScan
		)
		dest := append([]any{&idUUID, &fr.CreatedAt, &outgoing}, from.dest()...)
		dest = append(dest, to.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return domain.FriendRequests{}, fmt.Errorf("scan friend request: %w", err)
		}
		fr.ID = uuidOrEmpty(idUUID)
		fr.From = from.value()
		fr.To = to.value()
		fr.Status = domain.FriendRequestPending
		if outgoing {
			out.Sent = append(out.Sent, fr)
		} else {
			out.Received = append(out.Received, fr)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.FriendRequests{}, fmt.Errorf("list friend requests: %w", err)
	}

	out.ReceivedCount = len(out.Received)
	out.SentCount = len(out.Sent)
	return out, nil
}
