package postgres

import (
	"context"
	"fmt"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const externalAccountColumns = `id, user_id, provider, provider_id, email, created_at`

func scanExternalAccount(row pgx.Row) (domain.ExternalAccount, error) {
	var (
		a         domain.ExternalAccount
		idUUID    pgtype.UUID
		userUUID  pgtype.UUID
		emailText pgtype.Text
	)
	if err := row.Scan(&idUUID, &userUUID, &a.Provider, &a.ProviderID, &emailText, &a.CreatedAt); err != nil {
		return domain.ExternalAccount{}, err
	}
	a.ID = uuidOrEmpty(idUUID)
	a.UserID = uuidOrEmpty(userUUID)
	a.Email = textOrEmpty(emailText)
	return a, nil
}

func (s *UsersStore) GetUserByExternalAccount(ctx context.Context, provider, providerID string) (domain.User, domain.ExternalAccount, error) {
	query := `
		SELECT ` + externalAccountColumns + `
		FROM external_accounts
		WHERE provider = $1 AND provider_id = $2
	`
	acct, err := scanExternalAccount(s.pool.QueryRow(ctx, query, provider, providerID))
	if err != nil {
		if isMissing(err) {
			return domain.User{}, domain.ExternalAccount{}, domain.ErrNotFound
		}
		return domain.User{}, domain.ExternalAccount{}, fmt.Errorf("get external account: %w", err)
	}

	u, err := s.GetUserByID(ctx, acct.UserID)
	if err != nil {
		return domain.User{}, domain.ExternalAccount{}, err
	}
	return u, acct, nil
}

// CreateUserWithExternalAccount creates the user and its provider link in one
// transaction.
func (s *UsersStore) CreateUserWithExternalAccount(ctx context.Context, provider, providerID string, nu domain.NewUser) (domain.User, domain.ExternalAccount, error) {
	var (
		u    domain.User
		acct domain.ExternalAccount
	)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		u, err = createUser(ctx, tx, nu)
		if err != nil {
			return err
		}
		acct, err = linkExternalAccount(ctx, tx, u.ID, provider, providerID, nu.Email)
		return err
	})
	if err != nil {
		return domain.User{}, domain.ExternalAccount{}, err
	}
	return u, acct, nil
}

func (s *UsersStore) LinkExternalAccount(ctx context.Context, userID, provider, providerID, email string) (domain.ExternalAccount, error) {
	return linkExternalAccount(ctx, s.pool, userID, provider, providerID, email)
}

func linkExternalAccount(ctx context.Context, q querier, userID, provider, providerID, email string) (domain.ExternalAccount, error) {
	query := `
		INSERT INTO external_accounts (user_id, provider, provider_id, email)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + externalAccountColumns

	acct, err := scanExternalAccount(q.QueryRow(ctx, query, userID, provider, providerID, nullIfEmpty(email)))
	if err != nil {
		if code, _ := pgErrorCode(err); code == pgUniqueViolation {
			return domain.ExternalAccount{}, domain.ErrExternalAccountExists
		}
		return domain.ExternalAccount{}, fmt.Errorf("link external account: %w", err)
	}
	return acct, nil
}
