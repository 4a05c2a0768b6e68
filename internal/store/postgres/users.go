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

const userColumns = `id, email, username, firstname, lastname, role, avatar, cover_picture,
	about, lives_in, status, created_at, updated_at, last_login_at`

type UsersStore struct {
	pool *pgxpool.Pool
}

func NewUsersStore(pool *pgxpool.Pool) *UsersStore {
	return &UsersStore{pool: pool}
}

func scanUser(row pgx.Row, extra ...any) (domain.User, error) {
	var (
		u           domain.User
		idUUID      pgtype.UUID
		emailText   pgtype.Text
		lastLoginTS pgtype.Timestamptz
	)
	dest := []any{
		&idUUID,
		&emailText,
		&u.Username,
		&u.Firstname,
		&u.Lastname,
		&u.Role,
		&u.Avatar,
		&u.CoverPicture,
		&u.About,
		&u.LivesIn,
		&u.Status,
		&u.CreatedAt,
		&u.UpdatedAt,
		&lastLoginTS,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.User{}, err
	}

	u.ID = uuidOrEmpty(idUUID)
	u.Email = textOrEmpty(emailText)
	u.LastLoginAt = timestamptzPtr(lastLoginTS)
	return u, nil
}

func (s *UsersStore) CreateUser(ctx context.Context, nu domain.NewUser) (domain.User, error) {
	return createUser(ctx, s.pool, nu)
}

func createUser(ctx context.Context, q querier, nu domain.NewUser) (domain.User, error) {
	role := nu.Role
	if role == "" {
		role = domain.UserRoleUser
	}
	query := `
		INSERT INTO users (email, username, password_hash, firstname, lastname, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	u, err := scanUser(q.QueryRow(ctx, query,
		nullIfEmpty(nu.Email), nu.Username, nu.PasswordHash, nu.Firstname, nu.Lastname, role))
	if err != nil {
		return domain.User{}, mapUserWriteError(err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if isMissing(err) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetUserByLogin matches login against the username or the email, both
// case-insensitively, preferring a username match.
func (s *UsersStore) GetUserByLogin(ctx context.Context, login string) (domain.UserWithPassword, error) {
	query := `
		SELECT ` + userColumns + `, password_hash
		FROM users
		WHERE lower(username) = lower($1) OR (email IS NOT NULL AND lower(email) = lower($1))
		ORDER BY (lower(username) = lower($1)) DESC
		LIMIT 1
	`
	var hash string
	u, err := scanUser(s.pool.QueryRow(ctx, query, login), &hash)
	if err != nil {
		if isMissing(err) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user by login: %w", err)
	}
	return domain.UserWithPassword{User: u, PasswordHash: hash}, nil
}

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	query := `SELECT ` + userColumns + `, password_hash FROM users WHERE lower(email) = lower($1) LIMIT 1`
	var hash string
	u, err := scanUser(s.pool.QueryRow(ctx, query, email), &hash)
	if err != nil {
		if isMissing(err) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user by email: %w", err)
	}
	return domain.UserWithPassword{User: u, PasswordHash: hash}, nil
}

func (s *UsersStore) SetLastLogin(ctx context.Context, userID string, when time.Time) error {
	const q = `
		UPDATE users
		SET last_login_at = $2
		WHERE id = $1
	`
	_, err := s.pool.Exec(ctx, q, userID, when)
	if err != nil {
		return fmt.Errorf("set last login: %w", err)
	}
	return nil
}

func (s *UsersStore) SetPasswordHash(ctx context.Context, userID, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	if _, err := s.pool.Exec(ctx, q, userID, passwordHash); err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	return nil
}

func (s *UsersStore) UpdateProfile(ctx context.Context, userID string, p domain.ProfileUpdate, when time.Time) (domain.User, error) {
	query := `
		UPDATE users SET
			username      = COALESCE($2, username),
			firstname     = COALESCE($3, firstname),
			lastname      = COALESCE($4, lastname),
			about         = COALESCE($5, about),
			lives_in      = COALESCE($6, lives_in),
			avatar        = COALESCE($7, avatar),
			cover_picture = COALESCE($8, cover_picture),
			updated_at    = $9
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, query, userID,
		p.Username, p.Firstname, p.Lastname, p.About, p.LivesIn, p.Avatar, p.CoverPicture, when))
	if err != nil {
		if isMissing(err) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, mapUserWriteError(err)
	}
	return u, nil
}

// GetProfile loads a user with post and friend counts.
func (s *UsersStore) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	query := `
		SELECT ` + userColumns + `,
			(SELECT count(*) FROM posts p WHERE p.author_id = users.id),
			(SELECT count(*) FROM friends f WHERE f.user_id = users.id)
		FROM users
		WHERE id = $1
	`
	var p domain.Profile
	u, err := scanUser(s.pool.QueryRow(ctx, query, userID), &p.PostCount, &p.FriendsCount)
	if err != nil {
		if isMissing(err) {
			return domain.Profile{}, domain.ErrNotFound
		}
		return domain.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.User = u
	return p, nil
}

func mapUserWriteError(err error) error {
	code, constraint := pgErrorCode(err)
	if code == pgUniqueViolation {
		switch constraint {
		case "users_username_uq":
			return domain.ErrUsernameTaken
		case "users_email_uq":
			return domain.ErrEmailTaken
		default:
			return fmt.Errorf("unique violation (%s): %w", constraint, err)
		}
	}
	return fmt.Errorf("write user: %w", err)
}
