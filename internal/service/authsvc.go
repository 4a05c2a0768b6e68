package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/auth"
	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

type UsersStore interface {
	CreateUser(ctx context.Context, nu domain.NewUser) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByLogin(ctx context.Context, login string) (domain.UserWithPassword, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	GetUserByExternalAccount(ctx context.Context, provider, providerID string) (domain.User, domain.ExternalAccount, error)
	CreateUserWithExternalAccount(ctx context.Context, provider, providerID string, nu domain.NewUser) (domain.User, domain.ExternalAccount, error)
	LinkExternalAccount(ctx context.Context, userID, provider, providerID, email string) (domain.ExternalAccount, error)
	SetLastLogin(ctx context.Context, userID string, when time.Time) error
	SetPasswordHash(ctx context.Context, userID, passwordHash string) error
}

type SessionsStore interface {
	CreateSession(ctx context.Context, userID string, expiresAt time.Time, ip, userAgent string) (string, error)
	GetSession(ctx context.Context, sessionID string, now time.Time) (domain.Session, error)
	RevokeSession(ctx context.Context, sessionID string, when time.Time) error
	PruneSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuthSession is the outcome of a successful sign-in.
type AuthSession struct {
	User      domain.User
	SessionID string
	Token     string
	ExpiresAt time.Time
}

type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	Firstname string
	Lastname  string
}

type AuthService struct {
	Users      UsersStore
	Sessions   SessionsStore
	Tokens     auth.TokenCodec
	SessionTTL time.Duration
	Logger     *slog.Logger
	Now        func() time.Time

	GoogleWebClientID   string
	AppleServiceID      string
	VerifyGoogleIDToken auth.IDTokenVerifier
	VerifyAppleIDToken  auth.IDTokenVerifier
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *AuthService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput, ip, userAgent string) (AuthSession, error) {
	passwordHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return AuthSession{}, err
	}

	u, err := s.Users.CreateUser(ctx, domain.NewUser{
		Email:        strings.TrimSpace(strings.ToLower(in.Email)),
		Username:     strings.TrimSpace(in.Username),
		Firstname:    strings.TrimSpace(in.Firstname),
		Lastname:     strings.TrimSpace(in.Lastname),
		PasswordHash: passwordHash,
		Role:         domain.UserRoleUser,
	})
	if err != nil {
		return AuthSession{}, err
	}

	return s.startSession(ctx, u, ip, userAgent)
}

// Login matches login against the username or the email.
func (s *AuthService) Login(ctx context.Context, login, password, ip, userAgent string) (AuthSession, error) {
	login = strings.TrimSpace(login)

	u, err := s.Users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return AuthSession{}, domain.ErrInvalidCredentials
		}
		return AuthSession{}, err
	}
	if u.Status == domain.UserStatusDisabled {
		return AuthSession{}, domain.ErrUserDisabled
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return AuthSession{}, err
	}
	if !ok {
		return AuthSession{}, domain.ErrInvalidCredentials
	}

	if auth.NeedsRehash(u.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := s.Users.SetPasswordHash(ctx, u.ID, newHash); err != nil {
				s.logger().Warn("auth: password rehash failed", "err", err, "user_id", u.ID)
			}
		}
	}

	return s.startSession(ctx, u.User, ip, userAgent)
}

func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken, ip, userAgent string) (AuthSession, error) {
	return s.loginWithProvider(ctx, auth.ProviderGoogle, s.GoogleWebClientID, s.VerifyGoogleIDToken, idToken, ip, userAgent)
}

func (s *AuthService) LoginWithApple(ctx context.Context, idToken, ip, userAgent string) (AuthSession, error) {
	return s.loginWithProvider(ctx, auth.ProviderApple, s.AppleServiceID, s.VerifyAppleIDToken, idToken, ip, userAgent)
}

func (s *AuthService) loginWithProvider(ctx context.Context, provider, audience string, verify auth.IDTokenVerifier, idToken, ip, userAgent string) (AuthSession, error) {
	if verify == nil || strings.TrimSpace(audience) == "" {
		return AuthSession{}, domain.Decline(domain.ErrValidation, provider+" sign-in is not configured")
	}

	claims, err := verify(ctx, idToken, audience)
	if err != nil || claims == nil || claims.Subject == "" {
		return AuthSession{}, domain.ErrInvalidCredentials
	}
	email := strings.TrimSpace(strings.ToLower(claims.Email))

	u, _, err := s.Users.GetUserByExternalAccount(ctx, provider, claims.Subject)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		u, err = s.linkOrCreate(ctx, provider, claims.Subject, email)
		if err != nil {
			return AuthSession{}, err
		}
	default:
		return AuthSession{}, err
	}

	if u.Status == domain.UserStatusDisabled {
		return AuthSession{}, domain.ErrUserDisabled
	}
	return s.startSession(ctx, u, ip, userAgent)
}

func (s *AuthService) linkOrCreate(ctx context.Context, provider, subject, email string) (domain.User, error) {
	if email != "" {
		existing, err := s.Users.GetUserByEmail(ctx, email)
		if err == nil {
			if _, err := s.Users.LinkExternalAccount(ctx, existing.ID, provider, subject, email); err != nil {
				return domain.User{}, err
			}
			return existing.User, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, err
		}
	}

	// External accounts never sign in with a password, so the stored hash is
	// of a random secret nobody knows.
	secret, err := randomHex(32)
	if err != nil {
		return domain.User{}, err
	}
	passwordHash, err := auth.HashPassword(secret)
	if err != nil {
		return domain.User{}, err
	}
	suffix, err := randomHex(4)
	if err != nil {
		return domain.User{}, err
	}

	u, _, err := s.Users.CreateUserWithExternalAccount(ctx, provider, subject, domain.NewUser{
		Email:        email,
		Username:     externalUsername(email, provider, suffix),
		PasswordHash: passwordHash,
		Role:         domain.UserRoleUser,
	})
	return u, err
}

// externalUsername derives a valid username from the email local part.
func externalUsername(email, provider, suffix string) string {
	base, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}
	name := b.String()
	if len(name) < 3 {
		name = provider
	}
	if limit := 24 - len(suffix) - 1; len(name) > limit {
		name = name[:limit]
	}
	return name + "_" + suffix
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func (s *AuthService) startSession(ctx context.Context, u domain.User, ip, userAgent string) (AuthSession, error) {
	now := s.now()
	expiresAt := now.Add(s.SessionTTL)

	sessID, err := s.Sessions.CreateSession(ctx, u.ID, expiresAt, ip, userAgent)
	if err != nil {
		return AuthSession{}, err
	}
	token, err := s.Tokens.Issue(sessID, u.ID, u.Username, string(u.Role), now, expiresAt)
	if err != nil {
		return AuthSession{}, err
	}

	if err := s.Users.SetLastLogin(ctx, u.ID, now); err != nil {
		s.logger().Warn("auth: set last login failed", "err", err, "user_id", u.ID)
	}

	return AuthSession{User: u, SessionID: sessID, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.Sessions.RevokeSession(ctx, sessionID, s.now())
}

// Authenticate resolves a bearer token to its user and session id. The token
// must verify and its session must still be live.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.User, string, error) {
	now := s.now()
	claims, err := s.Tokens.Parse(token, now)
	if err != nil {
		return domain.User{}, "", domain.ErrUnauthorized
	}

	sess, err := s.Sessions.GetSession(ctx, claims.SessionID(), now)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, "", domain.ErrUnauthorized
		}
		return domain.User{}, "", err
	}
	if sess.UserID != claims.UserID {
		return domain.User{}, "", domain.ErrUnauthorized
	}

	u, err := s.Users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, "", domain.ErrUnauthorized
		}
		return domain.User{}, "", err
	}
	if u.Status == domain.UserStatusDisabled {
		return domain.User{}, "", domain.ErrForbidden
	}

	return u, sess.ID, nil
}

// PruneSessions removes sessions that expired or were revoked before cutoff.
func (s *AuthService) PruneSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.Sessions.PruneSessions(ctx, cutoff)
}
