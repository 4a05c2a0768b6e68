package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/auth"
	"github.com/TheProfessor0105/E-Community-Forum/internal/config"
	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

const (
	sessionPruneEvery = time.Hour
	sessionRetention  = 24 * time.Hour
)

type adminBootstrapStore interface {
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	CreateUser(ctx context.Context, nu domain.NewUser) (domain.User, error)
}

func bootstrapAdminUser(ctx context.Context, logger *slog.Logger, users adminBootstrapStore, email, username, password string) error {
	if password == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(password) < 12 {
		return errors.New("APP_ADMIN_BOOTSTRAP_PASSWORD: must be at least 12 characters")
	}
	if email == "" || username == "" {
		return errors.New("admin bootstrap: email and username are required")
	}

	existing, err := users.GetUserByEmail(ctx, email)
	if err == nil {
		if existing.Role != domain.UserRoleAdmin {
			logger.Warn("admin bootstrap: existing user is not an admin", "email", email)
		} else {
			logger.Info("admin bootstrap: user already exists", "email", email)
		}
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("admin bootstrap: lookup user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("admin bootstrap: hash password: %w", err)
	}

	_, err = users.CreateUser(ctx, domain.NewUser{
		Email:        email,
		Username:     username,
		Firstname:    "Site",
		Lastname:     "Admin",
		PasswordHash: hash,
		Role:         domain.UserRoleAdmin,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) || errors.Is(err, domain.ErrUsernameTaken) {
			logger.Info("admin bootstrap: user already exists", "email", email)
			return nil
		}
		return fmt.Errorf("admin bootstrap: create user: %w", err)
	}

	logger.Info("admin bootstrap: created admin user", "email", email)
	return nil
}

type sessionPruner interface {
	PruneSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// runSessionJanitor drops sessions that expired or were revoked more than a
// day ago. It returns when ctx is done.
func runSessionJanitor(ctx context.Context, logger *slog.Logger, sessions sessionPruner) {
	ticker := time.NewTicker(sessionPruneEvery)
	defer ticker.Stop()

	for {
		pruneSessions(ctx, logger, sessions, time.Now())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func pruneSessions(ctx context.Context, logger *slog.Logger, sessions sessionPruner, now time.Time) {
	n, err := sessions.PruneSessions(ctx, now.Add(-sessionRetention))
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("session janitor failed", "err", err)
		}
		return
	}
	if n > 0 {
		logger.Info("session janitor pruned sessions", "count", n)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
