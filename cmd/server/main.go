package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/TheProfessor0105/E-Community-Forum/internal/auth"
	"github.com/TheProfessor0105/E-Community-Forum/internal/config"
	"github.com/TheProfessor0105/E-Community-Forum/internal/httpapi"
	"github.com/TheProfessor0105/E-Community-Forum/internal/notifications"
	"github.com/TheProfessor0105/E-Community-Forum/internal/realtime"
	"github.com/TheProfessor0105/E-Community-Forum/internal/service"
	"github.com/TheProfessor0105/E-Community-Forum/internal/store/postgres"
	"github.com/TheProfessor0105/E-Community-Forum/internal/store/redisstore"
	"github.com/TheProfessor0105/E-Community-Forum/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

const (
	loginWindow      = 5 * time.Minute
	loginMaxAttempts = 10
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.OtelEndpoint, cfg.Env)
	if err != nil {
		logger.Error("telemetry init failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "err", err)
		}
	}()

	var loginLimiter httpapi.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			logger.Warn("redis tracing disabled", "err", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("redis ping failed", "err", err, "addr", cfg.RedisAddr)
			os.Exit(1)
		}
		loginLimiter = redisstore.NewLoginLimiter(rdb, loginWindow, loginMaxAttempts)
		logger.Info("login limiter shared via redis", "addr", cfg.RedisAddr)
	}

	var (
		authSvc          *service.AuthService
		usersSvc         *service.UsersService
		friendsSvc       *service.FriendsService
		notificationsSvc *service.NotificationService
		communitySvc     *service.CommunityService
		postSvc          *service.PostService
		discussionSvc    *service.DiscussionService
		tagsSvc          *service.TagsService
		adminSvc         *service.AdminService
		dbPing           func(context.Context) error
		pgPool           *pgxpool.Pool
		discussions      *postgres.DiscussionsStore
	)

	if cfg.DBDSN != "" {
		if cfg.DBMigrate {
			if err := postgres.Migrate(cfg.DBDSN, logger); err != nil {
				logger.Error("db migrate failed", "err", err)
				os.Exit(1)
			}
		}
		pgPool, err = postgres.Open(ctx, cfg.DBDSN)
		if err != nil {
			logger.Error("db open failed", "err", err)
			os.Exit(1)
		}
		defer pgPool.Close()
		dbPing = pgPool.Ping
		discussions = postgres.NewDiscussionsStore(pgPool)
	}

	hubOpts := realtime.HubOptions{Logger: logger, AllowedOrigins: cfg.CORSOrigins}
	if discussions != nil {
		hubOpts.Discussions = discussions
	}
	hub := realtime.NewHub(hubOpts)

	// Without NATS every event stays on this replica.
	var publisher service.Publisher = hub
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name(telemetry.ServiceName))
		if err != nil {
			logger.Error("nats connect failed", "err", err, "url", cfg.NATSURL)
			os.Exit(1)
		}
		defer func() { _ = nc.Drain() }()
		bridge, err := realtime.NewNATSBridge(nc, hub, logger)
		if err != nil {
			logger.Error("nats bridge failed", "err", err)
			os.Exit(1)
		}
		defer func() { _ = bridge.Close() }()
		publisher = bridge
		logger.Info("realtime fan-out via nats", "url", cfg.NATSURL)
	}

	var pusher service.PushSender
	if cfg.FCMCredentials != "" {
		fcm, err := notifications.NewFCMSender(ctx, cfg.FCMProjectID, cfg.FCMCredentials)
		if err != nil {
			logger.Warn("push notifications disabled", "err", err)
		} else {
			pusher = fcm
		}
	}

	if pgPool != nil {
		users := postgres.NewUsersStore(pgPool)
		sessions := postgres.NewSessionsStore(pgPool)
		communities := postgres.NewCommunitiesStore(pgPool)

		if err := bootstrapAdminUser(ctx, logger, users, cfg.AdminBootstrapEmail, cfg.AdminBootstrapUsername, cfg.AdminBootstrapPassword); err != nil {
			logger.Error("bootstrap admin failed", "err", err)
			os.Exit(1)
		}

		notificationsSvc = &service.NotificationService{
			Store:     postgres.NewNotificationsStore(pgPool),
			Tokens:    postgres.NewNotificationTokensStore(pgPool),
			Sender:    pusher,
			Publisher: publisher,
			Logger:    logger,
		}
		authSvc = &service.AuthService{
			Users:      users,
			Sessions:   sessions,
			Tokens:     auth.NewTokenCodec([]byte(cfg.JWTSecret)),
			SessionTTL: cfg.SessionTTL,
			Logger:     logger,

			GoogleWebClientID:   cfg.GoogleClientID,
			AppleServiceID:      cfg.AppleServiceID,
			VerifyGoogleIDToken: auth.VerifyGoogleIDToken,
			VerifyAppleIDToken:  auth.VerifyAppleIDToken,
		}
		usersSvc = &service.UsersService{Store: users}
		friendsSvc = &service.FriendsService{
			Users:       users,
			Friendships: postgres.NewFriendshipsStore(pgPool),
			Notifier:    notificationsSvc,
			Logger:      logger,
		}
		communitySvc = &service.CommunityService{
			Communities: communities,
			Users:       users,
			Notifier:    notificationsSvc,
			Logger:      logger,
		}
		postSvc = &service.PostService{
			Posts:       postgres.NewPostsStore(pgPool),
			Communities: communities,
			Users:       users,
			Notifier:    notificationsSvc,
			Logger:      logger,
		}
		discussionSvc = &service.DiscussionService{
			Discussions: discussions,
			Publisher:   publisher,
			Logger:      logger,
		}
		tagsSvc = &service.TagsService{Store: postgres.NewTagsStore(pgPool)}
		adminSvc = &service.AdminService{Users: users, Sessions: sessions, Logger: logger}

		go runSessionJanitor(ctx, logger, authSvc)
	}

	apiRouter := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:        logger,
		IsProd:        cfg.IsProd(),
		DBPing:        dbPing,
		CORSOrigins:   cfg.CORSOrigins,
		LoginLimiter:  loginLimiter,
		Auth:          authSvc,
		Users:         usersSvc,
		Friends:       friendsSvc,
		Notifications: notificationsSvc,
		Communities:   communitySvc,
		Posts:         postSvc,
		Discussions:   discussionSvc,
		Tags:          tagsSvc,
		Admin:         adminSvc,
		Hub:           hub,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiRouter,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr, "db_enabled", cfg.DBDSN != "")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}
