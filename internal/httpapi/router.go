package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/TheProfessor0105/E-Community-Forum/internal/service"

	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// SocketServer serves an authenticated websocket connection.
type SocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID string)
}

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing      func(context.Context) error
	CORSOrigins []string

	// LoginLimiter defaults to an in-memory limiter.
	LoginLimiter Limiter

	Auth          *service.AuthService
	Users         *service.UsersService
	Friends       *service.FriendsService
	Notifications *service.NotificationService
	Communities   *service.CommunityService
	Posts         *service.PostService
	Discussions   *service.DiscussionService
	Tags          *service.TagsService
	Admin         *service.AdminService
	Hub           SocketServer
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limiter := opts.LoginLimiter
	if limiter == nil {
		limiter = newMemoryLimiter()
	}

	api := &api{
		logger:           logger,
		isProd:           opts.IsProd,
		dbPing:           opts.DBPing,
		authSvc:          opts.Auth,
		usersSvc:         opts.Users,
		friendsSvc:       opts.Friends,
		notificationsSvc: opts.Notifications,
		communitiesSvc:   opts.Communities,
		postsSvc:         opts.Posts,
		discussionsSvc:   opts.Discussions,
		tagsSvc:          opts.Tags,
		adminSvc:         opts.Admin,
		hub:              opts.Hub,
		loginLimiter:     limiter,
	}

	publicMux := http.NewServeMux()
	apiMux := http.NewServeMux()

	publicMux.HandleFunc("GET /{$}", api.handleRoot)
	publicMux.HandleFunc("GET /healthz", api.handleHealthz)

	if api.tagsSvc != nil {
		apiMux.HandleFunc("GET /api/tags", api.handleTagsList)
	}

	var wsHandler http.Handler = http.HandlerFunc(handleNotImplemented)
	if api.authSvc == nil {
		apiMux.HandleFunc("/api/", handleNotImplemented)
	} else {
		api.routes(apiMux)
		apiMux.HandleFunc("/api/", handleAPINotFound)
		if api.hub != nil {
			wsHandler = api.requireSocketAuth(api.handleWS)
		}
	}

	// apiMux.ServeHTTP, not apiMux.Handler: only the former fills r.PathValue.
	apiHandler := otelhttp.NewHandler(apiMux, "ecommunity.api")

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/ws":
			// Kept out of otelhttp: the span would last as long as the socket.
			wsHandler.ServeHTTP(w, r)
		case strings.HasPrefix(r.URL.Path, "/api/"):
			apiHandler.ServeHTTP(w, r)
		default:
			publicMux.ServeHTTP(w, r)
		}
	})

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
	})

	var h http.Handler = root
	h = c.Handler(h)
	h = RequestLogger(logger)(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

func (a *api) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", a.handleAuthRegister)
	mux.HandleFunc("POST /api/auth/login", a.handleAuthLogin)
	mux.HandleFunc("POST /api/auth/google", a.handleAuthGoogle)
	mux.HandleFunc("POST /api/auth/apple", a.handleAuthApple)
	mux.HandleFunc("POST /api/auth/logout", a.requireAuth(a.handleAuthLogout))
	mux.HandleFunc("GET /api/auth/me", a.requireAuth(a.handleAuthMe))

	if a.usersSvc != nil {
		mux.HandleFunc("GET /api/users/search", a.requireAuth(a.handleUsersSearch))
		mux.HandleFunc("GET /api/users/{id}", a.handleUsersGet)
		mux.HandleFunc("PUT /api/users/{id}", a.requireAuth(a.handleUsersUpdate))
	}

	if a.friendsSvc != nil {
		mux.HandleFunc("POST /api/friendship/send-request", a.requireAuth(a.handleFriendsSendRequest))
		mux.HandleFunc("POST /api/friendship/accept-request/{requestId}", a.requireAuth(a.handleFriendsAccept))
		mux.HandleFunc("POST /api/friendship/reject-request/{requestId}", a.requireAuth(a.handleFriendsReject))
		mux.HandleFunc("DELETE /api/friendship/cancel-request/{targetUserId}", a.requireAuth(a.handleFriendsCancel))
		mux.HandleFunc("DELETE /api/friendship/remove-friend/{friendId}", a.requireAuth(a.handleFriendsRemove))
		mux.HandleFunc("GET /api/friendship/friends/{userId}", a.requireAuth(a.handleFriendsList))
		mux.HandleFunc("GET /api/friendship/requests", a.requireAuth(a.handleFriendsRequests))
		mux.HandleFunc("GET /api/friendship/status/{targetUserId}", a.requireAuth(a.handleFriendsStatus))
	}

	if a.notificationsSvc != nil {
		mux.HandleFunc("GET /api/notifications", a.requireAuth(a.handleNotificationsList))
		mux.HandleFunc("GET /api/notifications/count", a.requireAuth(a.handleNotificationsCount))
		mux.HandleFunc("PUT /api/notifications/read", a.requireAuth(a.handleNotificationsRead))
		mux.HandleFunc("PUT /api/notifications/read-all", a.requireAuth(a.handleNotificationsReadAll))
		mux.HandleFunc("DELETE /api/notifications", a.requireAuth(a.handleNotificationsDelete))
		mux.HandleFunc("POST /api/notifications/token", a.requireAuth(a.handleNotificationsTokenUpsert))
		mux.HandleFunc("DELETE /api/notifications/token", a.requireAuth(a.handleNotificationsTokenDelete))
	}

	if a.communitiesSvc != nil {
		mux.HandleFunc("GET /api/communities", a.handleCommunitiesList)
		mux.HandleFunc("GET /api/communities/{id}", a.handleCommunitiesGet)
		mux.HandleFunc("GET /api/communities/{first}/{second}", a.handleCommunitiesSubresource)
		mux.HandleFunc("POST /api/communities", a.requireAuth(a.handleCommunitiesCreate))
		mux.HandleFunc("DELETE /api/communities/{id}", a.requireAuth(a.handleCommunitiesDelete))
		mux.HandleFunc("POST /api/communities/{id}/join", a.requireAuth(a.handleCommunitiesJoin))
		mux.HandleFunc("POST /api/communities/{id}/leave", a.requireAuth(a.handleCommunitiesLeave))
		mux.HandleFunc("PUT /api/communities/{id}/admin", a.requireAuth(a.handleCommunitiesPromote))
		mux.HandleFunc("PUT /api/communities/{id}/demote", a.requireAuth(a.handleCommunitiesDemote))
		mux.HandleFunc("DELETE /api/communities/{id}/member/{memberId}", a.requireAuth(a.handleCommunitiesRemoveMember))
	}

	if a.postsSvc != nil {
		mux.HandleFunc("GET /api/posts", a.handlePostsList)
		mux.HandleFunc("GET /api/posts/{id}", a.handlePostsGet)
		mux.HandleFunc("GET /api/posts/{first}/{second}", a.handlePostsSubresource)
		mux.HandleFunc("POST /api/posts", a.requireAuth(a.handlePostsCreate))
		mux.HandleFunc("PUT /api/posts/{id}", a.requireAuth(a.handlePostsUpdate))
		mux.HandleFunc("DELETE /api/posts/{id}", a.requireAuth(a.handlePostsDelete))
		mux.HandleFunc("PUT /api/posts/{id}/like", a.requireAuth(a.handlePostsLike))
		mux.HandleFunc("PUT /api/posts/{id}/dislike", a.requireAuth(a.handlePostsDislike))
		mux.HandleFunc("POST /api/posts/{id}/comments", a.requireAuth(a.handleCommentsCreate))
	}

	if a.discussionsSvc != nil {
		mux.HandleFunc("POST /api/discussions", a.requireAuth(a.handleDiscussionsCreate))
		mux.HandleFunc("GET /api/discussions", a.requireAuth(a.handleDiscussionsList))
		mux.HandleFunc("GET /api/discussions/my-discussions", a.requireAuth(a.handleDiscussionsMine))
		mux.HandleFunc("GET /api/discussions/{discussionId}", a.requireAuth(a.handleDiscussionsGet))
		mux.HandleFunc("POST /api/discussions/{discussionId}/join", a.requireAuth(a.handleDiscussionsJoin))
		mux.HandleFunc("POST /api/discussions/{discussionId}/leave", a.requireAuth(a.handleDiscussionsLeave))
		mux.HandleFunc("POST /api/discussions/{discussionId}/messages", a.requireAuth(a.handleDiscussionsPostMessage))
		mux.HandleFunc("PUT /api/discussions/{discussionId}/messages/{messageId}", a.requireAuth(a.handleDiscussionsEditMessage))
		mux.HandleFunc("DELETE /api/discussions/{discussionId}", a.requireAuth(a.handleDiscussionsDelete))
	}

	if a.adminSvc != nil {
		mux.HandleFunc("GET /api/admin/users", a.requireAdmin(a.handleAdminUsersList))
		mux.HandleFunc("PUT /api/admin/users/{id}/status", a.requireAdmin(a.handleAdminUsersSetStatus))
	}
}

func handleNotImplemented(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotImplemented, "not_implemented", "not implemented")
}

func handleAPINotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "Route not found")
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	authSvc          *service.AuthService
	usersSvc         *service.UsersService
	friendsSvc       *service.FriendsService
	notificationsSvc *service.NotificationService
	communitiesSvc   *service.CommunityService
	postsSvc         *service.PostService
	discussionsSvc   *service.DiscussionService
	tagsSvc          *service.TagsService
	adminSvc         *service.AdminService
	hub              SocketServer

	loginLimiter Limiter
}
