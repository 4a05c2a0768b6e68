package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/TheProfessor0105/E-Community-Forum/internal/auth"
	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

type authCtxKey int

const (
	authUserKey authCtxKey = iota
	authSessionKey
)

func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "Not authorized, no token")
			return
		}
		a.authenticated(w, r, token, next)
	}
}

// requireSocketAuth also accepts ?token= since browsers cannot set headers on
// a websocket upgrade.
func (a *api) requireSocketAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			token = strings.TrimSpace(r.URL.Query().Get("token"))
		}
		if token == "" {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "Not authorized, no token")
			return
		}
		a.authenticated(w, r, token, next)
	}
}

func (a *api) authenticated(w http.ResponseWriter, r *http.Request, token string, next http.HandlerFunc) {
	u, sessID, err := a.authSvc.Authenticate(r.Context(), token)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	ctx := context.WithValue(r.Context(), authUserKey, u)
	ctx = context.WithValue(ctx, authSessionKey, sessID)
	next.ServeHTTP(w, r.WithContext(ctx))
}

func (a *api) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return a.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		u, _ := CurrentUser(r.Context())
		if u.Role != domain.UserRoleAdmin {
			WriteDomainError(w, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func CurrentUser(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(authUserKey).(domain.User)
	return u, ok
}

func CurrentSessionID(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(authSessionKey).(string)
	return s, ok
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
