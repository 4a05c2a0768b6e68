package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
	"github.com/TheProfessor0105/E-Community-Forum/internal/service"
)

const minPasswordLen = 8

type registerRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

type authResponse struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func writeAuthSession(w http.ResponseWriter, status int, s service.AuthSession) {
	WriteJSON(w, status, authResponse{User: s.User, Token: s.Token, ExpiresAt: s.ExpiresAt})
}

func (a *api) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	fields := map[string]string{}
	req.Username = normalizeUsername(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Firstname = strings.TrimSpace(req.Firstname)
	req.Lastname = strings.TrimSpace(req.Lastname)
	if !validUsername(req.Username) {
		fields["username"] = "must be 3-24 chars [A-Za-z0-9_]"
	}
	if len(req.Password) < minPasswordLen {
		fields["password"] = "must be at least 8 characters"
	}
	if req.Firstname == "" {
		fields["firstname"] = "required"
	}
	if req.Lastname == "" {
		fields["lastname"] = "required"
	}
	if req.Email != "" && !strings.Contains(req.Email, "@") {
		fields["email"] = "invalid email"
	}
	if len(fields) > 0 {
		WriteDomainError(w, domain.NewValidationError(fields))
		return
	}

	sess, err := a.authSvc.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
	}, clientIP(r), r.UserAgent())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	writeAuthSession(w, http.StatusCreated, sess)
}

type loginRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *api) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}

	login := strings.TrimSpace(req.Login)
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}
	if login == "" || req.Password == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"login": "required", "password": "required"}))
		return
	}

	ip := clientIP(r)
	if !a.allowLogin(r, "ip:"+ip) || !a.allowLogin(r, "login:"+strings.ToLower(login)) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "Too many login attempts, try again later")
		return
	}

	sess, err := a.authSvc.Login(r.Context(), login, req.Password, ip, r.UserAgent())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	writeAuthSession(w, http.StatusOK, sess)
}

// allowLogin fails open when the shared limiter is unreachable.
func (a *api) allowLogin(r *http.Request, key string) bool {
	ok, err := a.loginLimiter.Allow(r.Context(), key, time.Now())
	if err != nil {
		a.logger.Warn("login limiter unavailable", "err", err)
		return true
	}
	return ok
}

type idTokenRequest struct {
	IDToken string `json:"idToken"`
}

func (a *api) handleAuthGoogle(w http.ResponseWriter, r *http.Request) {
	a.handleAuthExternal(w, r, a.authSvc.LoginWithGoogle)
}

func (a *api) handleAuthApple(w http.ResponseWriter, r *http.Request) {
	a.handleAuthExternal(w, r, a.authSvc.LoginWithApple)
}

type externalLogin func(ctx context.Context, idToken, ip, userAgent string) (service.AuthSession, error)

func (a *api) handleAuthExternal(w http.ResponseWriter, r *http.Request, login externalLogin) {
	var req idTokenRequest
	if err := decodeJSONLenient(w, r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	req.IDToken = strings.TrimSpace(req.IDToken)
	if req.IDToken == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"idToken": "required"}))
		return
	}

	sess, err := login(r.Context(), req.IDToken, clientIP(r), r.UserAgent())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	writeAuthSession(w, http.StatusOK, sess)
}

func (a *api) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	sessID, ok := CurrentSessionID(r.Context())
	if !ok || sessID == "" {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	if err := a.authSvc.Logout(r.Context(), sessID); err != nil {
		a.logger.Warn("logout failed", "err", err)
	}
	writeMessage(w, http.StatusOK, "Logged out")
}

func (a *api) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	WriteJSON(w, http.StatusOK, u)
}
