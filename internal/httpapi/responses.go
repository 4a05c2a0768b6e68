package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/TheProfessor0105/E-Community-Forum/internal/domain"
)

type errorEnvelope struct {
	Success bool     `json:"success"`
	Error   apiError `json:"error"`
	Message string   `json:"message"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeError(w, status, apiError{Code: code, Message: message})
}

func writeError(w http.ResponseWriter, status int, e apiError) {
	WriteJSON(w, status, errorEnvelope{Error: e, Message: e.Message})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, messageResponse{Success: true, Message: message})
}

// WriteDomainError renders err with the status its category maps to. Declined
// transitions keep their reason as the message.
func WriteDomainError(w http.ResponseWriter, err error) {
	status, e := classify(err)

	var declined *domain.DeclinedError
	if errors.As(err, &declined) && declined.Reason != "" {
		e.Message = declined.Reason
	}
	var invalid *domain.ValidationError
	if errors.As(err, &invalid) && len(invalid.Fields) > 0 {
		e.Fields = invalid.Fields
	}
	writeError(w, status, e)
}

func classify(err error) (int, apiError) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, apiError{Code: "validation_error", Message: "invalid request"}
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusBadRequest, apiError{Code: "username_taken", Message: "Username already taken"}
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest, apiError{Code: "email_taken", Message: "Email already registered"}
	case errors.Is(err, domain.ErrCommunityNameTaken):
		return http.StatusBadRequest, apiError{Code: "community_name_taken", Message: "A community with this name already exists"}
	case errors.Is(err, domain.ErrFriendshipExists):
		return http.StatusBadRequest, apiError{Code: "friendship_exists", Message: "Friend request already exists"}
	case errors.Is(err, domain.ErrExternalAccountExists):
		return http.StatusBadRequest, apiError{Code: "external_account_exists", Message: "Account already linked"}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusBadRequest, apiError{Code: "conflict", Message: "conflict"}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, apiError{Code: "invalid_credentials", Message: "Invalid credentials"}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, apiError{Code: "unauthorized", Message: "Not authorized"}
	case errors.Is(err, domain.ErrUserDisabled):
		return http.StatusForbidden, apiError{Code: "user_disabled", Message: "Account is disabled"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, apiError{Code: "forbidden", Message: "forbidden"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, apiError{Code: "not_found", Message: "not found"}
	default:
		return http.StatusInternalServerError, apiError{Code: "internal_error", Message: "Server error"}
	}
}
