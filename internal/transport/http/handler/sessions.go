package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-otp-gate/internal/application/account"
	"github.com/go-otp-gate/internal/domain"
	"github.com/go-otp-gate/internal/pkg/validate"
	"github.com/go-otp-gate/internal/transport/http/middleware"
)

// SessionHandler issues the bearer token the access gate resolves identity
// from. The token is returned in the envelope and mirrored into a cookie so
// plain page navigation carries it too.
type SessionHandler struct {
	accounts account.Service
}

func NewSessionHandler(accounts account.Service) *SessionHandler {
	return &SessionHandler{accounts: accounts}
}

type loginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bearer, u, err := h.accounts.Login(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not log in")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    bearer,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, AuthEnvelope{Bearer: bearer, User: u})
}
