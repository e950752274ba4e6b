package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-otp-gate/internal/application/account"
	otpapp "github.com/go-otp-gate/internal/application/otp"
	"github.com/go-otp-gate/internal/domain"
	"github.com/go-otp-gate/internal/pkg/validate"
)

// UserHandler handles account registration. Registration fires the OTP
// issuer the way the platform's user-register hook would.
type UserHandler struct {
	accounts account.Service
	otp      otpapp.Service
}

func NewUserHandler(accounts account.Service, otp otpapp.Service) *UserHandler {
	return &UserHandler{accounts: accounts, otp: otp}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		slog.Error("registration failed", "email", req.Email, "err", err)
		writeError(w, http.StatusInternalServerError, "could not create account")
		return
	}

	msg := "account created; verification code sent"
	if err := h.otp.Issue(r.Context(), u.UserID); err != nil {
		// The account exists either way; delivery trouble is logged and
		// the user can request a resend from the form.
		slog.Error("could not issue verification code", "user_id", u.UserID, "err", err)
		msg = "account created; verification code could not be sent, use resend"
	}
	writeJSON(w, http.StatusCreated, UserEnvelope{User: u, Message: msg})
}
