package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	otpapp "github.com/go-otp-gate/internal/application/otp"
	"github.com/go-otp-gate/internal/domain"
)

const genericErrMsg = "Something went wrong. Please try again."

// OtpHandler handles the verification form's two remote operations.
// Both accept form-encoded parameters and answer with {success, message};
// internal detail goes to the log, never into the response.
type OtpHandler struct {
	svc otpapp.Service
}

func NewOtpHandler(svc otpapp.Service) *OtpHandler {
	return &OtpHandler{svc: svc}
}

func (h *OtpHandler) Action(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, StatusEnvelope{Success: false, Message: "Missing data."})
		return
	}
	switch chi.URLParam(r, "action") {
	case "verify":
		h.verify(w, r)
	case "resend":
		h.resend(w, r)
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

func (h *OtpHandler) verify(w http.ResponseWriter, r *http.Request) {
	userID := r.PostFormValue("user_id")
	otpCode := r.PostFormValue("otp_code")

	outcome, err := h.svc.Verify(r.Context(), userID, otpCode)
	if err != nil {
		slog.Error("otp verification failed", "user_id", userID, "err", err)
		writeJSON(w, http.StatusInternalServerError, StatusEnvelope{Success: false, Message: genericErrMsg})
		return
	}

	status := http.StatusOK
	switch outcome {
	case otpapp.OutcomeMissingInput:
		status = http.StatusBadRequest
	case otpapp.OutcomeInvalid:
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, StatusEnvelope{
		Success: outcome == otpapp.OutcomeSuccess,
		Message: outcome.Message(),
	})
}

func (h *OtpHandler) resend(w http.ResponseWriter, r *http.Request) {
	userID := r.PostFormValue("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, StatusEnvelope{Success: false, Message: "User ID missing."})
		return
	}
	if err := h.svc.Resend(r.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, StatusEnvelope{Success: false, Message: "User not found."})
			return
		}
		slog.Error("otp resend failed", "user_id", userID, "err", err)
		writeJSON(w, http.StatusInternalServerError, StatusEnvelope{Success: false, Message: genericErrMsg})
		return
	}
	writeJSON(w, http.StatusOK, StatusEnvelope{Success: true, Message: "A new OTP has been sent to your email."})
}
