package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/http/respond"
	"github.com/hongminglow/paygate/internal/models/dto"
	"github.com/hongminglow/paygate/internal/otp"
)

type OTPHandler struct {
	otp *otp.Authenticator
	log *zap.Logger
}

func NewOTPHandler(a *otp.Authenticator, log *zap.Logger) *OTPHandler {
	return &OTPHandler{otp: a, log: log}
}

func (h *OTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /otp/send-otp", h.handleSend)
	mux.HandleFunc("POST /otp/verify-otp", h.handleVerify)
}

func (h *OTPHandler) handleSend(w http.ResponseWriter, r *http.Request) {
	var req dto.OTPSendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		respond.Error(w, http.StatusBadRequest, "Please provide an email")
		return
	}
	if err := h.otp.Issue(r.Context(), req.Email); err != nil {
		writeError(w, h.log, "send otp", err)
		return
	}
	respond.JSON(w, http.StatusOK, "OTP sent to your email", nil)
}

func (h *OTPHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req dto.OTPVerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.OTP) == "" {
		respond.Error(w, http.StatusBadRequest, "Please provide email and OTP")
		return
	}
	if err := h.otp.Verify(r.Context(), req.Email, req.OTP); err != nil {
		writeError(w, h.log, "verify otp", err)
		return
	}
	respond.JSON(w, http.StatusOK, "OTP verified successfully", nil)
}
