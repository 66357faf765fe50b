package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/auth"
	"github.com/hongminglow/paygate/internal/gateway"
	"github.com/hongminglow/paygate/internal/http/respond"
	"github.com/hongminglow/paygate/internal/ledger"
	"github.com/hongminglow/paygate/internal/otp"
	"github.com/hongminglow/paygate/internal/upi"
)

type errorMapping struct {
	err     error
	status  int
	message string
}

// domainErrors maps service errors to responses. The first match wins, so
// narrower errors come before the ones they wrap. An empty message means the
// error text is shown as is.
var domainErrors = []errorMapping{
	{ledger.ErrReceiverNotFound, http.StatusNotFound, "Receiver not found"},
	{ledger.ErrAccountNotFound, http.StatusNotFound, "Account not found"},
	{ledger.ErrInsufficientFunds, http.StatusBadRequest, "Insufficient balance"},
	{ledger.ErrSelfMovement, http.StatusBadRequest, "Cannot transfer money to yourself"},
	{ledger.ErrInvalidAmount, http.StatusBadRequest, ""},
	{ledger.ErrDescriptionLength, http.StatusBadRequest, ""},
	{ledger.ErrInvalidType, http.StatusBadRequest, ""},

	{upi.ErrPINFormat, http.StatusBadRequest, ""},
	{upi.ErrHandleFormat, http.StatusBadRequest, ""},
	{upi.ErrHandleTaken, http.StatusBadRequest, ""},
	{upi.ErrNotSetUp, http.StatusBadRequest, ""},
	{upi.ErrInvalidPIN, http.StatusUnauthorized, "Invalid PIN"},
	{upi.ErrReceiverNotFound, http.StatusNotFound, "Receiver UPI ID not found"},
	{upi.ErrUserNotFound, http.StatusNotFound, "User not found"},

	{otp.ErrEmailNotVerified, http.StatusBadRequest, "Email not verified. Please verify your email first."},
	{otp.ErrInvalidCode, http.StatusBadRequest, "Invalid or expired OTP"},

	{gateway.ErrInvalidAmount, http.StatusBadRequest, ""},
	{gateway.ErrSignatureMismatch, http.StatusBadRequest, "Payment verification failed"},
	{gateway.ErrOrderNotFound, http.StatusNotFound, "Order not found"},
	{gateway.ErrOrderNotPending, http.StatusConflict, "Order already processed"},
	{gateway.ErrPaymentMismatch, http.StatusBadRequest, ""},
	{gateway.ErrPaymentNotCaptured, http.StatusBadRequest, ""},
	{gateway.ErrProcessor, http.StatusInternalServerError, "Payment gateway error"},

	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "Invalid or expired refresh token"},
}

// writeError responds with the mapped status for known errors and a generic
// 500 otherwise. Unknown and upstream errors are logged in full.
func writeError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			if m.status >= http.StatusInternalServerError {
				log.Error(op, zap.Error(err))
			}
			msg := m.message
			if msg == "" {
				msg = m.err.Error()
			}
			respond.Error(w, m.status, msg)
			return
		}
	}
	log.Error(op, zap.Error(err))
	respond.Error(w, http.StatusInternalServerError, "Server error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}
