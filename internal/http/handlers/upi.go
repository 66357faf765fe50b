package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/http/respond"
	"github.com/hongminglow/paygate/internal/middleware"
	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/models/dto"
	"github.com/hongminglow/paygate/internal/upi"
)

type UPIHandler struct {
	upi   *upi.Service
	guard *middleware.Guard
	log   *zap.Logger
}

func NewUPIHandler(svc *upi.Service, guard *middleware.Guard, log *zap.Logger) *UPIHandler {
	return &UPIHandler{upi: svc, guard: guard, log: log}
}

func (h *UPIHandler) Register(mux *http.ServeMux) {
	mux.Handle("POST /upi/setup", h.guard.Require(models.CapWallet, h.handleSetup))
	mux.Handle("GET /upi/details", h.guard.Require(models.CapWallet, h.handleDetails))
	mux.Handle("POST /upi/verify-pin", h.guard.Require(models.CapWallet, h.handleVerifyPIN))
	mux.Handle("PUT /upi/update-pin", h.guard.Require(models.CapWallet, h.handleUpdatePIN))
	mux.Handle("POST /upi/pay", h.guard.Require(models.CapWallet, h.handlePay))
}

func (h *UPIHandler) handleSetup(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	var req dto.UPISetupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	details, err := h.upi.Setup(r.Context(), user.ID, req.CustomUPIID, req.PIN)
	if err != nil {
		writeError(w, h.log, "upi setup", err)
		return
	}
	respond.JSON(w, http.StatusOK, "UPI setup successful", details)
}

func (h *UPIHandler) handleDetails(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	details, err := h.upi.Details(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.log, "upi details", err)
		return
	}
	respond.JSON(w, http.StatusOK, "OK", details)
}

func (h *UPIHandler) handleVerifyPIN(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	var req dto.UPIPinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.upi.VerifyPIN(r.Context(), user.ID, req.PIN); err != nil {
		writeError(w, h.log, "upi verify pin", err)
		return
	}
	respond.JSON(w, http.StatusOK, "PIN verified", nil)
}

func (h *UPIHandler) handleUpdatePIN(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	var req dto.UPIUpdatePinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.upi.UpdatePIN(r.Context(), user.ID, req.CurrentPIN, req.NewPIN); err != nil {
		writeError(w, h.log, "upi update pin", err)
		return
	}
	respond.JSON(w, http.StatusOK, "PIN updated", nil)
}

func (h *UPIHandler) handlePay(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	var req dto.UPIPayRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ReceiverUPIID) == "" || !req.Amount.IsPositive() || req.PIN == "" {
		respond.Error(w, http.StatusBadRequest, "Please provide receiver UPI ID, a valid amount and PIN")
		return
	}
	payment, err := h.upi.Pay(r.Context(), user.ID, req.ReceiverUPIID, req.Amount, req.PIN, req.Description)
	if err != nil {
		writeError(w, h.log, "upi pay", err)
		return
	}
	respond.JSON(w, http.StatusOK, "Payment successful", dto.MovementResponse{
		TransactionID: payment.Transaction.TransactionID,
		Amount:        payment.Transaction.Amount,
		Receiver:      payment.Receiver.Summary(),
		Date:          payment.Transaction.CreatedAt,
	})
}
