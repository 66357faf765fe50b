package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/gateway"
	"github.com/hongminglow/paygate/internal/http/respond"
	"github.com/hongminglow/paygate/internal/middleware"
	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/models/dto"
	"github.com/hongminglow/paygate/internal/storage"
)

// PaymentHandler fronts the gateway bridge.
type PaymentHandler struct {
	bridge *gateway.Bridge
	orders storage.OrderStore
	ledger storage.LedgerStore
	guard  *middleware.Guard
	keyID  string
	log    *zap.Logger
}

func NewPaymentHandler(bridge *gateway.Bridge, orders storage.OrderStore, ledger storage.LedgerStore, guard *middleware.Guard, keyID string, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{bridge: bridge, orders: orders, ledger: ledger, guard: guard, keyID: keyID, log: log}
}

func (h *PaymentHandler) Register(mux *http.ServeMux) {
	mux.Handle("POST /payment/create-order", h.guard.Require(models.CapGatewayOrders, h.handleCreateOrder))
	// The checkout widget calls back without a session; the signature authenticates it.
	mux.HandleFunc("POST /payment/verify", h.handleVerify)
	mux.Handle("GET /payment/orders", h.guard.Require(models.CapGatewayOrders, h.handleOrders))
	mux.Handle("GET /payment/payments", h.guard.Require(models.CapGatewayOrders, h.handlePayments))
}

func (h *PaymentHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	var req dto.CreateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	notes := req.Notes
	if notes == (models.OrderNotes{}) {
		notes = models.OrderNotes{Name: user.Name, Email: user.Email, Phone: user.Phone}
	}
	order, err := h.bridge.CreateOrder(r.Context(), user.ID, gateway.OrderRequest{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    notes,
	})
	if err != nil {
		writeError(w, h.log, "create order", err)
		return
	}
	respond.JSON(w, http.StatusOK, "Order created", dto.CreateOrderResponse{Order: order, KeyID: h.keyID})
}

func (h *PaymentHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.OrderID) == "" || strings.TrimSpace(req.PaymentID) == "" || strings.TrimSpace(req.Signature) == "" {
		respond.Error(w, http.StatusBadRequest, "orderId, paymentId and signature are required")
		return
	}
	res, err := h.bridge.Verify(r.Context(), req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		writeError(w, h.log, "verify payment", err)
		return
	}
	balance, err := h.ledger.Balance(r.Context(), res.Order.UserID)
	if err != nil {
		h.log.Warn("read balance after deposit", zap.Int64("user_id", res.Order.UserID), zap.Error(err))
	}
	respond.JSON(w, http.StatusOK, "Payment verified successfully", dto.VerifyPaymentResponse{
		OrderID:       res.Order.ProcessorOrderID,
		PaymentID:     res.Payment.ProcessorPaymentID,
		TransactionID: res.Transaction.TransactionID,
		Amount:        res.Transaction.Amount,
		Balance:       balance,
	})
}

// scope returns 0 (every user) for roles that may view all orders.
func scope(user models.User) int64 {
	if user.Role.Can(models.CapViewAllOrders) {
		return 0
	}
	return user.ID
}

func (h *PaymentHandler) handleOrders(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	orders, err := h.orders.ListOrders(r.Context(), scope(user))
	if err != nil {
		writeError(w, h.log, "list orders", err)
		return
	}
	respond.JSON(w, http.StatusOK, "OK", dto.OrderList{Count: len(orders), Orders: orders})
}

func (h *PaymentHandler) handlePayments(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	payments, err := h.orders.ListPayments(r.Context(), scope(user))
	if err != nil {
		writeError(w, h.log, "list payments", err)
		return
	}
	respond.JSON(w, http.StatusOK, "OK", dto.PaymentList{Count: len(payments), Payments: payments})
}
