package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/http/respond"
	"github.com/hongminglow/paygate/internal/middleware"
	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/models/dto"
	"github.com/hongminglow/paygate/internal/storage"
)

const recentLimit = 5

// MerchantHandler serves read-only gateway reports for merchants and admins.
type MerchantHandler struct {
	orders storage.OrderStore
	guard  *middleware.Guard
	log    *zap.Logger
}

func NewMerchantHandler(orders storage.OrderStore, guard *middleware.Guard, log *zap.Logger) *MerchantHandler {
	return &MerchantHandler{orders: orders, guard: guard, log: log}
}

func (h *MerchantHandler) Register(mux *http.ServeMux) {
	mux.Handle("GET /merchant/dashboard", h.guard.Require(models.CapMerchantReports, h.handleDashboard))
	mux.Handle("GET /merchant/orders", h.guard.Require(models.CapMerchantReports, h.handleOrders))
	mux.Handle("GET /merchant/payments", h.guard.Require(models.CapMerchantReports, h.handlePayments))
}

func (h *MerchantHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	orders, err := h.orders.ListOrders(r.Context(), scope(user))
	if err != nil {
		writeError(w, h.log, "dashboard orders", err)
		return
	}
	payments, err := h.orders.ListPayments(r.Context(), scope(user))
	if err != nil {
		writeError(w, h.log, "dashboard payments", err)
		return
	}
	respond.JSON(w, http.StatusOK, "OK", buildDashboard(orders, payments))
}

// buildDashboard expects both slices newest first, as the store returns them.
func buildDashboard(orders []models.Order, payments []models.Payment) dto.MerchantDashboard {
	var revenue, pending int64
	orderCounts := dto.StatusCounts{}
	paymentCounts := dto.StatusCounts{}
	for _, o := range orders {
		orderCounts[string(o.Status)]++
		if o.Status == models.OrderCreated {
			pending += o.Amount
		}
	}
	for _, p := range payments {
		paymentCounts[string(p.Status)]++
		if p.Status == models.PaymentCaptured {
			revenue += p.Amount
		}
	}
	return dto.MerchantDashboard{
		TotalRevenue:       decimal.New(revenue, -2),
		PendingAmount:      decimal.New(pending, -2),
		TotalOrders:        len(orders),
		TotalPayments:      len(payments),
		PaymentStatusCount: paymentCounts,
		OrderStatusCount:   orderCounts,
		RecentOrders:       orders[:min(recentLimit, len(orders))],
		RecentPayments:     payments[:min(recentLimit, len(payments))],
	}
}

func (h *MerchantHandler) handleOrders(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	orders, err := h.orders.ListOrders(r.Context(), scope(user))
	if err != nil {
		writeError(w, h.log, "merchant orders", err)
		return
	}
	respond.JSON(w, http.StatusOK, "OK", dto.OrderList{Count: len(orders), Orders: orders})
}

func (h *MerchantHandler) handlePayments(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	payments, err := h.orders.ListPayments(r.Context(), scope(user))
	if err != nil {
		writeError(w, h.log, "merchant payments", err)
		return
	}
	respond.JSON(w, http.StatusOK, "OK", dto.PaymentList{Count: len(payments), Payments: payments})
}
