package handlers

import (
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/paygate/internal/models"
)

func TestBuildDashboard(t *testing.T) {
	var orders []models.Order
	for i := 0; i < 7; i++ {
		status := models.OrderPaid
		if i%3 == 0 {
			status = models.OrderCreated
		}
		orders = append(orders, models.Order{ProcessorOrderID: fmt.Sprintf("order_%d", i), Amount: 1050, Status: status})
	}
	payments := []models.Payment{
		{ProcessorPaymentID: "pay_1", Amount: 1050, Status: models.PaymentCaptured},
		{ProcessorPaymentID: "pay_2", Amount: 20000, Status: models.PaymentCaptured},
		{ProcessorPaymentID: "pay_3", Amount: 500, Status: models.PaymentRefunded},
	}

	d := buildDashboard(orders, payments)
	require.True(t, d.TotalRevenue.Equal(decimal.RequireFromString("210.50")))
	require.True(t, d.PendingAmount.Equal(decimal.RequireFromString("31.50")))
	require.Equal(t, 7, d.TotalOrders)
	require.Equal(t, 3, d.TotalPayments)
	require.Equal(t, 3, d.OrderStatusCount["created"])
	require.Equal(t, 4, d.OrderStatusCount["paid"])
	require.Equal(t, 1, d.PaymentStatusCount["refunded"])
	require.Len(t, d.RecentOrders, 5)
	require.Equal(t, "order_0", d.RecentOrders[0].ProcessorOrderID)
	require.Len(t, d.RecentPayments, 3)

	empty := buildDashboard([]models.Order{}, []models.Payment{})
	require.True(t, empty.TotalRevenue.IsZero())
	require.Empty(t, empty.RecentOrders)
}

func TestParseTransactionFilter(t *testing.T) {
	r := httptest.NewRequest("GET", "/transactions", nil)
	f, msg := parseTransactionFilter(r, 7)
	require.Empty(t, msg)
	require.Equal(t, int64(7), f.UserID)
	require.Equal(t, 1, f.Page)
	require.Equal(t, defaultPageLimit, f.Limit)

	r = httptest.NewRequest("GET", "/transactions?page=3&limit=500&type=upi&status=completed", nil)
	_, msg = parseTransactionFilter(r, 7)
	require.Equal(t, "unknown transaction type", msg)

	r = httptest.NewRequest("GET", "/transactions?page=3&limit=500&type=payment&startDate=2024-01-02&endDate=2024-01-05", nil)
	f, msg = parseTransactionFilter(r, 7)
	require.Empty(t, msg)
	require.Equal(t, 3, f.Page)
	require.Equal(t, maxPageLimit, f.Limit)
	require.Equal(t, models.TxPayment, f.Type)
	require.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), *f.From)
	require.Equal(t, time.Date(2024, 1, 5, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC), *f.To)

	for _, q := range []string{"page=0", "limit=abc", "startDate=yesterday", "endDate=2024-13-01"} {
		r = httptest.NewRequest("GET", "/transactions?"+q, nil)
		_, msg = parseTransactionFilter(r, 7)
		require.NotEmpty(t, msg, q)
	}
}
