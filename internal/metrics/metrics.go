// Package metrics exposes the Prometheus collectors the server records into.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "paygate"

type Metrics struct {
	movementsTotal     *prometheus.CounterVec
	loginAttemptsTotal *prometheus.CounterVec
	refreshTotal       *prometheus.CounterVec
	gatewayVerifyTotal *prometheus.CounterVec
	sweepRunsTotal     *prometheus.CounterVec
	ordersExpiredTotal prometheus.Counter
	otpTotal           *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		movementsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "movements_total",
				Help:      "Ledger movements partitioned by transaction type and result.",
			},
			[]string{"type", "result"},
		),
		loginAttemptsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "login_attempts_total",
				Help:      "Password login attempts by result.",
			},
			[]string{"result"},
		),
		refreshTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "refresh_total",
				Help:      "Refresh token redemptions by result.",
			},
			[]string{"result"},
		),
		gatewayVerifyTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "verifications_total",
				Help:      "Payment verification callbacks by result.",
			},
			[]string{"result"},
		),
		sweepRunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "order_sweep_runs_total",
				Help:      "Order expiry sweeps by result.",
			},
			[]string{"result"},
		),
		ordersExpiredTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "orders_expired_total",
				Help:      "Orders moved from created to failed by the expiry sweep.",
			},
		),
		otpTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "otp",
				Name:      "events_total",
				Help:      "OTP issue and verify outcomes.",
			},
			[]string{"op", "result"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by method and status code.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "code"},
		),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveMovement(txType string, err error) {
	if m == nil {
		return
	}
	m.movementsTotal.WithLabelValues(txType, outcome(err)).Inc()
}

func (m *Metrics) ObserveLogin(err error) {
	if m == nil {
		return
	}
	m.loginAttemptsTotal.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) ObserveRefresh(err error) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) ObserveVerification(err error) {
	if m == nil {
		return
	}
	m.gatewayVerifyTotal.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) ObserveOrderSweep(expired int64, err error) {
	if m == nil {
		return
	}
	m.sweepRunsTotal.WithLabelValues(outcome(err)).Inc()
	if expired > 0 {
		m.ordersExpiredTotal.Add(float64(expired))
	}
}

func (m *Metrics) ObserveOTP(op string, err error) {
	if m == nil {
		return
	}
	m.otpTotal.WithLabelValues(op, outcome(err)).Inc()
}

func (m *Metrics) ObserveHTTP(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
