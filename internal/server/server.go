package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/auth"
	"github.com/hongminglow/paygate/internal/clock"
	"github.com/hongminglow/paygate/internal/config"
	"github.com/hongminglow/paygate/internal/gateway"
	"github.com/hongminglow/paygate/internal/http/handlers"
	"github.com/hongminglow/paygate/internal/ledger"
	"github.com/hongminglow/paygate/internal/metrics"
	"github.com/hongminglow/paygate/internal/middleware"
	"github.com/hongminglow/paygate/internal/notify"
	"github.com/hongminglow/paygate/internal/otp"
	"github.com/hongminglow/paygate/internal/storage"
	"github.com/hongminglow/paygate/internal/upi"
)

// Deps are the collaborators the server is assembled from.
type Deps struct {
	Store     storage.Store
	Refresh   storage.RefreshStore
	Processor gateway.Processor
	Mailer    notify.Mailer
	Clock     clock.Clock
	Registry  *prometheus.Registry
	Logger    *zap.Logger
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner  *http.Server
	bridge *gateway.Bridge
	cfg    config.Config
}

// New wires up services, middleware and routes, and returns a ready server.
func New(cfg config.Config, deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	refresh := deps.Refresh
	if refresh == nil {
		refresh = deps.Store
	}
	m := metrics.New(registry)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL, cfg.RefreshTTL).WithClock(clk.Now)
	sessions := auth.NewSessions(deps.Store, refresh, tokens, m, log.Named("auth"))
	guard := middleware.NewGuard(tokens, deps.Store, log.Named("guard"))
	engine := ledger.NewEngine(deps.Store, deps.Store, clk, m, log.Named("ledger"))
	bridge := gateway.NewBridge(deps.Processor, deps.Store, engine, cfg.RazorpayKeySecret, clk, m, log.Named("gateway"))
	upiService := upi.NewService(deps.Store, engine, log.Named("upi"))
	otpAuth := otp.NewAuthenticator(deps.Store, deps.Mailer, clk, cfg.OTPTTL, m, log.Named("otp"))

	mux := http.NewServeMux()
	handlers.NewHealthHandler(clk.Now(), cfg.AppEnv).Register(mux)
	handlers.NewAuthHandler(deps.Store, sessions, guard, deps.Mailer, handlers.AuthOptions{
		ClientURL:    cfg.ClientURL,
		CookieSecure: cfg.CookieSecure,
	}, log.Named("http")).Register(mux)
	handlers.NewTransactionHandler(engine, deps.Store, guard, log.Named("http")).Register(mux)
	handlers.NewPaymentHandler(bridge, deps.Store, deps.Store, guard, cfg.RazorpayKeyID, log.Named("http")).Register(mux)
	handlers.NewMerchantHandler(deps.Store, guard, log.Named("http")).Register(mux)
	handlers.NewUPIHandler(upiService, guard, log.Named("http")).Register(mux)
	handlers.NewOTPHandler(otpAuth, log.Named("http")).Register(mux)
	handlers.NewUserHandler(deps.Store, guard, log.Named("http")).Register(mux)
	if cfg.Development() {
		handlers.NewSetupHandler(deps.Store, log.Named("http")).Register(mux)
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(log.Named("access"), m, mux))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer, bridge: bridge, cfg: cfg}
}

// Handler exposes the fully wrapped handler for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler
}

// StartWorkers launches background jobs that stop when ctx is done.
func (s *Server) StartWorkers(ctx context.Context) {
	s.bridge.StartExpiryWorker(ctx, s.cfg.OrderSweepInterval, s.cfg.OrderTTL)
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
