package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/brandit/internal/domain"
	"github.com/alanyoungcy/brandit/internal/server/handler"
	"github.com/alanyoungcy/brandit/internal/server/middleware"
	"github.com/alanyoungcy/brandit/internal/server/ws"
)

// healthPath is reachable without credentials or rate limiting.
const healthPath = "/api/health"

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	// AdminKeyHash is the bcrypt hash of the admin key. Admin routes are
	// refused while it is empty.
	AdminKeyHash string
	RateLimit    int
	RateWindow   time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// Archives may be nil when no blob store is configured.
type Handlers struct {
	Health   *handler.HealthHandler
	Status   *handler.StatusHandler
	Products *handler.ProductHandler
	Orders   *handler.OrderHandler
	Tracker  *handler.TrackerHandler
	Archives *handler.ArchiveHandler
}

// Server is the HTTP + WebSocket API server for the exchange and tracker.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// A nil limiter disables rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	admin := middleware.AdminAuth(cfg.AdminKeyHash)
	adminFunc := func(fn http.HandlerFunc) http.Handler { return admin(fn) }

	mux.HandleFunc("GET "+healthPath, handlers.Health.HealthCheck)
	if handlers.Status != nil {
		mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)
	}

	// Products and pricing.
	p := handlers.Products
	mux.HandleFunc("GET /api/products", p.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", p.GetProduct)
	mux.HandleFunc("GET /api/products/{id}/history", p.GetHistory)
	mux.HandleFunc("GET /api/products/{id}/quote", p.GetQuote)
	mux.HandleFunc("GET /api/quotes", p.GetQuotes)
	mux.HandleFunc("GET /api/market/stats", p.MarketStats)
	mux.Handle("POST /api/admin/products", adminFunc(p.CreateProduct))
	mux.Handle("PUT /api/admin/products/{id}", adminFunc(p.UpdateProduct))
	mux.Handle("DELETE /api/admin/products/{id}", adminFunc(p.DeleteProduct))
	mux.Handle("POST /api/admin/crash-sale", adminFunc(p.CrashSale))

	// Orders.
	mux.HandleFunc("POST /api/orders", handlers.Orders.CreateOrder)
	mux.HandleFunc("POST /api/orders/{id}/verify", handlers.Orders.VerifyPayment)
	mux.HandleFunc("GET /api/orders/user/{user_id}", handlers.Orders.ListUserOrders)

	// Tracker.
	t := handlers.Tracker
	mux.HandleFunc("GET /api/tracker", t.GetProfile)
	mux.HandleFunc("POST /api/tracker/study", t.Study)
	mux.HandleFunc("POST /api/tracker/practice", t.Practice)
	mux.HandleFunc("POST /api/tracker/grind", t.Grind)
	mux.HandleFunc("POST /api/tracker/daily-quest", t.DailyQuest)
	mux.HandleFunc("POST /api/tracker/allocate", t.Allocate)

	if a := handlers.Archives; a != nil {
		mux.Handle("GET /api/admin/archives", adminFunc(a.ListArchives))
		mux.Handle("POST /api/admin/archives/run", adminFunc(a.RunArchive))
	}

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, healthPath)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		h = skipPath(healthPath, middleware.RateLimit(limiter, cfg.RateLimit, window, logger)(h), h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		handler:    h,
		logger:     logger,
	}
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// skipPath routes requests for path to bypass and everything else to next.
func skipPath(path string, next, bypass http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == path {
			bypass.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
