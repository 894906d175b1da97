package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"finledger/internal/auth"
	"finledger/internal/cache"
	"finledger/internal/core"
	"finledger/internal/ledger"
	applog "finledger/internal/log"
	"finledger/internal/middleware/ratelimit"
	"finledger/internal/middleware/security"
	"finledger/internal/middleware/trace"
	"finledger/internal/services"
)

// Services are the engines and stores the handlers call.
type Services struct {
	Analytics    *services.AnalyticsService
	Budgets      *services.BudgetService
	History      *services.HistoryService
	Dashboard    *services.DashboardService
	Transactions *services.TransactionService
	Categories   *services.CategoryService
	Wallets      *services.WalletService
	Alerts       ledger.AlertStore
	Store        interface{ Ping(ctx context.Context) error }
}

// NewServices wires every engine on top of a single store.
func NewServices(store ledger.Store, publisher services.EventPublisher) Services {
	analytics := services.NewAnalyticsService(store)
	budgets := services.NewBudgetService(store, store, store, publisher)
	history := services.NewHistoryService(analytics, store)
	transactions := services.NewTransactionService(store, publisher)
	categories := services.NewCategoryService(store)
	return Services{
		Analytics:    analytics,
		Budgets:      budgets,
		History:      history,
		Dashboard:    services.NewDashboardService(store, transactions, categories, budgets, history, analytics),
		Transactions: transactions,
		Categories:   categories,
		Wallets:      services.NewWalletService(store, publisher),
		Alerts:       store,
		Store:        store,
	}
}

type Options struct {
	// Verifier is nil when JWT_SECRET is unset; every caller is then anonymous.
	Verifier          *auth.Verifier
	Logger            *applog.Logger
	CacheTTL          time.Duration
	CacheSize         int
	RequestsPerMinute int
	Now               func() time.Time
}

type Server struct {
	http.Server
	svc     Services
	now     func() time.Time
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	// Read models cached per user; any write by that user drops its entries.
	dashboards *cache.ReadModel[services.Dashboard]
	histories  *cache.ReadModel[[]core.HistoryPoint]
	caches     *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 512
	}

	ipResolver := security.NewClientIPResolver()
	dashboardLRU := cache.NewLRUCache[string, services.Dashboard](opts.CacheSize, opts.CacheTTL)
	historyLRU := cache.NewLRUCache[string, []core.HistoryPoint](opts.CacheSize, opts.CacheTTL)
	s := &Server{
		svc:        svc,
		now:        opts.Now,
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		tracer:     trace.NewMiddleware(ipResolver.ExtractClientIP, opts.Logger),
		dashboards: cache.NewReadModel[services.Dashboard](dashboardLRU),
		histories:  cache.NewReadModel[[]core.HistoryPoint](historyLRU),
		caches:     cache.NewManager(),
	}
	s.caches.Register(dashboardLRU)
	s.caches.Register(historyLRU)
	s.caches.StartCleanup(context.Background(), opts.CacheTTL)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	if opts.Verifier != nil {
		api.Use(opts.Verifier.Middleware)
	}
	api.Use(s.limiter.Middleware(func(r *http.Request) string {
		if uid := auth.UserIDFromContext(r.Context()); uid != "" {
			return "user:" + uid
		}
		return "ip:" + ipResolver.ExtractClientIP(r)
	}, func(w http.ResponseWriter, r *http.Request) {
		slog.WarnContext(r.Context(), "Rate limit exceeded", "path", r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	}))

	// Reads: anonymous callers get empty results.
	read := func(path, component string, h http.HandlerFunc) {
		api.Handle(path, applog.ComponentMiddleware(component)(h)).Methods(http.MethodGet)
	}
	read("/analytics/monthly-spending", applog.ComponentAnalytics, s.handleMonthlySpending)
	read("/analytics/categories", applog.ComponentAnalytics, s.handleCategoryBreakdown)
	read("/analytics/categories.png", applog.ComponentAnalytics, s.handleCategoryChart)
	read("/analytics/summary", applog.ComponentAnalytics, s.handlePeriodSummary)
	read("/analytics/history", applog.ComponentAnalytics, s.handleHistory)
	read("/analytics/history.png", applog.ComponentAnalytics, s.handleHistoryChart)
	read("/budgets/usage", applog.ComponentBudget, s.handleBudgetUsage)
	read("/alerts", applog.ComponentBudget, s.handleListAlerts)
	read("/dashboard", applog.ComponentLedger, s.handleDashboard)
	read("/transactions", applog.ComponentLedger, s.handleListTransactions)
	read("/transactions/recent", applog.ComponentLedger, s.handleRecentTransactions)
	read("/categories", applog.ComponentLedger, s.handleListCategories)
	read("/wallets", applog.ComponentLedger, s.handleListWallets)

	// Writes require an identity.
	write := func(path, component string, h http.HandlerFunc, method string) {
		api.Handle(path, applog.ComponentMiddleware(component)(auth.RequireUser(h))).Methods(method)
	}
	write("/budgets", applog.ComponentBudget, s.handleUpsertBudget, http.MethodPut)
	write("/budgets/copy", applog.ComponentBudget, s.handleCopyBudgets, http.MethodPost)
	write("/transactions", applog.ComponentLedger, s.handleCreateTransaction, http.MethodPost)
	write("/transactions/{id}", applog.ComponentLedger, s.handleUpdateTransaction, http.MethodPut)
	write("/transactions/{id}", applog.ComponentLedger, s.handleDeleteTransaction, http.MethodDelete)
	write("/categories", applog.ComponentLedger, s.handleCreateCategory, http.MethodPost)
	write("/categories/seed", applog.ComponentLedger, s.handleSeedCategories, http.MethodPost)
	write("/categories/{id}", applog.ComponentLedger, s.handleUpdateCategory, http.MethodPut)
	write("/categories/{id}", applog.ComponentLedger, s.handleDeleteCategory, http.MethodDelete)
	write("/wallets", applog.ComponentLedger, s.handleCreateWallet, http.MethodPost)
	write("/wallets/{id}", applog.ComponentLedger, s.handleUpdateWallet, http.MethodPut)
	write("/wallets/{id}", applog.ComponentLedger, s.handleDeleteWallet, http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such endpoint").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(r),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics exposes the request counters collected by the tracer.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if s.svc.Store != nil {
		if err := s.svc.Store.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "Readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func cacheKey(kind string, p core.Period) string {
	return kind + "|" + p.String()
}

// invalidateUser drops every cached read model of userID. Loads already in
// flight for that user are not cached when they finish.
func (s *Server) invalidateUser(ctx context.Context, userID string) {
	n := s.dashboards.Invalidate(userID) + s.histories.Invalidate(userID)
	if n > 0 {
		slog.DebugContext(ctx, "Read models invalidated", applog.FieldUserID, userID, "entries", n)
	}
}

// logWrite records a successful mutation with the request-scoped logger.
func logWrite(r *http.Request, op, userID string, p core.Period) {
	applog.NewRequestLogger(applog.FromContext(r.Context())).
		LedgerWrite(r.Context(), op, userID, p.String())
}
