package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/itsmibrahim123/ExpenseManager/internal/cache"
	applog "github.com/itsmibrahim123/ExpenseManager/internal/log"
	"github.com/itsmibrahim123/ExpenseManager/internal/middleware/ratelimit"
	"github.com/itsmibrahim123/ExpenseManager/internal/middleware/security"
	"github.com/itsmibrahim123/ExpenseManager/internal/middleware/trace"
	"github.com/itsmibrahim123/ExpenseManager/internal/services"
)

// Server is the JSON API over the ledger services.
type Server struct {
	http.Server

	accounts     *services.AccountService
	transactions *services.TransactionService
	rules        *services.RecurringRuleService
	budgets      *services.BudgetService
	categories   *services.CategoryService
	dashboard    *services.DashboardService
	export       *services.ExportService
	audits       services.AuditStore

	logs         *applog.StructuredLogger
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	respCache    *cache.LRUCache[cachedResponse]
	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

// Options wires the services and the HTTP hardening knobs into the server.
type Options struct {
	Addr string

	Accounts     *services.AccountService
	Transactions *services.TransactionService
	Rules        *services.RecurringRuleService
	Budgets      *services.BudgetService
	Categories   *services.CategoryService
	Dashboard    *services.DashboardService
	Export       *services.ExportService
	Audits       services.AuditStore

	RateLimitPerMinute int
	CacheTTL           time.Duration
	CacheSize          int
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}

	s := &Server{
		accounts:     opts.Accounts,
		transactions: opts.Transactions,
		rules:        opts.Rules,
		budgets:      opts.Budgets,
		categories:   opts.Categories,
		dashboard:    opts.Dashboard,
		export:       opts.Export,
		audits:       opts.Audits,
		logs:         applog.NewStructuredLogger(applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		detector:     security.NewDetector(),
		respCache:    cache.NewLRUCache[cachedResponse](opts.CacheSize, opts.CacheTTL),
		cacheManager: cache.NewManager(),
	}
	s.cacheManager.Register(s.respCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP)
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, nil)

	var handler http.Handler = mux
	handler = limited(handler)
	handler = s.requestLogger(handler)
	handler = applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(handler)
	handler = tracer.Middleware(handler)
	handler = headers.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /accounts", s.handleListAccounts)
	mux.HandleFunc("GET /accounts/overview", s.handleAccountOverview)
	mux.HandleFunc("GET /accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("PUT /accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("PUT /accounts/{id}/currency", s.handleChangeCurrency)
	mux.HandleFunc("DELETE /accounts/{id}", s.handleArchiveAccount)

	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("GET /transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /transactions/{id}/status", s.handleTransactionStatus)

	mux.HandleFunc("POST /transfers", s.handleTransfer)

	mux.HandleFunc("POST /categories", s.handleCreateCategory)
	mux.HandleFunc("GET /categories", s.handleListCategories)
	mux.HandleFunc("PUT /categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /categories/{id}", s.handleDeleteCategory)
	mux.HandleFunc("POST /categories/defaults", s.handleEnsureDefaultCategories)

	mux.HandleFunc("POST /rules", s.handleCreateRule)
	mux.HandleFunc("GET /rules", s.handleListRules)
	mux.HandleFunc("GET /rules/due", s.handleListDueRules)
	mux.HandleFunc("GET /rules/{id}", s.handleGetRule)
	mux.HandleFunc("PUT /rules/{id}", s.handleUpdateRule)
	mux.HandleFunc("PUT /rules/{id}/active", s.handleRuleActive)
	mux.HandleFunc("POST /rules/{id}/advance", s.handleAdvanceRule)
	mux.HandleFunc("DELETE /rules/{id}", s.handleDeleteRule)

	mux.HandleFunc("POST /budgets", s.handleCreateBudget)
	mux.HandleFunc("GET /budgets", s.handleListBudgets)
	mux.HandleFunc("GET /budgets/progress", s.cached(s.handleBudgetProgress))
	mux.HandleFunc("GET /budgets/{id}", s.handleGetBudget)
	mux.HandleFunc("PUT /budgets/{id}", s.handleUpdateBudget)
	mux.HandleFunc("DELETE /budgets/{id}", s.handleDeleteBudget)
	mux.HandleFunc("POST /budgets/{id}/items", s.handleAddBudgetItem)
	mux.HandleFunc("PUT /budgets/{id}/items/{itemID}", s.handleUpdateBudgetItem)
	mux.HandleFunc("DELETE /budgets/{id}/items/{itemID}", s.handleDeleteBudgetItem)

	mux.HandleFunc("GET /dashboard/summary", s.cached(s.handleDashboardSummary))
	mux.HandleFunc("GET /dashboard/breakdown", s.cached(s.handleCategoryBreakdown))
	mux.HandleFunc("GET /dashboard/comparison", s.cached(s.handleComparison))

	mux.HandleFunc("GET /export/transactions", s.handleExportTransactions)
	mux.HandleFunc("GET /export/budgets", s.handleExportBudgets)

	mux.HandleFunc("GET /audit", s.handleListAudit)
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// cachedResponse is a materialized GET response held in the TTL-LRU cache.
type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

// bufferWriter records a response so it can be cached before being sent.
type bufferWriter struct {
	header http.Header
	status int
	buf    bytes.Buffer
}

func newBufferWriter() *bufferWriter {
	return &bufferWriter{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferWriter) Header() http.Header { return b.header }

func (b *bufferWriter) WriteHeader(code int) { b.status = code }

func (b *bufferWriter) Write(p []byte) (int, error) { return b.buf.Write(p) }

// cached wraps read handlers whose responses are expensive to compute. Keys
// are scoped per owner so invalidation after a write never crosses users.
func (s *Server) cached(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerID(r)
		if err != nil {
			respondError(w, r, err)
			return
		}

		key := cacheKey(owner, r)
		if resp, found := s.respCache.Get(key); found {
			w.Header().Set("Content-Type", resp.contentType)
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(resp.status)
			_, _ = w.Write(resp.body)
			return
		}

		rec := newBufferWriter()
		next(rec, r)

		if rec.status == http.StatusOK {
			s.respCache.Set(key, cachedResponse{
				status:      rec.status,
				contentType: rec.header.Get("Content-Type"),
				body:        rec.buf.Bytes(),
			})
		}

		for name, values := range rec.header {
			for _, v := range values {
				w.Header().Add(name, v)
			}
		}
		w.Header().Set("X-Cache", "MISS")
		w.WriteHeader(rec.status)
		_, _ = w.Write(rec.buf.Bytes())
	}
}

func cacheKey(owner int64, r *http.Request) string {
	return fmt.Sprintf("owner:%d:%s?%s", owner, r.URL.Path, r.URL.RawQuery)
}

// invalidateOwner drops every cached response for one owner after a write.
func (s *Server) invalidateOwner(owner int64) {
	s.respCache.DeletePrefix(fmt.Sprintf("owner:%d:", owner))
}

// statusWriter records the status code while passing writes through, so the
// request logger works for streaming responses too.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := s.detector.ExtractClientIP(r)
		s.logs.LogHTTPStart(r.Context(), r, clientIP)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		s.logs.LogHTTPEnd(r.Context(), r, sw.status, time.Since(start).Milliseconds(), clientIP)
	})
}
