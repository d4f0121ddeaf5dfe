// Package http exposes the expense and auth services as a JSON API on gin.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"spendsync/internal/log"
	"spendsync/internal/middleware/ratelimit"
	"spendsync/internal/middleware/security"
	"spendsync/internal/middleware/trace"
	"spendsync/internal/services"
)

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

// Options wires the server's dependencies. Limiter and ReadyChecks are
// optional.
type Options struct {
	Addr           string
	Expenses       *services.ExpenseService
	Auth           *services.AuthService
	Limiter        *ratelimit.Limiter
	TrustedProxies []string
	ReadyChecks    map[string]ReadyCheck
	Logger         *log.Logger
}

type Server struct {
	http.Server
	expenses    *services.ExpenseService
	auth        *services.AuthService
	limiter     *ratelimit.Limiter
	readyChecks map[string]ReadyCheck
	logger      *log.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options) (*Server, error) {
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		expenses:    opts.Expenses,
		auth:        opts.Auth,
		limiter:     opts.Limiter,
		readyChecks: opts.ReadyChecks,
		logger:      logger,
	}

	engine.Use(
		gin.Recovery(),
		trace.Middleware(opts.Logger),
		security.Headers(security.DefaultHeadersConfig()),
		security.NewDetector(opts.Logger).Middleware(),
		cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:   []string{"Content-Length", trace.HeaderRequestID},
			MaxAge:          12 * time.Hour,
		}),
	)

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/readyz", s.handleReady)

	api := engine.Group("/api")
	if s.limiter != nil {
		api.Use(s.limiter.Middleware())
	}

	auth := api.Group("/auth")
	auth.POST("/register", s.handleRegister)
	auth.POST("/login", s.handleLogin)

	expenses := api.Group("/expenses")
	expenses.GET("", s.handleListExpenses)
	expenses.POST("", s.handleCreateExpense)
	expenses.PUT("/:id", s.handleUpdateExpense)
	expenses.DELETE("/:id", s.handleDeleteExpense)
	expenses.POST("/sync", s.handleSync)
	expenses.POST("/sync-pending", s.handleSyncPending)
	expenses.GET("/aggregate/daily", s.handleDaily)
	expenses.GET("/aggregate/monthly", s.handleMonthly)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
	})

	return s, nil
}

// Shutdown stops the rate limiter and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.readyChecks))
	ready := true
	for name, check := range s.readyChecks {
		if err := check(ctx); err != nil {
			ready = false
			checks[name] = err.Error()
			s.logger.WarnContext(ctx, "Readiness check failed", "check", name, log.FieldError, err.Error())
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}
