package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"spendsync/internal/amqp"
	"spendsync/internal/backend"
	"spendsync/internal/cache"
	"spendsync/internal/cli"
	"spendsync/internal/config"
	"spendsync/internal/core"
	apphttp "spendsync/internal/http"
	"spendsync/internal/log"
	"spendsync/internal/middleware/ratelimit"
	"spendsync/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.LoadServer()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Server, logger *log.Logger) error {
	startCtx, cancelStart := context.WithTimeout(context.Background(), time.Minute)
	defer cancelStart()

	backendCfg, err := backend.FromServerConfig(cfg)
	if err != nil {
		return err
	}
	be, err := backend.NewFactory(logger).CreateBackend(startCtx, backendCfg)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	if be.Cleanup != nil {
		defer func() {
			if err := be.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err.Error())
			}
		}()
	}

	readyChecks := map[string]apphttp.ReadyCheck{}
	if be.Ready != nil {
		readyChecks["database"] = be.Ready
	}

	cacheManager := cache.NewManager(logger)
	defer cacheManager.Stop()

	var expenseOpts []services.ExpenseServiceOption
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(startCtx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Failed to initialize Redis, using in-process cache", log.FieldError, err.Error())
		} else {
			defer rdb.Close()
			expenseOpts = append(expenseOpts, services.WithAggregateCaches(
				cache.NewRedisCache[core.DailySummary](rdb, "spendsync:daily:", cfg.CacheTTL, logger),
				cache.NewRedisCache[core.MonthlySummary](rdb, "spendsync:monthly:", cfg.CacheTTL, logger),
			))
			readyChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
			logger.Info("Initialized Redis aggregate cache")
		}
	}
	if len(expenseOpts) == 0 {
		daily := cache.NewLRUCache[core.DailySummary](cfg.CacheSize, cfg.CacheTTL)
		monthly := cache.NewLRUCache[core.MonthlySummary](cfg.CacheSize, cfg.CacheTTL)
		cacheManager.Register(daily)
		cacheManager.Register(monthly)
		cacheManager.StartCleanup(cfg.CacheTTL)
		expenseOpts = append(expenseOpts, services.WithAggregateCaches(daily, monthly))
	}

	if cfg.AMQPURL != "" {
		publisher, err := amqp.NewClient(startCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without merge events", log.FieldError, err.Error())
		} else {
			defer publisher.Close()
			expenseOpts = append(expenseOpts, services.WithMergePublisher(publisher))
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"routing_key", cfg.AMQPRoutingKey)
		}
	}

	if logger.Enabled(context.Background(), slog.LevelDebug) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		Expenses:       services.NewExpenseService(be.Expenses, logger, expenseOpts...),
		Auth:           services.NewAuthService(be.Users, []byte(cfg.JWTSecret), cfg.TokenTTL, logger),
		Limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		TrustedProxies: cfg.TrustedProxies,
		ReadyChecks:    readyChecks,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting spendsync server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			<-done
		}
		return nil
	})
	return g.Wait()
}
