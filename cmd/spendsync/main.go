package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spendsync/internal/apiclient"
	"spendsync/internal/cli"
	"spendsync/internal/config"
	"spendsync/internal/console"
	"spendsync/internal/ledger"
	"spendsync/internal/log"
	"spendsync/internal/netstatus"
	"spendsync/internal/storage"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.LoadClient()
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", log.FieldError, err.Error())
		os.Exit(2)
	}

	if err := run(cfg, logger, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, console.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(cfg *config.Client, logger *log.Logger, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, err := storage.NewSQLiteBlobStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer blobs.Close()

	api := apiclient.New(cfg.APIURL, cfg.RequestTimeout)
	prober, err := netstatus.NewDialProber(cfg.APIURL, cfg.RequestTimeout)
	if err != nil {
		return err
	}
	watcher := netstatus.NewWatcher(prober, cfg.ProbeInterval, logger)

	var app *console.App
	expenses := ledger.NewExpenseStore(blobs, logger)
	reconciler := ledger.NewReconciler(expenses, ledger.NewPendingQueue(blobs, logger), api, watcher, logger,
		ledger.WithFlushCallback(func() { app.ReportFlush() }))
	expenses.SetPublisher(reconciler)
	budgets := ledger.NewBudgetBook(blobs, expenses, logger)

	app = console.New(console.Deps{
		Expenses:   expenses,
		Budgets:    budgets,
		Alerts:     ledger.NewBudgetAlerts(budgets, console.NewNotifier(os.Stdout), cfg.WarningThreshold, logger),
		Session:    ledger.NewSession(api, blobs, logger),
		Reconciler: reconciler,
		Watcher:    watcher,
		Remote:     api,
		In:         os.Stdin,
		Out:        os.Stdout,
	})

	runErr := app.Run(ctx, args)

	// Writes hand their sync attempt to the reconciler; let those finish
	// before the store is closed.
	waitCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout+time.Second)
	defer cancel()
	if err := reconciler.Wait(waitCtx); err != nil {
		logger.Warn("Background sync did not finish", log.FieldError, err.Error())
	}
	return runErr
}
