// Package main runs the Hydra gateway: it loads configuration, brings up
// the registered heads, starts the browser engine when any head needs a
// session, and serves the HTTP API until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/entrhq/hydra/pkg/browser"
	"github.com/entrhq/hydra/pkg/catalog"
	"github.com/entrhq/hydra/pkg/config"
	"github.com/entrhq/hydra/pkg/gateway"
	"github.com/entrhq/hydra/pkg/head"
	"github.com/entrhq/hydra/pkg/heads"
	"github.com/entrhq/hydra/pkg/server"
)

const version = "0.1.0"

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file (YAML)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("Hydra v%s\n", version)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "hydra: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync()

	registry, err := head.Load(logger, heads.Constructors(cfg))
	if err != nil {
		return fmt.Errorf("load heads: %w", err)
	}
	if registry.Len() == 0 {
		return fmt.Errorf("no heads available: set at least one provider credential or run ollama")
	}

	// The engine is only worth starting when a session head registered.
	// A failed start degrades rather than aborts: session heads report
	// the browser as unavailable and API heads keep serving.
	var engine *browser.Engine
	if registry.HasSessionHeads() {
		engine, err = browser.StartEngine(browser.Options{
			DataDir:  cfg.DataDir,
			Headless: cfg.Headless,
		})
		if err != nil {
			logger.Warn("browser engine unavailable, session heads disabled", zap.Error(err))
			engine = nil
		}
	}

	gw := gateway.New(registry, engine, gateway.Options{
		Allowlist:     browser.ParseAllowlist(cfg.AllowedDomains),
		ScreenshotDir: cfg.ScreenshotDir,
	}, logger)
	defer gw.Close()

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.New(gw, catalog.New(cfg), cfg, logger).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.Addr()),
			zap.Strings("heads", registry.Names()),
			zap.Bool("browser", engine != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
