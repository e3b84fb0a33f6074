package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/livedeck/livedeck/internal/dotenv"
	"github.com/livedeck/livedeck/pkg/core/session"
	"github.com/livedeck/livedeck/pkg/gateway/config"
	"github.com/livedeck/livedeck/pkg/gateway/metrics"
	gatewayserver "github.com/livedeck/livedeck/pkg/gateway/server"
	"github.com/livedeck/livedeck/pkg/gateway/upstream"
	"github.com/livedeck/livedeck/pkg/store/slides"
)

type gatewayDeps struct {
	loadConfig   func() (config.Config, error)
	openStore    func(ctx context.Context, url string) (*slides.Store, error)
	newUpstream  func(ctx context.Context, cfg upstream.Config) (*upstream.Client, error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultGatewayDeps() gatewayDeps {
	return gatewayDeps{
		loadConfig:  config.LoadFromEnv,
		openStore:   slides.Open,
		newUpstream: upstream.New,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
}

func runGateway(ctx context.Context, logger *slog.Logger, deps gatewayDeps) error {
	if deps.loadConfig == nil || deps.openStore == nil || deps.newUpstream == nil {
		return errors.New("missing dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Missing key degrades the model boundaries instead of refusing to boot;
	// /readyz reports the condition.
	var up gatewayserver.Upstream
	if cfg.GeminiAPIKey != "" {
		client, err := deps.newUpstream(ctx, upstream.Config{
			APIKey:          cfg.GeminiAPIKey,
			VisionModel:     cfg.VisionModel,
			TranscribeModel: cfg.TranscribeModel,
			Timeout:         cfg.UpstreamTimeout,
		})
		if err != nil {
			return fmt.Errorf("build gemini client: %w", err)
		}
		up = client
	} else {
		logger.Warn("GEMINI_API_KEY not set, classify and transcribe endpoints disabled")
	}

	var deck session.SlideSource = slides.DemoDeck()
	if cfg.DatabaseURL != "" {
		store, err := deps.openStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open slide store: %w", err)
		}
		defer store.Close()
		deck = store
	}

	m := metrics.New("livedeck")
	gw := gatewayserver.New(cfg, logger, up, deck, m)
	httpSrv := buildHTTPServer(cfg, gw.Handler())

	logger.Info("starting gateway",
		"addr", cfg.Addr,
		"upstream_ready", up != nil,
		"db_backed", cfg.DatabaseURL != "",
	)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("gateway stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps gatewayDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := dotenv.Load(); err != nil {
		fmt.Fprintf(stderr, "livedeck: %v\n", err)
		return 1
	}

	if err := runGateway(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "livedeck: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultGatewayDeps()))
}
