package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ydv-ankit/video-summarizer-client/internal/web/authapi"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/config"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/content"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/httpserver"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/login"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/metrics"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/observability"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/session"
)

const serviceName = "quickvideo-web"

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("web").With(zap.String("environment", cfg.Environment))

	shutdownTracing, err := observability.InitTracing(ctx, serviceName, cfg.Environment)
	if err != nil {
		logger.Fatal("failed to initialise tracing", zap.Error(err))
	}

	if cfg.Session.Ephemeral {
		logger.Warn("QUICKVIDEO_SESSION_HASH_KEY not set; using a random key, sessions end on restart")
	}

	sessions, err := session.NewManager(session.Config{
		HashKey:      cfg.Session.HashKey,
		BlockKey:     cfg.Session.BlockKey,
		CookieSecure: cfg.Session.CookieSecure,
		IdleTimeout:  cfg.Session.IdleTimeout,
		Logger:       logger.Named("session"),
	})
	if err != nil {
		logger.Fatal("failed to initialise session manager", zap.Error(err))
	}

	library, err := content.Load()
	if err != nil {
		logger.Fatal("failed to load content pages", zap.Error(err))
	}

	registry, m := metrics.NewRegistry()
	m.ObserveSessions(sessions.Authenticated)

	backend := authapi.NewClient(cfg.Backend.BaseURL, &http.Client{Timeout: cfg.Backend.Timeout})
	controller := login.NewController(backend, m, logger.Named("login"))

	server, err := httpserver.New(httpserver.Config{
		Address:          cfg.Server.Addr,
		Environment:      cfg.Environment,
		Logger:           logger.Named("http"),
		Sessions:         sessions,
		Login:            controller,
		Content:          library,
		Metrics:          metrics.HandlerFor(registry),
		CSRFCookieSecure: cfg.Session.CookieSecure,
		CSRFKey:          cfg.Session.HashKey,
		RequestTimeout:   cfg.Server.RequestTimeout,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		IdleTimeout:      cfg.Server.IdleTimeout,
	})
	if err != nil {
		logger.Fatal("failed to initialise http server", zap.Error(err))
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	var sweepWG sync.WaitGroup
	sweepWG.Add(1)
	go func() {
		defer sweepWG.Done()
		sweepLogger := logger.Named("session")
		ticker := time.NewTicker(cfg.Session.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				if removed := sessions.Sweep(now); removed > 0 {
					sweepLogger.Debug("expired sessions removed", zap.Int("count", removed), zap.Int("live", sessions.Len()))
				}
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	shutdown, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("quickvideo web listening", zap.String("backend", cfg.Backend.BaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown.Done()
	logger.Info("shutdown signal received; draining requests")

	sweepCancel()
	sweepWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown failed", zap.Error(err))
	}
}
