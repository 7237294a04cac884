package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ydv-ankit/video-summarizer-client/internal/web/content"
	custommw "github.com/ydv-ankit/video-summarizer-client/internal/web/httpserver/middleware"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/httpserver/ui"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/login"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/observability"
	"github.com/ydv-ankit/video-summarizer-client/public"
)

const staticPrefix = "/public/static"

// Config holds runtime options for the web front end HTTP server.
type Config struct {
	Address     string
	Environment string
	Logger      *zap.Logger

	Sessions custommw.SessionStore
	Login    *login.Controller
	Content  *content.Library
	// Metrics serves /metrics when set.
	Metrics http.Handler

	CSRFCookieName   string
	CSRFHeaderName   string
	CSRFCookieSecure bool
	// CSRFKey signs the CSRF cookie; random per process when empty.
	CSRFKey []byte

	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) (*http.Server, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("httpserver: session store is required")
	}
	if cfg.Login == nil {
		return nil, errors.New("httpserver: login controller is required")
	}
	if cfg.Content == nil {
		return nil, errors.New("httpserver: content library is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	staticContent, err := public.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("embed static: %w", err)
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLoggerMiddleware(logger))
	router.Use(observability.TraceMiddleware())
	router.Use(observability.RequestLoggerMiddleware())
	router.Use(observability.RecoveryMiddleware(logger))
	router.Use(chimw.Timeout(durationOr(cfg.RequestTimeout, 60*time.Second)))

	router.Handle(staticPrefix+"/*", custommw.AssetsWithCache(staticContent, staticPrefix))
	router.Get("/healthz", healthz)
	if cfg.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	pages := ui.NewHandlers(ui.Dependencies{Content: cfg.Content})
	auth := newAuthHandlers(cfg.Login, cfg.Sessions)

	router.Group(func(r chi.Router) {
		r.Use(custommw.HTMX())
		r.Use(custommw.RequestInfoMiddleware())
		r.Use(custommw.Environment(cfg.Environment))
		r.Use(custommw.NoStore())
		r.Use(custommw.Session(cfg.Sessions))
		r.Use(custommw.CSRF(custommw.CSRFConfig{
			CookieName: cfg.CSRFCookieName,
			HeaderName: cfg.CSRFHeaderName,
			Secure:     cfg.CSRFCookieSecure,
			HashKey:    cfg.CSRFKey,
		}))

		r.Get("/", pages.Page("home"))
		r.Get("/summarize", pages.Page("summarize"))
		r.Get("/signup", pages.Page("signup"))

		r.Get(loginPath, auth.LoginForm)
		r.Post(loginPath, auth.LoginSubmit)
		r.Post("/logout", auth.Logout)

		r.NotFound(pages.NotFound)
	})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  durationOr(cfg.ReadTimeout, 15*time.Second),
		WriteTimeout: durationOr(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  durationOr(cfg.IdleTimeout, 120*time.Second),
	}, nil
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
