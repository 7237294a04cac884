package testutil

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ydv-ankit/video-summarizer-client/internal/web/authapi"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/content"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/httpserver"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/login"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/metrics"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/session"
)

type serverOptions struct {
	auth        authapi.Authenticator
	environment string
}

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*serverOptions)

// WithAuthenticator overrides the backend used for login.
func WithAuthenticator(auth authapi.Authenticator) ServerOption {
	return func(o *serverOptions) {
		o.auth = auth
	}
}

// WithEnvironment sets the environment label.
func WithEnvironment(env string) ServerOption {
	return func(o *serverOptions) {
		o.environment = env
	}
}

// Server bundles the running test server with the pieces tests inspect.
type Server struct {
	*httptest.Server
	Sessions *session.Manager
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
}

// NewServer constructs an httptest server running the full HTTP stack. The
// default backend is a real authapi.Client pointed at an unreachable address.
func NewServer(t testing.TB, opts ...ServerOption) *Server {
	t.Helper()

	options := serverOptions{environment: "test"}
	for _, opt := range opts {
		opt(&options)
	}
	if options.auth == nil {
		options.auth = authapi.NewClient("http://127.0.0.1:1", &http.Client{Timeout: time.Second})
	}

	sessions, err := session.NewManager(session.Config{
		HashKey:     []byte("12345678901234567890123456789012"),
		BlockKey:    []byte("abcdefghijklmnopqrstuvwxyzABCDEF"),
		IdleTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	library, err := content.Load()
	if err != nil {
		t.Fatalf("content: %v", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.ObserveSessions(sessions.Authenticated)

	srv, err := httpserver.New(httpserver.Config{
		Address:     ":0",
		Environment: options.environment,
		Sessions:    sessions,
		Login:       login.NewController(options.auth, m, nil),
		Content:     library,
		Metrics:     metrics.HandlerFor(reg),
	})
	if err != nil {
		t.Fatalf("httpserver: %v", err)
	}

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return &Server{Server: ts, Sessions: sessions, Metrics: m, Registry: reg}
}

// NewBrowser returns a client with a cookie jar that does not follow redirects.
func NewBrowser(t testing.TB) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
