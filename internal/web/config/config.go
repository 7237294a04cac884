package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	defaultEnvFile        = ".env"
	defaultAddr           = ":8080"
	defaultEnvironment    = "local"
	defaultLogLevel       = "info"
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultIdleTimeout    = 120 * time.Second
	defaultRequestTimeout = 60 * time.Second
	defaultAuthTimeout    = 10 * time.Second
	defaultSessionIdle    = 30 * time.Minute
	defaultSweepInterval  = 5 * time.Minute
	ephemeralHashKeySize  = 32
)

// Config captures the runtime configuration of the web front end.
type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Backend     BackendConfig
	Session     SessionConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// BackendConfig points at the authentication backend.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig controls the in-memory session registry and its cookie.
type SessionConfig struct {
	HashKey       []byte
	BlockKey      []byte
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	CookieSecure  bool
	// Ephemeral is set when no hash key was configured and a random one was
	// generated. Sessions then do not survive a restart, which is harmless
	// because session contents never do.
	Ephemeral bool
}

// IsProduction reports whether the environment name denotes production.
func (c Config) IsProduction() bool {
	switch c.Environment {
	case "prod", "production":
		return true
	}
	return false
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration from defaults, the .env file, the process
// environment and an optional explicit map, in increasing precedence.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	if err := ctx.Err(); err != nil {
		return Config{}, err
	}

	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	env := strings.ToLower(stringWithDefault(lookup, "QUICKVIDEO_ENV", defaultEnvironment))
	cfg := Config{
		Environment: env,
		LogLevel:    strings.ToLower(stringWithDefault(lookup, "LOG_LEVEL", defaultLogLevel)),
		Server: ServerConfig{
			Addr:           listenAddr(lookup),
			ReadTimeout:    durationWithDefault(lookup, "QUICKVIDEO_HTTP_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "QUICKVIDEO_HTTP_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "QUICKVIDEO_HTTP_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout: durationWithDefault(lookup, "QUICKVIDEO_HTTP_REQUEST_TIMEOUT", defaultRequestTimeout),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(strings.TrimSpace(stringWithDefault(lookup, "SERVER_URL", "")), "/"),
			Timeout: durationWithDefault(lookup, "QUICKVIDEO_AUTH_TIMEOUT", defaultAuthTimeout),
		},
		Session: SessionConfig{
			HashKey:       []byte(stringWithDefault(lookup, "QUICKVIDEO_SESSION_HASH_KEY", "")),
			BlockKey:      []byte(stringWithDefault(lookup, "QUICKVIDEO_SESSION_BLOCK_KEY", "")),
			IdleTimeout:   durationWithDefault(lookup, "QUICKVIDEO_SESSION_IDLE_TIMEOUT", defaultSessionIdle),
			SweepInterval: durationWithDefault(lookup, "QUICKVIDEO_SESSION_SWEEP_INTERVAL", defaultSweepInterval),
		},
	}
	cfg.Session.CookieSecure = boolWithDefault(lookup, "QUICKVIDEO_COOKIE_SECURE", cfg.IsProduction())

	if len(cfg.Session.HashKey) == 0 {
		cfg.Session.HashKey = securecookie.GenerateRandomKey(ephemeralHashKeySize)
		if cfg.Session.HashKey == nil {
			return Config{}, errors.New("config: unable to generate session hash key")
		}
		cfg.Session.Ephemeral = true
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func listenAddr(lookup func(string) (string, bool)) string {
	if addr := stringWithDefault(lookup, "QUICKVIDEO_HTTP_ADDR", ""); addr != "" {
		return addr
	}
	if port := strings.TrimSpace(stringWithDefault(lookup, "PORT", "")); port != "" {
		return ":" + port
	}
	return defaultAddr
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Backend.BaseURL == "" {
		missing = append(missing, "Backend.BaseURL")
	} else if u, err := url.Parse(cfg.Backend.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		missing = append(missing, "Backend.BaseURL")
	}
	if cfg.Backend.Timeout <= 0 {
		missing = append(missing, "Backend.Timeout")
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		missing = append(missing, "Server.Addr")
	}
	switch len(cfg.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		missing = append(missing, "Session.BlockKey")
	}
	if cfg.Session.IdleTimeout <= 0 {
		missing = append(missing, "Session.IdleTimeout")
	}
	if cfg.Session.SweepInterval <= 0 {
		missing = append(missing, "Session.SweepInterval")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// bare integers are read as seconds
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
