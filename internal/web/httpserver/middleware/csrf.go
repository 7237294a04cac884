package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

type csrfContextKey string

const (
	csrfTokenContextKey csrfContextKey = "csrf.token"
	csrfFormField                      = "_csrf"
	csrfTokenBytes                     = 32
)

// CSRFConfig controls cookie/header behaviour.
type CSRFConfig struct {
	CookieName string
	CookiePath string
	HeaderName string
	MaxAge     time.Duration
	Secure     bool
	// HashKey signs the token cookie. When empty a random key is used and
	// tokens stop verifying after a restart.
	HashKey []byte
}

type csrfGuard struct {
	cookieName string
	cookiePath string
	headerName string
	maxAge     time.Duration
	secure     bool
	codec      *securecookie.SecureCookie
}

// CSRF attaches double-submit protection. The cookie holds the token signed
// with HashKey, so a cookie planted by another origin does not verify. Unsafe
// methods must echo the raw token in the header or the _csrf form field.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	g := newCSRFGuard(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := g.token(w, r)
			if err != nil {
				http.Error(w, "csrf token error", http.StatusInternalServerError)
				return
			}

			if isUnsafeMethod(r.Method) && !g.verify(r, token) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), csrfTokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newCSRFGuard(cfg CSRFConfig) *csrfGuard {
	g := &csrfGuard{
		cookieName: cfg.CookieName,
		cookiePath: cfg.CookiePath,
		headerName: cfg.HeaderName,
		maxAge:     cfg.MaxAge,
		secure:     cfg.Secure,
	}
	if g.cookieName == "" {
		g.cookieName = "quickvideo_csrf"
	}
	if g.cookiePath == "" {
		g.cookiePath = "/"
	}
	if g.headerName == "" {
		g.headerName = "X-CSRF-Token"
	}
	if g.maxAge == 0 {
		g.maxAge = 24 * time.Hour
	}

	key := cfg.HashKey
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
		if key == nil {
			panic("csrf: unable to generate hash key")
		}
	}
	g.codec = securecookie.New(key, nil)
	g.codec.MaxAge(int(g.maxAge.Seconds()))
	return g
}

// token returns the verified token from the request cookie, or issues a new one.
func (g *csrfGuard) token(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(g.cookieName); err == nil && c.Value != "" {
		var token string
		if err := g.codec.Decode(g.cookieName, c.Value, &token); err == nil && token != "" {
			return token, nil
		}
	}

	raw := securecookie.GenerateRandomKey(csrfTokenBytes)
	if raw == nil {
		return "", errors.New("csrf: unable to generate token")
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	encoded, err := g.codec.Encode(g.cookieName, token)
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    encoded,
		Path:     g.cookiePath,
		HttpOnly: true,
		Secure:   g.secure || r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(g.maxAge.Seconds()),
	})
	return token, nil
}

func (g *csrfGuard) verify(r *http.Request, token string) bool {
	submitted := r.Header.Get(g.headerName)
	if submitted == "" {
		submitted = r.PostFormValue(csrfFormField)
	}
	return submitted != "" && subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) == 1
}

// CSRFTokenFromContext returns the token issued for the current request.
func CSRFTokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(csrfTokenContextKey).(string); ok {
		return token
	}
	return ""
}

func isUnsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}
