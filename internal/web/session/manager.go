package session

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

const (
	defaultCookieName  = "quickvideo_session"
	defaultCookiePath  = "/"
	defaultIdleTimeout = 30 * time.Minute
)

// ErrExpired indicates the referenced session was dropped after idling too long.
var ErrExpired = errors.New("session expired")

// ErrInvalidConfig indicates the manager was initialised with missing or invalid options.
var ErrInvalidConfig = errors.New("session: invalid config")

// Config controls cookie encoding and idle limits for the session manager.
type Config struct {
	CookieName     string
	HashKey        []byte
	BlockKey       []byte
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	IdleTimeout time.Duration
	Now         func() time.Time
	Logger      *zap.Logger
}

// Session is the per-browser record owned by the Manager. Its Store lives
// only in process memory. A session is anonymous and unregistered until a
// login renews it into the registry.
type Session struct {
	id          string
	createdAt   time.Time
	lastActive  time.Time
	store       *Store
	unsubscribe func()
	registered  bool
	stale       bool
	destroyed   bool
}

// ID returns the session identifier carried by the cookie.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the session creation timestamp.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Store returns the authentication store of this session.
func (s *Session) Store() *Store { return s.store }

// Manager keeps sessions in memory and addresses them through a signed cookie
// that carries only the session ID.
type Manager struct {
	cfg    Config
	codec  *securecookie.SecureCookie
	now    func() time.Time
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	authed   map[string]struct{}
}

// NewManager constructs a Manager using the provided configuration.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}

	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = defaultCookiePath
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// The cookie only carries an ID; the codec gives it integrity (and
	// confidentiality when a block key is set).
	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.MaxAge(0)

	return &Manager{
		cfg:      cfg,
		codec:    codec,
		now:      nowFn,
		logger:   logger,
		sessions: make(map[string]*Session),
		authed:   make(map[string]struct{}),
	}, nil
}

// Load returns the registered session referenced by the request cookie and
// marks it active. Without a usable cookie an anonymous session is returned
// that is not kept by the Manager. When the referenced session idled out, the
// anonymous session comes with ErrExpired.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return m.anonymous(false), nil
	}

	var id string
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &id); err != nil || id == "" {
		return m.anonymous(true), nil
	}

	now := m.now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return m.anonymous(true), nil
	}
	if m.idle(sess, now) {
		m.removeLocked(sess)
		return m.anonymous(true), ErrExpired
	}
	// touched under the same lock as the idle check so Sweep cannot drop a
	// session a request is using
	if now.After(sess.lastActive) {
		sess.lastActive = now
	}
	return sess, nil
}

// New registers a pristine session with an empty store.
func (m *Manager) New() *Session {
	now := m.now().UTC()
	sess := &Session{
		id:         uuid.NewString(),
		createdAt:  now,
		lastActive: now,
		store:      NewStore(),
		registered: true,
	}
	sess.unsubscribe = sess.store.Subscribe(func(snap Snapshot) {
		m.observe(sess, snap)
	})

	m.mu.Lock()
	m.sessions[sess.id] = sess
	m.mu.Unlock()
	return sess
}

// Renew moves the user of sess into a newly registered session under a fresh
// ID, forgets sess and issues the new cookie. Logins go through Renew so a
// session ID known before authentication never carries a user.
func (m *Manager) Renew(w http.ResponseWriter, sess *Session) (*Session, error) {
	if sess == nil {
		return nil, errors.New("session: nil session")
	}

	next := m.New()
	if user, ok := sess.store.User(); ok {
		next.store.SetUser(*user)
	}

	m.mu.Lock()
	m.removeLocked(sess)
	m.mu.Unlock()

	if err := m.Save(w, next); err != nil {
		m.mu.Lock()
		m.removeLocked(next)
		m.mu.Unlock()
		return nil, err
	}
	m.logger.Debug("session renewed", zap.String("from", shortID(sess.id)), zap.String("to", shortID(next.id)))
	return next, nil
}

// Save marks a registered session active and (re)issues its cookie.
// Destroyed sessions, and anonymous ones that arrived with an unusable
// cookie, expire the cookie instead. Other anonymous sessions set nothing.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}

	m.mu.Lock()
	registered, destroyed, stale := sess.registered, sess.destroyed, sess.stale
	if now := m.now().UTC(); registered && !destroyed && now.After(sess.lastActive) {
		sess.lastActive = now
	}
	m.mu.Unlock()

	switch {
	case destroyed || (!registered && stale):
		http.SetCookie(w, m.expiredCookie())
		return nil
	case !registered:
		return nil
	}

	encoded, err := m.codec.Encode(m.cfg.CookieName, sess.id)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	// No Expires: the cookie lives as long as the browser session.
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encoded,
		Path:     m.cfg.CookiePath,
		Domain:   m.cfg.CookieDomain,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	})
	return nil
}

// Destroy forgets the session and expires its cookie.
func (m *Manager) Destroy(w http.ResponseWriter, sess *Session) {
	if sess != nil {
		m.mu.Lock()
		m.removeLocked(sess)
		m.mu.Unlock()
	}
	http.SetCookie(w, m.expiredCookie())
}

// Sweep drops sessions idle for longer than the configured timeout and
// returns how many were removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for _, sess := range m.sessions {
		if m.idle(sess, now) {
			m.removeLocked(sess)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Authenticated returns the number of live sessions holding a user.
func (m *Manager) Authenticated() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.authed)
}

func (m *Manager) observe(sess *Session, snap Snapshot) {
	m.mu.Lock()
	if _, live := m.sessions[sess.id]; live {
		if snap.Authenticated() {
			m.authed[sess.id] = struct{}{}
		} else {
			delete(m.authed, sess.id)
		}
	}
	m.mu.Unlock()

	if snap.Authenticated() {
		m.logger.Info("session user set", zap.String("session_id", shortID(sess.id)), zap.String("user_id", snap.User.ID))
		return
	}
	m.logger.Info("session user cleared", zap.String("session_id", shortID(sess.id)))
}

// anonymous returns a session the Manager does not keep. Its store is not
// observed, so a user set on it is neither counted nor audited until Renew.
func (m *Manager) anonymous(stale bool) *Session {
	now := m.now().UTC()
	return &Session{
		id:         uuid.NewString(),
		createdAt:  now,
		lastActive: now,
		store:      NewStore(),
		stale:      stale,
	}
}

func (m *Manager) idle(sess *Session, now time.Time) bool {
	return now.UTC().Sub(sess.lastActive) > m.cfg.IdleTimeout
}

func (m *Manager) removeLocked(sess *Session) {
	sess.destroyed = true
	if !sess.registered {
		return
	}
	delete(m.sessions, sess.id)
	delete(m.authed, sess.id)
	if sess.unsubscribe != nil {
		sess.unsubscribe()
	}
}

func (m *Manager) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     m.cfg.CookiePath,
		Domain:   m.cfg.CookieDomain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
