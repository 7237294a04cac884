package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

func newTestManager(t *testing.T) (*Manager, *fixedClock) {
	t.Helper()

	clock := &fixedClock{current: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	mgr, err := NewManager(Config{
		CookieName:  "test_session",
		HashKey:     []byte("12345678901234567890123456789012"),
		BlockKey:    []byte("abcdefghijklmnopqrstuv0123456789"),
		IdleTimeout: 10 * time.Minute,
		Now:         clock.Now,
	})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	return mgr, clock
}

func TestNewManagerRequiresHashKey(t *testing.T) {
	if _, err := NewManager(Config{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := NewManager(Config{HashKey: []byte("k"), BlockKey: []byte("short")}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for bad block key, got %v", err)
	}
}

// login saves the renewed session for an anonymous one holding user and
// returns the new session with its cookie.
func login(t *testing.T, mgr *Manager, user User) (*Session, *http.Cookie) {
	t.Helper()

	anon, err := mgr.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	anon.Store().SetUser(user)
	rec := httptest.NewRecorder()
	sess, err := mgr.Renew(rec, anon)
	if err != nil {
		t.Fatalf("Renew error: %v", err)
	}
	cookie := findCookie(rec.Result().Cookies(), "test_session")
	if cookie == nil {
		t.Fatalf("expected session cookie to be set")
	}
	return sess, cookie
}

func TestManager_AnonymousSessionsAreNotKept(t *testing.T) {
	mgr, _ := newTestManager(t)

	for i := 0; i < 20; i++ {
		sess, err := mgr.Load(httptest.NewRequest(http.MethodGet, "/", nil))
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		rec := httptest.NewRecorder()
		if err := mgr.Save(rec, sess); err != nil {
			t.Fatalf("Save error: %v", err)
		}
		if c := findCookie(rec.Result().Cookies(), "test_session"); c != nil {
			t.Fatalf("anonymous session must not set a cookie, got %+v", c)
		}
	}
	if mgr.Len() != 0 {
		t.Fatalf("expected no live sessions, got %d", mgr.Len())
	}
}

func TestManager_SessionLifecycle(t *testing.T) {
	mgr, clock := newTestManager(t)

	sess, cookie := login(t, mgr, User{ID: "1", Email: "a@b.com", Tokens: 5, Auth: "x"})
	if sess.ID() == "" {
		t.Fatalf("expected session ID")
	}
	if !sess.CreatedAt().Equal(clock.current) {
		t.Fatalf("unexpected CreatedAt: %v", sess.CreatedAt())
	}
	if !cookie.Expires.IsZero() || cookie.MaxAge != 0 {
		t.Fatalf("expected a browser-session cookie, got expires=%v maxAge=%d", cookie.Expires, cookie.MaxAge)
	}
	if !cookie.HttpOnly {
		t.Fatalf("expected HttpOnly cookie")
	}
	if mgr.Len() != 1 || mgr.Authenticated() != 1 {
		t.Fatalf("expected one authenticated session, got len=%d authed=%d", mgr.Len(), mgr.Authenticated())
	}

	clock.current = clock.current.Add(5 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	again, err := mgr.Load(req)
	if err != nil {
		t.Fatalf("Load existing error: %v", err)
	}
	if again.ID() != sess.ID() {
		t.Fatalf("expected same session, got %s and %s", sess.ID(), again.ID())
	}
	user, ok := again.Store().User()
	if !ok || user.Email != "a@b.com" {
		t.Fatalf("expected user to persist in memory, got %+v", user)
	}
}

func TestManager_RenewIssuesFreshID(t *testing.T) {
	mgr, _ := newTestManager(t)

	planted, plantedCookie := login(t, mgr, User{ID: "attacker"})
	planted.Store().ClearUser()

	// a victim logs in on the planted session
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(plantedCookie)
	sess, err := mgr.Load(req)
	if err != nil || sess.ID() != planted.ID() {
		t.Fatalf("expected planted session, got %v %v", sess, err)
	}
	sess.Store().SetUser(User{ID: "victim", Email: "v@b.com"})

	rec := httptest.NewRecorder()
	renewed, err := mgr.Renew(rec, sess)
	if err != nil {
		t.Fatalf("Renew error: %v", err)
	}
	if renewed.ID() == planted.ID() {
		t.Fatalf("expected a new session id")
	}
	if user, ok := renewed.Store().User(); !ok || user.ID != "victim" {
		t.Fatalf("expected user moved to the new session, got %+v", user)
	}
	if mgr.Len() != 1 || mgr.Authenticated() != 1 {
		t.Fatalf("expected only the renewed session, got len=%d authed=%d", mgr.Len(), mgr.Authenticated())
	}

	again := httptest.NewRequest(http.MethodGet, "/", nil)
	again.AddCookie(plantedCookie)
	old, err := mgr.Load(again)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if _, ok := old.Store().User(); ok || old.ID() == planted.ID() {
		t.Fatalf("planted cookie must not reach the renewed user")
	}
	oldRec := httptest.NewRecorder()
	if err := mgr.Save(oldRec, old); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if c := findCookie(oldRec.Result().Cookies(), "test_session"); c == nil || c.MaxAge != -1 {
		t.Fatalf("expected the unknown cookie to be expired")
	}
}

func TestManager_TamperedCookieStartsFresh(t *testing.T) {
	mgr, _ := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "forged"})
	sess, err := mgr.Load(req)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if _, ok := sess.Store().User(); ok {
		t.Fatalf("expected anonymous session for tampered cookie")
	}
	if mgr.Len() != 0 {
		t.Fatalf("tampered cookie must not register a session")
	}
}

func TestManager_IdleTimeout(t *testing.T) {
	mgr, clock := newTestManager(t)
	sess, cookie := login(t, mgr, User{ID: "1", Email: "a@b.com"})

	clock.current = clock.current.Add(20 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	fresh, err := mgr.Load(req)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if fresh == nil || fresh.ID() == sess.ID() {
		t.Fatalf("expected a fresh session after idle timeout")
	}
	if mgr.Authenticated() != 0 || mgr.Len() != 0 {
		t.Fatalf("expired session must be forgotten")
	}
}

func TestManager_LoadKeepsSessionFromSweep(t *testing.T) {
	mgr, clock := newTestManager(t)
	sess, cookie := login(t, mgr, User{ID: "1"})

	clock.current = clock.current.Add(8 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := mgr.Load(req)
	if err != nil || loaded.ID() != sess.ID() {
		t.Fatalf("expected live session, got %v", err)
	}

	// 13 minutes after login but 5 after the last request
	if removed := mgr.Sweep(clock.current.Add(5 * time.Minute)); removed != 0 {
		t.Fatalf("sweep removed a session in use: %d", removed)
	}
	if mgr.Authenticated() != 1 {
		t.Fatalf("expected the session to stay authenticated")
	}
}

func TestManager_SweepRemovesIdleSessions(t *testing.T) {
	mgr, clock := newTestManager(t)
	idle := mgr.New()
	idle.Store().SetUser(User{ID: "1"})

	clock.current = clock.current.Add(8 * time.Minute)
	active := mgr.New()

	if removed := mgr.Sweep(clock.current.Add(5 * time.Minute)); removed != 1 {
		t.Fatalf("expected one idle session removed, got %d", removed)
	}
	if mgr.Len() != 1 {
		t.Fatalf("expected one live session, got %d", mgr.Len())
	}
	if mgr.Authenticated() != 0 {
		t.Fatalf("expected no authenticated sessions, got %d", mgr.Authenticated())
	}

	// the swept store is detached from the manager
	idle.Store().SetUser(User{ID: "2"})
	if mgr.Authenticated() != 0 {
		t.Fatalf("detached store must not affect the authenticated count")
	}
	_ = active
}

func TestManager_AuthenticatedTracksStoreChanges(t *testing.T) {
	mgr, _ := newTestManager(t)
	first := mgr.New()
	second := mgr.New()

	first.Store().SetUser(User{ID: "1"})
	second.Store().SetUser(User{ID: "2"})
	if got := mgr.Authenticated(); got != 2 {
		t.Fatalf("expected 2 authenticated sessions, got %d", got)
	}
	first.Store().ClearUser()
	if got := mgr.Authenticated(); got != 1 {
		t.Fatalf("expected 1 authenticated session, got %d", got)
	}
}

func TestManager_Destroy(t *testing.T) {
	mgr, _ := newTestManager(t)
	sess := mgr.New()
	rec := httptest.NewRecorder()
	mgr.Destroy(rec, sess)

	cookie := findCookie(rec.Result().Cookies(), "test_session")
	if cookie == nil || cookie.MaxAge != -1 {
		t.Fatalf("expected session cookie cleared")
	}
	if mgr.Len() != 0 {
		t.Fatalf("expected destroyed session to be forgotten")
	}

	rec2 := httptest.NewRecorder()
	if err := mgr.Save(rec2, sess); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if c := findCookie(rec2.Result().Cookies(), "test_session"); c == nil || c.MaxAge != -1 {
		t.Fatalf("saving a destroyed session must keep the cookie cleared")
	}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
