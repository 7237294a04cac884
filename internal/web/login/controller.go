// Package login drives the login form: validation, the single backend call
// and populating the session store on success.
package login

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ydv-ankit/video-summarizer-client/internal/web/authapi"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/metrics"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/session"
)

// SuccessRedirect is where the browser goes after a successful login.
const SuccessRedirect = "/"

const msgInProgress = "A login request is already in progress"

// ErrSubmissionInProgress rejects a second submit while one is outstanding
// for the same form.
var ErrSubmissionInProgress = errors.New("login: submission already in progress")

// Result is the outcome of one Submit.
type Result struct {
	// Redirect is set on success.
	Redirect string
	// FieldErrors is set when validation blocked the submission.
	FieldErrors FieldErrors
	// Error is the form-scoped message for remote or in-flight failures.
	Error string
	// Err is the underlying error for logging and status mapping.
	Err error
}

// OK reports whether the login succeeded.
func (r Result) OK() bool { return r.Redirect != "" }

// Controller submits login forms. One Controller serves every browser
// session; the in-flight guard is keyed per form.
type Controller struct {
	auth    authapi.Authenticator
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Option customises a Controller.
type Option func(*Controller)

// WithClock overrides the clock used for latency measurements.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController returns a Controller backed by auth. metrics and logger may be nil.
func NewController(auth authapi.Authenticator, m *metrics.Metrics, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		auth:     auth,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submitting reports whether a submission for key is outstanding.
func (c *Controller) Submitting(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.inflight[key]
	return busy
}

// Submit validates in and, when valid, performs exactly one backend login.
// On success the returned user replaces the contents of store.
func (c *Controller) Submit(ctx context.Context, key string, store *session.Store, in Input) Result {
	if errs := Validate(in); errs != nil {
		c.metrics.RecordLogin(metrics.OutcomeInvalid)
		return Result{FieldErrors: errs}
	}

	if !c.acquire(key) {
		c.metrics.RecordLogin(metrics.OutcomeBusy)
		return Result{Error: msgInProgress, Err: ErrSubmissionInProgress}
	}
	defer c.release(key)

	start := c.now()
	user, err := c.auth.Login(ctx, authapi.Credentials{Email: in.Email, Password: in.Password})
	c.metrics.ObserveLoginCall(c.now().Sub(start))
	if err == nil && user == nil {
		err = errors.New("login: empty response")
	}

	if err != nil {
		var statusErr *authapi.StatusError
		if errors.As(err, &statusErr) {
			c.metrics.RecordLogin(metrics.OutcomeRejected)
			c.logger.Info("login rejected", zap.Int("status", statusErr.Status))
		} else {
			c.metrics.RecordLogin(metrics.OutcomeError)
			c.logger.Warn("login failed", zap.Error(err))
		}
		return Result{Error: authapi.Message(err), Err: err}
	}

	store.SetUser(*user)
	c.metrics.RecordLogin(metrics.OutcomeSuccess)
	return Result{Redirect: SuccessRedirect}
}

func (c *Controller) acquire(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[key]; busy {
		return false
	}
	c.inflight[key] = struct{}{}
	return true
}

func (c *Controller) release(key string) {
	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
}
