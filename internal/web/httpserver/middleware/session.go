package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ydv-ankit/video-summarizer-client/internal/web/requestctx"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/session"
)

type sessionContextKey string

const requestSessionKey sessionContextKey = "quickvideo.session"

// SessionStore abstracts the session manager for middleware and handlers.
type SessionStore interface {
	Load(*http.Request) (*session.Session, error)
	Save(http.ResponseWriter, *session.Session) error
	Renew(http.ResponseWriter, *session.Session) (*session.Session, error)
	Destroy(http.ResponseWriter, *session.Session)
}

// Session attaches the browser session to the request context and refreshes
// its cookie before the handler runs. Anonymous sessions get no cookie; a
// handler that authenticates the browser must Renew the session itself.
func Session(store SessionStore) func(http.Handler) http.Handler {
	if store == nil {
		panic("session store is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := requestctx.Logger(r.Context())

			sess, err := store.Load(r)
			if errors.Is(err, session.ErrExpired) {
				logger.Info("session expired: starting a new one")
			} else if err != nil {
				logger.Warn("session load failed", zap.Error(err))
			}

			if err := store.Save(w, sess); err != nil {
				logger.Error("session save failed", zap.Error(err))
			}

			notes := requestctx.AnnotationsFrom(r.Context())
			notes.SetSession(shortID(sess.ID()))
			if user, ok := sess.Store().User(); ok {
				notes.SetUser(user.ID)
			}

			ctx := context.WithValue(r.Context(), requestSessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext retrieves the session attached to this request.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	if ctx == nil {
		return nil, false
	}
	sess, ok := ctx.Value(requestSessionKey).(*session.Session)
	return sess, ok && sess != nil
}

// CurrentUser returns the user of the request's session, if any.
func CurrentUser(ctx context.Context) (*session.User, bool) {
	sess, ok := SessionFromContext(ctx)
	if !ok {
		return nil, false
	}
	return sess.Store().User()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
