package httpserver

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"github.com/ydv-ankit/video-summarizer-client/internal/web/authapi"
	custommw "github.com/ydv-ankit/video-summarizer-client/internal/web/httpserver/middleware"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/httpserver/ui"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/login"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/requestctx"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/session"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/templates"
)

const (
	loginPath        = "/login"
	logoutRedirect   = "/login?status=logged_out"
	msgLoggedOut     = "You have been logged out."
	msgBadForm       = "The form could not be submitted. Please try again."
	msgNoSession     = "Your session could not be started. Please reload the page."
	loginPageTitle   = "Login"
	loginPageSummary = "Login to continue to QuickVideo."
)

type authHandlers struct {
	controller *login.Controller
	sessions   custommw.SessionStore
}

func newAuthHandlers(controller *login.Controller, sessions custommw.SessionStore) *authHandlers {
	if controller == nil {
		panic("auth: login controller is required")
	}
	if sessions == nil {
		panic("auth: session store is required")
	}
	return &authHandlers{controller: controller, sessions: sessions}
}

func (h *authHandlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := custommw.CurrentUser(r.Context()); ok {
		http.Redirect(w, r, login.SuccessRedirect, http.StatusFound)
		return
	}

	state := h.formState(r)
	if r.URL.Query().Get("status") == "logged_out" {
		state.Message = msgLoggedOut
	}
	h.render(w, r, state, http.StatusOK)
}

func (h *authHandlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	logger := requestctx.Logger(r.Context())

	if err := r.ParseForm(); err != nil {
		state := h.formState(r)
		state.Error = msgBadForm
		h.render(w, r, state, http.StatusBadRequest)
		return
	}

	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok {
		logger.Error("login submitted without a session")
		state := h.formState(r)
		state.Error = msgNoSession
		h.render(w, r, state, http.StatusInternalServerError)
		return
	}

	input := login.Input{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	result := h.controller.Submit(r.Context(), formKey(r, sess), sess.Store(), input)
	if result.OK() {
		renewed, err := h.sessions.Renew(w, sess)
		if err != nil {
			logger.Error("session renew failed", zap.Error(err))
			state := h.formState(r)
			state.Email = input.Email
			state.Error = msgNoSession
			h.render(w, r, state, http.StatusInternalServerError)
			return
		}
		notes := requestctx.AnnotationsFrom(r.Context())
		notes.SetSession(shortID(renewed.ID()))
		if user, ok := renewed.Store().User(); ok {
			notes.SetUser(user.ID)
			logger.Info("login succeeded", zap.String("user_id", user.ID))
		}
		custommw.Redirect(w, r, result.Redirect)
		return
	}

	state := h.formState(r)
	state.Email = input.Email
	state.Error = result.Error
	state.FieldErrors = result.FieldErrors
	h.render(w, r, state, statusFor(result))
}

func (h *authHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		sess.Store().ClearUser()
		h.sessions.Destroy(w, sess)
	}
	custommw.Redirect(w, r, logoutRedirect)
}

func (h *authHandlers) formState(r *http.Request) templates.LoginFormData {
	state := templates.LoginFormData{
		Action:    loginPath,
		CSRFToken: custommw.CSRFTokenFromContext(r.Context()),
	}
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		state.Submitting = h.controller.Submitting(formKey(r, sess))
	}
	return state
}

// formKey identifies the browser's login form for the in-flight guard. The
// CSRF token is stable per browser, unlike the ID of an anonymous session.
func formKey(r *http.Request, sess *session.Session) string {
	if token := custommw.CSRFTokenFromContext(r.Context()); token != "" {
		return "csrf:" + token
	}
	return "session:" + sess.ID()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// render answers htmx with the swapped form fragment, which htmx only swaps
// on 2xx, and everyone else with the full page and status.
func (h *authHandlers) render(w http.ResponseWriter, r *http.Request, state templates.LoginFormData, status int) {
	if custommw.IsHTMXRequest(r.Context()) {
		templ.Handler(templates.LoginForm(state)).ServeHTTP(w, r)
		return
	}
	layout := ui.Layout(r, loginPageTitle, loginPageSummary, false)
	templ.Handler(templates.LoginPage(layout, state), templ.WithStatus(status)).ServeHTTP(w, r)
}

func statusFor(result login.Result) int {
	switch {
	case result.FieldErrors != nil:
		return http.StatusBadRequest
	case errors.Is(result.Err, login.ErrSubmissionInProgress):
		return http.StatusConflict
	}
	var statusErr *authapi.StatusError
	if errors.As(result.Err, &statusErr) {
		return http.StatusUnauthorized
	}
	return http.StatusBadGateway
}
