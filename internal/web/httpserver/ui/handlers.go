package ui

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	custommw "github.com/ydv-ankit/video-summarizer-client/internal/web/httpserver/middleware"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/content"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/nav"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/requestctx"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/templates"
)

const titleSuffix = " | QuickVideo"

// Dependencies collects what the page handlers need.
type Dependencies struct {
	Content *content.Library
}

// Handlers exposes HTTP handlers for the content pages.
type Handlers struct {
	content *content.Library
}

// NewHandlers wires the UI handler set.
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{content: deps.Content}
}

// Layout builds the page chrome for r: navigation from the session user,
// the CSRF token and the environment label.
func Layout(r *http.Request, title, description string, showNav bool) templates.LayoutData {
	ctx := r.Context()
	user, _ := custommw.CurrentUser(ctx)
	if title != "QuickVideo" {
		title += titleSuffix
	}
	return templates.LayoutData{
		Title:       title,
		Description: description,
		Environment: custommw.EnvironmentFromContext(ctx),
		CSRFToken:   custommw.CSRFTokenFromContext(ctx),
		Nav:         nav.Build(user, custommw.RequestPathFromContext(ctx)),
		ShowNav:     showNav,
	}
}

// Page returns a handler rendering the content page slug.
func (h *Handlers) Page(slug string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := h.content.Get(slug)
		if errors.Is(err, content.ErrNotFound) {
			h.NotFound(w, r)
			return
		}
		if err != nil {
			requestctx.Logger(r.Context()).Error("content lookup failed", zap.String("slug", slug), zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		templ.Handler(templates.ContentPage(Layout(r, page.Title, page.Summary, true), page)).ServeHTTP(w, r)
	}
}

// NotFound renders the 404 page.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	component := templates.ErrorPage(Layout(r, "Page not found", "", true), templates.ErrorData{
		Title:   "Page not found",
		Message: "The page you are looking for does not exist.",
	})
	templ.Handler(component, templ.WithStatus(http.StatusNotFound)).ServeHTTP(w, r)
}
