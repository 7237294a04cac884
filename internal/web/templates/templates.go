// Package templates renders the server-side views as templ components.
package templates

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"github.com/ydv-ankit/video-summarizer-client/internal/web/content"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/login"
	"github.com/ydv-ankit/video-summarizer-client/internal/web/nav"
)

//go:embed html/*.html
var files embed.FS

var shared = []string{"html/layout.html", "html/navbar.html"}

var sets = map[string]*template.Template{
	"login": mustParse("html/login.html"),
	"page":  mustParse("html/page.html"),
	"error": mustParse("html/error.html"),
}

func mustParse(page string) *template.Template {
	patterns := append(append([]string(nil), shared...), page)
	return template.Must(template.New("").ParseFS(files, patterns...))
}

// LayoutData is the chrome shared by every full page.
type LayoutData struct {
	Title       string
	Description string
	Environment string
	CSRFToken   string
	Nav         nav.Menu
	ShowNav     bool
}

// LoginFormData is the state of the login form.
type LoginFormData struct {
	Action      string
	Email       string
	Error       string
	Message     string
	FieldErrors login.FieldErrors
	Submitting  bool
	CSRFToken   string
}

// ErrorData describes a rendered error page.
type ErrorData struct {
	Title   string
	Message string
}

type view struct {
	Layout LayoutData
	Data   any
}

// LoginPage renders the full login screen.
func LoginPage(layout LayoutData, form LoginFormData) templ.Component {
	return execute("login", "layout", view{Layout: layout, Data: form})
}

// LoginForm renders only the form, for htmx swaps.
func LoginForm(form LoginFormData) templ.Component {
	return execute("login", "login_form", form)
}

// ContentPage renders a markdown page inside the layout.
func ContentPage(layout LayoutData, page content.Page) templ.Component {
	return execute("page", "layout", view{Layout: layout, Data: page})
}

// ErrorPage renders an error message inside the layout.
func ErrorPage(layout LayoutData, data ErrorData) templ.Component {
	return execute("error", "layout", view{Layout: layout, Data: data})
}

// Navbar renders the navigation bar on its own.
func Navbar(layout LayoutData) templ.Component {
	return execute("page", "navbar", layout)
}

func execute(set, name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, ok := sets[set]
		if !ok {
			return fmt.Errorf("templates: unknown set %q", set)
		}
		return t.ExecuteTemplate(w, name, data)
	})
}
