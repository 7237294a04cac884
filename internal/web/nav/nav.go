package nav

import (
	"net/url"
	"strings"

	"github.com/ydv-ankit/video-summarizer-client/internal/web/session"
)

const (
	Brand        = "QuickVideo"
	BrandLogo    = "/public/static/logo.svg"
	LoginHref    = "/login"
	LogoutAction = "/logout"

	avatarBase = "https://ui-avatars.com/api/?name="
)

// Item represents a top-level navigation link.
type Item struct {
	Path  string
	Label string
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href   string
	Label  string
	Active bool
}

// Identity describes the signed-in user in the account menu.
type Identity struct {
	Email     string
	Label     string
	AvatarURL string
	Initials  string
}

// Menu is everything the navigation bar needs to render.
type Menu struct {
	Brand     string
	BrandLogo string
	Links     []RenderedItem
	// Identity is nil for anonymous visitors.
	Identity     *Identity
	LoginHref    string
	LogoutAction string
}

// Authenticated reports whether the menu renders the account branch.
func (m Menu) Authenticated() bool { return m.Identity != nil }

// Main is the primary navigation definition.
var Main = []Item{
	{Path: "/", Label: "Home"},
	{Path: "/summarize", Label: "Summarize"},
}

// Build derives the navigation bar from the current user and path. It reads
// nothing else, so the same inputs always give the same menu.
func Build(user *session.User, currentPath string) Menu {
	if currentPath == "" {
		currentPath = "/"
	}
	links := make([]RenderedItem, 0, len(Main))
	for _, it := range Main {
		links = append(links, RenderedItem{
			Href:   it.Path,
			Label:  it.Label,
			Active: isActive(it.Path, currentPath),
		})
	}

	menu := Menu{
		Brand:        Brand,
		BrandLogo:    BrandLogo,
		Links:        links,
		LoginHref:    LoginHref,
		LogoutAction: LogoutAction,
	}
	if user != nil {
		menu.Identity = identityFor(user.Email)
	}
	return menu
}

func identityFor(email string) *Identity {
	label, _, _ := strings.Cut(email, "@")
	return &Identity{
		Email:     email,
		Label:     label,
		AvatarURL: avatarBase + url.QueryEscape(label),
		Initials:  initials(email),
	}
}

// initials are the first two characters of the email.
func initials(email string) string {
	r := []rune(email)
	if len(r) > 2 {
		r = r[:2]
	}
	return string(r)
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		return currentPath == "/"
	}
	// match exact or prefix boundary: "/summarize" or "/summarize/..."
	return currentPath == itemPath || strings.HasPrefix(currentPath, itemPath+"/")
}
