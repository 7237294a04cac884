// Package content serves the static marketing pages bundled with the binary.
package content

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

//go:embed pages/*.md
var embedded embed.FS

// ErrNotFound is returned for unknown page slugs.
var ErrNotFound = errors.New("content: page not found")

// Page is a rendered markdown page.
type Page struct {
	Slug    string
	Title   string
	Summary string
	Body    template.HTML
}

type frontMatter struct {
	Title   string `yaml:"title"`
	Summary string `yaml:"summary"`
}

// Library holds every page rendered once at startup.
type Library struct {
	pages map[string]Page
}

// Load renders the bundled pages.
func Load() (*Library, error) {
	return LoadFS(embedded, "pages")
}

// LoadFS renders every .md file under dir of fsys.
func LoadFS(fsys fs.FS, dir string) (*Library, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", dir, err)
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	policy := newPagePolicy()

	lib := &Library{pages: make(map[string]Page, len(entries))}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".md" {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("content: read %s: %w", entry.Name(), err)
		}
		slug := strings.TrimSuffix(entry.Name(), ".md")
		page, err := render(md, policy, slug, string(raw))
		if err != nil {
			return nil, err
		}
		lib.pages[slug] = page
	}
	return lib, nil
}

// Get returns the page for slug.
func (l *Library) Get(slug string) (Page, error) {
	if l == nil {
		return Page{}, ErrNotFound
	}
	page, ok := l.pages[slug]
	if !ok {
		return Page{}, ErrNotFound
	}
	return page, nil
}

// Slugs lists the known pages in sorted order.
func (l *Library) Slugs() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l.pages))
	for slug := range l.pages {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

func render(md goldmark.Markdown, policy *bluemonday.Policy, slug, raw string) (Page, error) {
	fmRaw, body := splitFrontMatter(raw)
	var fm frontMatter
	if strings.TrimSpace(fmRaw) != "" {
		if err := yaml.Unmarshal([]byte(fmRaw), &fm); err != nil {
			return Page{}, fmt.Errorf("content: front matter of %s: %w", slug, err)
		}
	}

	var buf bytes.Buffer
	if err := md.Convert([]byte(body), &buf); err != nil {
		return Page{}, fmt.Errorf("content: render %s: %w", slug, err)
	}

	title := strings.TrimSpace(fm.Title)
	if title == "" {
		title = prettifySlug(slug)
	}
	return Page{
		Slug:    slug,
		Title:   title,
		Summary: strings.TrimSpace(fm.Summary),
		// sanitized by policy
		Body: template.HTML(policy.SanitizeBytes(buf.Bytes())),
	}, nil
}

func newPagePolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").OnElements("p", "span", "div")
	policy.RequireNoFollowOnLinks(false)
	return policy
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

func prettifySlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
