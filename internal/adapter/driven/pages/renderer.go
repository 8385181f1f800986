// Package pages implements the PageRenderer port with html/template. Pages
// are rendered against the site metadata and a fixed set of named JSON data
// sources; Markdown pages are converted with goldmark and wrapped by an
// optional layout template.
package pages

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"maps"
	"path"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ericfisherdev/htmlmgr/internal/domain/model"
	"github.com/ericfisherdev/htmlmgr/internal/domain/port/driven"
)

// MarkdownLayout is the template that wraps rendered Markdown pages, if it
// exists in one of the search paths. The page HTML is available as .content.
const MarkdownLayout = "markdown.html"

// templateExts lists the extensions parsed as templates.
var templateExts = map[string]bool{".html": true, ".tmpl": true, ".gohtml": true}

// IsPage reports whether name has an extension the renderer accepts as a page.
func IsPage(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return templateExts[ext] || ext == ".md"
}

// Compile-time interface satisfaction check.
var _ driven.PageRenderer = (*Renderer)(nil)

// Options configures a Renderer. All paths are slash separated and relative
// to the source filesystem.
type Options struct {
	PagesDir    string
	SearchPaths []string
	Site        map[string]string
	DataSources map[string]string // Template data key -> JSON file.

	// MarkdownPolicy filters HTML produced from Markdown. Nil uses
	// DefaultMarkdownPolicy.
	MarkdownPolicy *bluemonday.Policy
}

// Renderer renders pages from a source filesystem.
type Renderer struct {
	src      fs.FS
	opts     Options
	markdown *markdownConverter
}

// NewRenderer creates a Renderer reading from src.
func NewRenderer(src fs.FS, opts Options) *Renderer {
	return &Renderer{
		src:      src,
		opts:     opts,
		markdown: newMarkdownConverter(opts.MarkdownPolicy),
	}
}

// Render parses all templates and data sources, then renders each page.
func (r *Renderer) Render(ctx context.Context, pages []string) ([]model.RenderedPage, error) {
	data, err := r.loadData()
	if err != nil {
		return nil, err
	}

	base, err := r.loadTemplates()
	if err != nil {
		return nil, err
	}

	out := make([]model.RenderedPage, 0, len(pages))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := r.renderPage(base, page, data)
		if err != nil {
			return nil, fmt.Errorf("render page %s: %w", page, err)
		}
		out = append(out, model.RenderedPage{Path: OutputPath(page), Content: content})
	}

	return out, nil
}

// Pages lists the pages below the pages directory, relative to it. A missing
// pages directory yields no pages.
func (r *Renderer) Pages() ([]string, error) {
	var pages []string
	err := fs.WalkDir(r.src, r.opts.PagesDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsPage(p) {
			return nil
		}
		pages = append(pages, strings.TrimPrefix(strings.TrimPrefix(p, r.opts.PagesDir), "/"))
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return pages, nil
}

// OutputPath maps a page path to its output path.
func OutputPath(page string) string {
	return strings.TrimSuffix(page, path.Ext(page)) + ".html"
}

func (r *Renderer) renderPage(base *template.Template, page string, data map[string]any) ([]byte, error) {
	raw, err := fs.ReadFile(r.src, path.Join(r.opts.PagesDir, page))
	if err != nil {
		return nil, err
	}

	tmpl, err := base.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone templates: %w", err)
	}

	var buf bytes.Buffer

	if strings.EqualFold(path.Ext(page), ".md") {
		body, err := r.markdown.Convert(raw)
		if err != nil {
			return nil, err
		}
		if tmpl.Lookup(MarkdownLayout) == nil {
			return []byte(body), nil
		}

		pageData := maps.Clone(data)
		pageData["content"] = body
		pageData["page"] = page
		if err := tmpl.ExecuteTemplate(&buf, MarkdownLayout, pageData); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	name := "pages/" + page
	if _, err := tmpl.New(name).Parse(string(raw)); err != nil {
		return nil, err
	}
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// loadTemplates parses every template below the search paths. Names are
// relative to their search path; the first search path providing a name
// wins. The pages directory is never part of the shared set.
func (r *Renderer) loadTemplates() (*template.Template, error) {
	base := template.New("").Funcs(r.funcMap())

	for _, root := range r.opts.SearchPaths {
		err := fs.WalkDir(r.src, root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p == r.opts.PagesDir {
					return fs.SkipDir
				}
				return nil
			}
			if !templateExts[strings.ToLower(path.Ext(p))] {
				return nil
			}

			name := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
			if base.Lookup(name) != nil {
				return nil
			}

			text, err := fs.ReadFile(r.src, p)
			if err != nil {
				return err
			}
			if _, err := base.New(name).Parse(string(text)); err != nil {
				return fmt.Errorf("parse template %s: %w", p, err)
			}
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return base, nil
}

func (r *Renderer) loadData() (map[string]any, error) {
	site := make(map[string]any, len(r.opts.Site))
	for k, v := range r.opts.Site {
		site[k] = v
	}
	data := map[string]any{"site": site}

	for key, file := range r.opts.DataSources {
		raw, err := fs.ReadFile(r.src, file)
		if err != nil {
			return nil, fmt.Errorf("read data source %s: %w", key, err)
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode data source %s (%s): %w", key, file, err)
		}
		data[key] = v
	}

	return data, nil
}

func (r *Renderer) funcMap() template.FuncMap {
	return template.FuncMap{
		"markdown": func(s string) (template.HTML, error) {
			return r.markdown.Convert([]byte(s))
		},
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
		"default": func(def, v any) any {
			if v == nil || v == "" {
				return def
			}
			return v
		},
	}
}
