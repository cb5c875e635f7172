// Package view paints calendar view models as HTML.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"evcal/src-server/calendar"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

var funcs = template.FuncMap{
	"blanks": func(n int) []struct{} { return make([]struct{}, n) },
}

type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	templates, err := template.New("").Funcs(funcs).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("NewRenderer: %w", err)
	}
	return &Renderer{templates: templates}, nil
}

// PageData is the page shell plus its first render.
type PageData struct {
	View     calendar.View
	TimeZone string
	LiveURL  string
}

func (r *Renderer) Page(w io.Writer, data PageData) error {
	if err := r.templates.ExecuteTemplate(w, "page", data); err != nil {
		return fmt.Errorf("(*Renderer).Page: %w", err)
	}
	return nil
}

func (r *Renderer) Status(view calendar.View) (template.HTML, error) {
	return r.section("status", view)
}

func (r *Renderer) Legend(legend *calendar.Legend) (template.HTML, error) {
	if legend == nil {
		return "", nil
	}
	return r.section("legend", legend)
}

func (r *Renderer) Grid(grid *calendar.Grid) (template.HTML, error) {
	if grid == nil {
		return "", nil
	}
	return r.section("grid", grid)
}

func (r *Renderer) Tooltip(content *calendar.TooltipContent) (template.HTML, error) {
	if content == nil {
		return "", nil
	}
	return r.section("tooltip", content)
}

// section renders one named fragment to a string.
func (r *Renderer) section(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render section %q: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

// Static serves the embedded stylesheet and script.
func Static() http.Handler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
