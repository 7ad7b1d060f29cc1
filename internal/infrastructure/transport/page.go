package transport

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"architect/internal/domain/entity"
)

//go:embed templates/*.html
var templateFS embed.FS

type pageData struct {
	Form        entity.DesignRequest
	ConfigError string
	Error       string
	FieldErrors []entity.FieldError
	Result      *entity.DesignResult

	Styles    []entity.Style
	Materials []entity.Material
	MinFloors int
	MaxFloors int
	Assets    entity.Assets
}

func (d *pageData) fill(assets entity.Assets) {
	d.Styles = entity.Styles
	d.Materials = entity.Materials
	d.MinFloors = entity.MinFloors
	d.MaxFloors = entity.MaxFloors
	d.Assets = assets
}

type pageRenderer struct {
	tmpl *template.Template
}

func newPageRenderer() *pageRenderer {
	funcs := template.FuncMap{
		"feet":      entity.FormatFeet,
		"materials": entity.FormatMaterials,
	}
	return &pageRenderer{
		tmpl: template.Must(template.New("page.html").Funcs(funcs).ParseFS(templateFS, "templates/*.html")),
	}
}

// render executes into a buffer first so a template failure never leaves a
// half-written page behind.
func (p *pageRenderer) render(w http.ResponseWriter, code int, data pageData) error {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "page.html", data); err != nil {
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, err := buf.WriteTo(w)
	return err
}
