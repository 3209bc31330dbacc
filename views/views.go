package views

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/surveyforge/surveyforge/log"
)

//go:embed templates/*.html
var files embed.FS

var pages = template.Must(template.ParseFS(files, "templates/*.html"))

// Render executes the named page template. Once the body has started
// streaming a failure can only be logged, not surfaced.
func Render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := pages.ExecuteTemplate(w, name, data)
	if err != nil {
		log.Errorf("views.render."+name+": %s", err)
	}
}
