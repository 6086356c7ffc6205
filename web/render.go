package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/whisperwall/whisperwall/internal/logutil"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

func render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := templates.ExecuteTemplate(w, name, data)
	if err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Str("view", name).Msg("Unable to render view")
	}
}
