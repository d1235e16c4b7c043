package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/garrettladley/minimon/internal/xerrors"
	"github.com/garrettladley/minimon/internal/xhttp"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))
	loginTemplate = template.Must(template.ParseFS(templateFS, "templates/login.html"))
)

// render executes into a buffer first so a template error still produces a
// clean 500 instead of a half-written page.
func render(w http.ResponseWriter, r *http.Request, status int, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		xerrors.WriteError(r.Context(), w, xerrors.Internal(
			xerrors.WithMessage("failed to render page"),
			xerrors.WithCause(err),
		))
		return
	}
	xhttp.SetHeaderContentTypeTextHTML(w)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
