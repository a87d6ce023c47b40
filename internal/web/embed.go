package web

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

//go:embed assets/templates/*.html assets/static
var assetsFS embed.FS

// Page names.
const (
	pageIndex   = "index"
	pageError   = "error"
	pagePrivacy = "privacy"
)

// StaticFS returns the embedded static files rooted at assets/static.
func StaticFS() fs.FS {
	sub, err := fs.Sub(assetsFS, "assets/static")
	if err != nil {
		panic(err)
	}
	return sub
}

// StaticHandler serves the embedded stylesheet and other static files.
func StaticHandler() http.Handler {
	return http.FileServer(http.FS(StaticFS()))
}

// mustParsePages parses each page together with the shared layout.
func mustParsePages() map[string]*template.Template {
	pages := make(map[string]*template.Template)
	for _, name := range []string{pageIndex, pageError, pagePrivacy} {
		pages[name] = template.Must(template.ParseFS(assetsFS,
			"assets/templates/layout.html",
			"assets/templates/"+name+".html",
		))
	}
	return pages
}

// render executes a page into a buffer first so a template failure still
// produces a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := s.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.WithRequest(middleware.GetReqID(r.Context())).Error("render failed",
			slog.String("page", page),
			slog.Any("error", err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
