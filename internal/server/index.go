package server

import (
	_ "embed"
	"html/template"
	"net/http"
)

//go:embed index.html.tmpl
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

type indexData struct {
	Backend string
	Role    string
}

// handleIndex renders the viewer page shell; the page talks to the API
// from the browser.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := indexTemplate.Execute(w, indexData{
		Backend: s.repo.BackendName(),
		Role:    s.settings.AppRole,
	})
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}
