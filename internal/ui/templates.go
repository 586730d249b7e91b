package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	slogctx "github.com/veqryn/slog-context"
)

//go:embed templates/*.html
var templateFS embed.FS

type templates struct {
	holdings *template.Template
	errPage  *template.Template
}

func parseTemplates() (*templates, error) {
	funcs := template.FuncMap{
		"balance": formatBalance,
	}

	parse := func(page string) (*template.Template, error) {
		t, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", page, err)
		}

		return t, nil
	}

	holdings, err := parse("holdings.html")
	if err != nil {
		return nil, err
	}

	errPage, err := parse("error.html")
	if err != nil {
		return nil, err
	}

	return &templates{
		holdings: holdings,
		errPage:  errPage,
	}, nil
}

type errorPage struct {
	Message       string
	LoginRedirect string
}

func (t *templates) render(w http.ResponseWriter, r *http.Request, status int, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		slogctx.Error(r.Context(), "Failed to render page", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (t *templates) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	t.render(w, r, status, t.errPage, errorPage{Message: msg})
}
