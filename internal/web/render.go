package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/urbandrive/web-go/internal/rental"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page holds what the layout needs on every screen.
type Page struct {
	Title   string
	User    *rental.User
	Error   string
	Message string
}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"day": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
	"percent": func(d decimal.Decimal) string { return d.Shift(2).StringFixed(0) },
}

type renderer struct {
	pages map[string]*template.Template
	log   logrus.FieldLogger
}

func newRenderer(logger logrus.FieldLogger) (*renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	rd := &renderer{pages: make(map[string]*template.Template), log: logger}
	for _, f := range files {
		name := path.Base(f)
		if name == "layout.html" {
			continue
		}
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", f)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		rd.pages[name] = t
	}
	return rd, nil
}

func (rd *renderer) render(w http.ResponseWriter, status int, page string, data any) {
	t, ok := rd.pages[page]
	if !ok {
		rd.log.WithField("page", page).Error("unknown template")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		rd.log.WithField("page", page).WithError(err).Error("render template")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
