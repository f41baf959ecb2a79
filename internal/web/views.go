// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/civicguard/internal/logging"
	"github.com/tomtom215/civicguard/internal/mapview"
	"github.com/tomtom215/civicguard/internal/models"
)

// pageNames are the templates rendered inside layout.html.
var pageNames = []string{"home", "intake", "track", "complaints", "map"}

type views struct {
	pages map[string]*template.Template
}

func parseViews(fsys fs.FS) (*views, error) {
	v := &views{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(funcMap()).ParseFS(fsys,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"statusColor": mapview.StatusColor,
		"pillClass": func(status string) string {
			if status == models.StatusFiled {
				return "pill pill-green"
			}
			return "pill pill-red"
		},
		"orDash": func(s string) string {
			if s == "" {
				return "-"
			}
			return s
		},
		"created": func(t models.Ticket) string {
			ts, ok := t.Created()
			if !ok {
				return ""
			}
			return ts.Local().Format("2 Jan 2006 15:04")
		},
		"prettyJSON": func(v interface{}) string {
			data, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return ""
			}
			return string(data)
		},
		// mapJSON serializes a map description for map.js. html/template
		// escapes it for the attribute context.
		"mapJSON": func(v interface{}) string {
			data, err := json.Marshal(v)
			if err != nil {
				return "{}"
			}
			return string(data)
		},
	}
}

// Layout is the data every page shares.
type Layout struct {
	Title  string
	Active string
}

// render executes a page into a buffer so a template error never leaves
// a half-written response.
func (p *Pages) render(w http.ResponseWriter, r *http.Request, name string, status int, data interface{}) {
	t, ok := p.views.pages[name]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("page", name).Msg("Failed to execute page template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
