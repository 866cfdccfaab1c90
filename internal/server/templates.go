package server

import (
	"fmt"
	"html/template"
	"io/fs"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// LoadTemplates parses every page template in templatesFS.
func LoadTemplates(templatesFS fs.FS) (*template.Template, error) {
	tmpl := template.New("").Funcs(templateFuncs())

	matches, err := fs.Glob(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	for _, match := range matches {
		content, err := fs.ReadFile(templatesFS, match)
		if err != nil {
			return nil, err
		}
		if _, err := tmpl.Parse(string(content)); err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", match, err)
		}
	}

	return tmpl, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"percent": func(rate float64) string {
			return fmt.Sprintf("%.0f%%", rate*100)
		},
		"signed": func(n int) string {
			if n > 0 {
				return fmt.Sprintf("+%d", n)
			}
			return fmt.Sprintf("%d", n)
		},
		"until": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return ""
			}
			return humanize.Time(*t)
		},
		"sortArrow": func(active, key, dir string) string {
			if active != key {
				return ""
			}
			if dir == "asc" {
				return "▲"
			}
			return "▼"
		},
		"sortKeys": func() []string {
			return []string{"elo", "matches_played", "wins", "losses"}
		},
		"sentence": sentence,
		"title":    func(s string) string { return strings.ReplaceAll(sentence(s), "_", " ") },
	}
}

// sentence upper-cases the first rune for banner display.
func sentence(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
