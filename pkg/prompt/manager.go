// Package prompt handles loading and rendering of prompt templates.
package prompt

import (
	"bytes"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"kahaanigo/pkg/model"
)

// Manager loads .tmpl files from a directory tree and renders them by
// their slash-separated relative path (e.g. "research/dark.tmpl").
type Manager struct {
	root *template.Template
	dir  string
}

// NewManager creates a new prompt manager loading templates from the specified directory.
func NewManager(dir string) (*Manager, error) {
	m := &Manager{
		dir: dir,
	}
	m.root = template.New("root").Funcs(template.FuncMap{
		"poiNames": poiNamesFunc,
		"pick":     pickFunc,
	})

	if err := m.loadTemplates(dir); err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	return m, nil
}

func (m *Manager) loadTemplates(dir string) error {
	return filepath.Walk(dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || !strings.HasSuffix(path, ".tmpl") {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		name := filepath.ToSlash(rel)
		if _, err = m.root.New(name).Parse(string(content)); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		return nil
	})
}

// Render executes the named template with the provided data.
func (m *Manager) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.root.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Has reports whether the named template is loaded.
func (m *Manager) Has(name string) bool {
	return m.root.Lookup(name) != nil
}

// poiNamesFunc joins POI names into a comma-separated string.
func poiNamesFunc(pois []model.PointOfInterest) string {
	names := make([]string, 0, len(pois))
	for _, p := range pois {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

// pickFunc selects one random option from a list separated by "|||".
// Usage: {{pick "Option A|||Option B|||Option C"}}
// Re-rolls on each template render.
func pickFunc(options string) string {
	parts := strings.Split(options, "|||")
	if len(parts) == 0 {
		return ""
	}
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts[rand.Intn(len(parts))]
}
