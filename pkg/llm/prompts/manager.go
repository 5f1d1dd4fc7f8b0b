// Package prompts loads and renders the text/template prompt files.
package prompts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"text/template"
)

// Manager renders the prompt templates of one directory tree. Templates
// under common/ are shared definitions; every other .tmpl file is addressed
// by its slash-separated path relative to the root, e.g. "style/best.tmpl".
type Manager struct {
	root *template.Template
}

// NewManager loads the templates under dir.
func NewManager(dir string) (*Manager, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("prompts dir: %w", err)
	}
	return NewManagerFS(os.DirFS(dir))
}

// NewManagerFS loads the templates of fsys.
func NewManagerFS(fsys fs.FS) (*Manager, error) {
	m := &Manager{}
	m.root = template.New("root").Funcs(template.FuncMap{
		"style":   m.styleFunc,
		"json":    toJSONFunc,
		"bullets": bulletsFunc,
		"join":    strings.Join,
	})

	var common, named []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".tmpl") {
			return nil
		}
		if strings.HasPrefix(path, "common/") {
			common = append(common, path)
		} else {
			named = append(named, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking templates: %w", err)
	}

	// Shared definitions first so named templates can call them.
	for _, path := range common {
		if err := m.parse(fsys, path, m.root); err != nil {
			return nil, err
		}
	}
	for _, path := range named {
		if err := m.parse(fsys, path, m.root.New(path)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) parse(fsys fs.FS, path string, t *template.Template) error {
	content, err := fs.ReadFile(fsys, path)
	if err != nil {
		return err
	}
	if _, err := t.Parse(string(content)); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// Render executes the named template with the provided data.
func (m *Manager) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.root.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Has reports whether a template with the given name was loaded.
func (m *Manager) Has(name string) bool {
	return m.root.Lookup(name) != nil
}

// Styles lists the names that have a style/<name>.tmpl template.
func (m *Manager) Styles() []string {
	var names []string
	for _, t := range m.root.Templates() {
		n := t.Name()
		if strings.HasPrefix(n, "style/") && strings.HasSuffix(n, ".tmpl") {
			names = append(names, strings.TrimSuffix(strings.TrimPrefix(n, "style/"), ".tmpl"))
		}
	}
	sort.Strings(names)
	return names
}

func (m *Manager) styleFunc(name string, data any) (string, error) {
	if name == "" {
		return "", nil
	}

	// Style-specific guidance lives in "style/<name>.tmpl".
	tmplName := "style/" + strings.ToLower(name) + ".tmpl"
	t := m.root.Lookup(tmplName)
	if t == nil {
		return "", nil
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// toJSONFunc renders v as indented JSON for embedding in prompts.
func toJSONFunc(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// bulletsFunc renders items as a dash list.
func bulletsFunc(items []string) string {
	var sb strings.Builder
	for i, it := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(it)
	}
	return sb.String()
}
