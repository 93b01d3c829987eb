// Package prompt renders the named prompt templates sent to the model.
package prompt

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"tutor-agent/internal/domain"
)

const (
	System   = "system"
	Tutoring = "tutoring"
	Start    = "start"
)

// ErrTemplateNotFound matches every *TemplateNotFoundError via errors.Is.
var ErrTemplateNotFound = errors.New("prompt: template not found")

// TemplateNotFoundError reports a render call for an unknown template name.
type TemplateNotFoundError struct {
	Name string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("prompt: template '%s' not found", e.Name)
}

func (e *TemplateNotFoundError) Is(target error) bool { return target == ErrTemplateNotFound }

// Vars is the variable set every template receives. Message is empty for
// the opening prompt.
type Vars struct {
	Language domain.Language
	Level    domain.Level
	Message  string
	Context  []domain.Turn
}

//go:embed templates/*.tmpl
var embedded embed.FS

// Engine holds parsed templates keyed by name (file name without extension).
type Engine struct {
	templates map[string]*template.Template
}

// NewEngine parses every *.tmpl file in fsys. A nil fsys selects the
// embedded templates. Names listed in required must be present.
func NewEngine(fsys fs.FS, required ...string) (*Engine, error) {
	if fsys == nil {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			return nil, fmt.Errorf("prompt: open embedded templates: %w", err)
		}
		fsys = sub
	}
	paths, err := fs.Glob(fsys, "*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("prompt: list templates: %w", err)
	}

	e := &Engine{templates: make(map[string]*template.Template, len(paths))}
	for _, p := range paths {
		src, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("prompt: read %s: %w", p, err)
		}
		name := strings.TrimSuffix(p, ".tmpl")
		tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(string(src))
		if err != nil {
			return nil, fmt.Errorf("prompt: parse %s: %w", p, err)
		}
		e.templates[name] = tmpl
	}

	for _, name := range required {
		if _, ok := e.templates[name]; !ok {
			return nil, &TemplateNotFoundError{Name: name}
		}
	}
	return e, nil
}

// Render executes the named template with vars.
func (e *Engine) Render(name string, vars any) (string, error) {
	tmpl, ok := e.templates[name]
	if !ok {
		return "", &TemplateNotFoundError{Name: name}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("prompt: render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

var funcs = template.FuncMap{
	"title": func(s domain.Language) string {
		if s == "" {
			return ""
		}
		return strings.ToUpper(string(s[:1])) + string(s[1:])
	},
	"speaker": func(r domain.Role) string {
		if r == domain.RoleModel {
			return "Tutor"
		}
		return "Learner"
	},
}
