package template

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Engine renders manifests as Go templates with the sprig function library.
type Engine struct {
	funcs template.FuncMap

	// Pattern to match value references like {{ .Values.system.name }}
	valuePattern *regexp.Regexp
}

// New creates a new template engine
func New() *Engine {
	return &Engine{
		funcs:        sprig.TxtFuncMap(),
		valuePattern: regexp.MustCompile(`\.Values((?:\.[A-Za-z_][A-Za-z0-9_]*)+)`),
	}
}

// Render executes text as a template. Referencing a value that was not set
// is an error rather than an empty string.
func (e *Engine) Render(name, text string, ctx Context) ([]byte, error) {
	tmpl, err := template.New(name).Funcs(e.funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx.data()); err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Replace renders every string inside value that contains a template action
// and returns a copy with the results. Maps and slices are walked
// recursively; other types are returned as-is.
func (e *Engine) Replace(value any, ctx Context) (any, error) {
	switch v := value.(type) {
	case string:
		if !strings.Contains(v, "{{") {
			return v, nil
		}
		out, err := e.Render("value", v, ctx)
		if err != nil {
			return nil, err
		}
		return string(out), nil
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, item := range v {
			replaced, err := e.Replace(item, ctx)
			if err != nil {
				return nil, fmt.Errorf("error in key '%s': %w", key, err)
			}
			result[key] = replaced
		}
		return result, nil
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			replaced, err := e.Replace(item, ctx)
			if err != nil {
				return nil, fmt.Errorf("error at index %d: %w", i, err)
			}
			result[i] = replaced
		}
		return result, nil
	default:
		return value, nil
	}
}

// ExtractVariables returns the dotted paths of all .Values references in
// text, sorted and without duplicates.
func (e *Engine) ExtractVariables(text string) []string {
	seen := map[string]bool{}
	for _, match := range e.valuePattern.FindAllStringSubmatch(text, -1) {
		seen[strings.TrimPrefix(match[1], ".")] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ValidateContext ensures every value referenced by text is set.
func (e *Engine) ValidateContext(text string, ctx Context) error {
	var missing []string
	for _, path := range e.ExtractVariables(text) {
		if _, ok := ctx.Lookup(path); !ok {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required values: %s", strings.Join(missing, ", "))
	}
	return nil
}
