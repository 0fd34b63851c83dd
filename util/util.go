package util

import (
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// Data is a generic map type for template rendering context.
type Data map[string]interface{}

// Render executes the given template with the provided variables.
func Render(tmpl *template.Template, variables Data) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, variables); err != nil {
		return "", errors.Wrap(err, "failed to render template")
	}
	return buf.String(), nil
}

// RenderString parses and executes the given template string with the provided variables.
func RenderString(tmplStr string, variables Data) (string, error) {
	tmpl, err := template.New("").Option("missingkey=error").Parse(tmplStr)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse template string")
	}
	return Render(tmpl, variables)
}

// MustRenderString parses and executes the given template string, panicking on error.
func MustRenderString(tmplStr string, variables Data) string {
	s, err := RenderString(tmplStr, variables)
	if err != nil {
		panic(err)
	}
	return s
}

// IsTemplated reports whether a string contains template actions worth rendering.
func IsTemplated(s string) bool {
	return strings.Contains(s, "{{")
}

// MergeMaps merges the given maps left to right into a fresh map.
// Later maps take precedence on key collisions. Nil maps are skipped.
// The inputs are never modified.
func MergeMaps(maps ...map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{})
	for _, m := range maps {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}

// CopyMap returns a shallow copy of the given map, or an empty map for nil input.
func CopyMap(m map[string]interface{}) map[string]interface{} {
	copied := make(map[string]interface{}, len(m))
	for k, v := range m {
		copied[k] = v
	}
	return copied
}
