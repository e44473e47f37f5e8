package nodes

import (
	"fmt"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

// Interpolate renders {{ key }} tokens in a template against state values.
// Unknown keys render as empty strings; non-string values are formatted
// with their default representation.
func Interpolate(template string, values map[string]any) string {
	if !strings.Contains(template, "{{") {
		return template
	}
	return tokenPattern.ReplaceAllStringFunc(template, func(token string) string {
		key := tokenPattern.FindStringSubmatch(token)[1]
		v, ok := values[key]
		if !ok || v == nil {
			return ""
		}
		if s, isStr := v.(string); isStr {
			return s
		}
		return fmt.Sprintf("%v", v)
	})
}
