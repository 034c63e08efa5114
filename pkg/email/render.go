package email

import (
	"html"
	"regexp"
)

var placeholder = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render substitutes {{key}} placeholders with HTML-escaped values from data.
// Placeholders whose key is absent from data are left as written.
func Render(tmpl string, data map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := placeholder.FindStringSubmatch(match)[1]
		if value, ok := data[key]; ok {
			return html.EscapeString(value)
		}
		return match
	})
}
