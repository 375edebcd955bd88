package notifications

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// each .html file must define {{define "name:subject"}} and {{define "name:body"}} blocks,
// where name matches the filename without extension.
func LoadTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"date": func(v any) string {
			if t, ok := v.(interface{ Format(string) string }); ok {
				return t.Format("02 Jan 2006 15:04")
			}
			return ""
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	return tmpl, nil
}
