// Package view is the rendering edge of the application. Handlers hand it
// validated data; everything here is presentation glue.
package view

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates parses the embedded page templates with the view helpers
// installed. The returned set is mounted on the gin engine at startup.
func Templates() *template.Template {
	funcs := template.FuncMap{
		"gravatar": GravatarURL,
		// bodies are sanitized before storage; re-escaping them here would
		// show markup to the reader
		"raw": func(s string) template.HTML { return template.HTML(s) },
	}

	return template.Must(template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html"))
}
