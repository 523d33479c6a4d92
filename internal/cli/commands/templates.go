package commands

import (
	"bytes"
	"embed"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// configTemplateData fills templates/semantic.yaml.tmpl.
type configTemplateData struct {
	Adapter   string
	Namespace string
	CLIPath   string
	Timeout   int
}

func renderConfigTemplate(data configTemplateData) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "semantic.yaml.tmpl", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
