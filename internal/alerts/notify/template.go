package notify

import (
	"bytes"
	"errors"
	"text/template"
)

const DefaultTemplate = `[Alert {{.EventLabel}}]
Condition: {{.Condition}}
Source: {{.Source}}
Severity: {{.Level}}
Message: {{.Message}}
{{- if .Value }}
Value: {{.Value}}
{{- end }}
{{- if .Threshold }}
Threshold: {{.Threshold}}
{{- end }}
Start Time: {{.StartTime}}`

// TemplateData provides fields for rendering notification content.
type TemplateData struct {
	Condition  string
	Source     string
	Level      string
	Message    string
	Value      string
	Threshold  string
	StartTime  string
	Event      string
	EventLabel string
}

// Template renders notification content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses a notification template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("alert-notification").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("alert template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
