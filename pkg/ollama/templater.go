package ollama

import (
	"bytes"
	"encoding/json"
	"text/template"
)

var templateFuncs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

// RenderTemplate renders a prompt template with the provided data.
// Templates may use {{json .X}} to embed values as JSON.
func RenderTemplate(tmpl string, data any) (string, error) {
	tpl, err := template.New("prompt").Funcs(templateFuncs).Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
