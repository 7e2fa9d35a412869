package templates

import (
	"bytes"
	"embed"
	"fmt"
	"reflect"
	"strings"
	texttpl "text/template"
)

//go:embed *.tmpl
var FS embed.FS

// RegistrationData feeds the registration_confirmed template.
type RegistrationData struct {
	CompanyName string
	Username    string
	FirstName   string
	LastName    string
}

// defaultFn supports pipe usage: {{ .Value | default "Fallback" }}
func defaultFn(fallback any, value any) any {
	switch x := value.(type) {
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
		return x
	case nil:
		return fallback
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() {
			return fallback
		}
		if rv.IsZero() {
			return fallback
		}
		return value
	}
}

var funcMap = texttpl.FuncMap{
	"upper":   strings.ToUpper,
	"default": defaultFn,
}

// ---- Template names ----

const (
	RegistrationConfirmed = "registration_confirmed"
)

// Render loads and renders <name>.text.tmpl from the embedded FS.
func Render(name string, data any) (string, error) {
	filename := name + ".text.tmpl"
	tpl, err := texttpl.New(filename).Funcs(funcMap).ParseFS(FS, filename)
	if err != nil {
		return "", fmt.Errorf("parse text %q: %w", filename, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("exec %q: %w", filename, err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
