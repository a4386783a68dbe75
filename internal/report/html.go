package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

const htmlTemplatePath = "templates/result.html"

//go:embed templates/result.html
var templateFS embed.FS

var (
	htmlTemplateFuncs = template.FuncMap{
		"markup":     markup,
		"stateClass": stateClass,
		"mark":       stateMark,
	}

	htmlTemplate = template.Must(
		template.New("result.html").Funcs(htmlTemplateFuncs).ParseFS(templateFS, htmlTemplatePath),
	)
)

// markup escapes free text and marks it safe so the template engine emits
// the entities unchanged.
func markup(s string) template.HTML {
	return template.HTML(EscapeMarkup(s)) // #nosec G203 -- value passed through EscapeMarkup.
}

func stateClass(state State) string {
	switch state {
	case StateDetected:
		return " cloudflare-detected"
	case StateNotDetected:
		return " cloudflare-not-detected"
	default:
		return ""
	}
}

func stateMark(state State) string {
	switch state {
	case StateDetected:
		return "✓ "
	case StateNotDetected:
		return "✗ "
	default:
		return ""
	}
}

func renderHTML(w io.Writer, view View) error {
	if err := htmlTemplate.ExecuteTemplate(w, "result", view); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func renderHTMLError(w io.Writer, message string) error {
	if err := htmlTemplate.ExecuteTemplate(w, "error", message); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}
