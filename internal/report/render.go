package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/khanhnv2901/cfcheck/internal/checker"
	sharedErrors "github.com/khanhnv2901/cfcheck/internal/shared/errors"
)

// Format names an output renderer.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHTML Format = "html"
)

// Formats lists every supported output format.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatHTML}

// ParseFormat validates a user-supplied format name. Empty means text.
func ParseFormat(name string) (Format, error) {
	normalized := Format(strings.ToLower(strings.TrimSpace(name)))
	if normalized == "" {
		return FormatText, nil
	}
	for _, f := range Formats {
		if f == normalized {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported format %q (use text, json, yaml or html)", sharedErrors.ErrValidation, name)
}

// Entry is the serialized form of one batch outcome.
type Entry struct {
	Target string          `json:"target" yaml:"target"`
	Result *checker.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// Render writes a single result in the requested format.
func Render(w io.Writer, format Format, res *checker.Result) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, res)
	case FormatYAML:
		return writeYAML(w, res)
	case FormatHTML:
		return renderHTML(w, BuildView(res))
	case FormatText, "":
		return renderText(w, BuildView(res))
	default:
		return fmt.Errorf("%w: unsupported format %q", sharedErrors.ErrValidation, format)
	}
}

// RenderBatch writes several outcomes. Structured formats produce one
// document; text and html render each outcome in turn.
func RenderBatch(w io.Writer, format Format, outcomes []checker.Outcome) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, entries(outcomes))
	case FormatYAML:
		return writeYAML(w, entries(outcomes))
	}

	for i, outcome := range outcomes {
		if i > 0 && format != FormatHTML {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		var err error
		if outcome.Err != nil {
			err = RenderError(w, format, fmt.Errorf("%s: %w", outcome.Target, outcome.Err))
		} else {
			err = Render(w, format, outcome.Result)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// RenderError writes a failed check, typically a validation error.
func RenderError(w io.Writer, format Format, err error) error {
	message := err.Error()
	switch format {
	case FormatJSON:
		return writeJSON(w, map[string]string{"error": message})
	case FormatYAML:
		return writeYAML(w, map[string]string{"error": message})
	case FormatHTML:
		return renderHTMLError(w, message)
	default:
		return renderTextError(w, message)
	}
}

func entries(outcomes []checker.Outcome) []Entry {
	out := make([]Entry, 0, len(outcomes))
	for _, o := range outcomes {
		entry := Entry{Target: o.Target, Result: o.Result}
		if o.Err != nil {
			entry.Error = o.Err.Error()
		}
		out = append(out, entry)
	}
	return out
}

func writeJSON(w io.Writer, payload interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("render json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, payload interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("render yaml: %w", err)
	}
	return enc.Close()
}
