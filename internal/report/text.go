package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	colorTitle    = color.New(color.Bold).SprintFunc()
	colorDetected = color.New(color.FgGreen, color.Bold).SprintFunc()
	colorMissing  = color.New(color.FgYellow).SprintFunc()
	colorFailure  = color.New(color.FgRed, color.Bold).SprintFunc()
	colorFaint    = color.New(color.FgHiBlack).SprintFunc()
)

const titleWidth = 19

func renderText(w io.Writer, view View) error {
	for _, section := range view.Sections {
		value := section.Value
		switch section.State {
		case StateDetected:
			value = colorDetected("✓ " + value)
		case StateNotDetected:
			value = colorMissing("✗ " + value)
		}

		label := fmt.Sprintf("%-*s", titleWidth, section.Title+":")
		if _, err := fmt.Fprintf(w, "%s %s\n", colorTitle(label), value); err != nil {
			return err
		}
		for _, item := range section.Items {
			if _, err := fmt.Fprintf(w, "  - %s\n", item); err != nil {
				return err
			}
		}
	}

	if len(view.ProbeErrors) > 0 {
		if _, err := fmt.Fprintln(w, colorFaint("Probe errors:")); err != nil {
			return err
		}
		for _, msg := range view.ProbeErrors {
			if _, err := fmt.Fprintf(w, "  %s\n", colorFaint(msg)); err != nil {
				return err
			}
		}
	}
	return nil
}

func renderTextError(w io.Writer, message string) error {
	_, err := fmt.Fprintf(w, "%s %s\n", colorFailure("[ERROR]"), message)
	return err
}
