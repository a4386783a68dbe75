package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/cfcheck/internal/checker"
	"github.com/khanhnv2901/cfcheck/internal/report"
)

const emptyInputMessage = "Please enter a valid URL"

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"tui"},
	Short:   "Prompt for URLs and check them one at a time",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(cliConfig.Defaults.Format)
		if err != nil {
			return err
		}

		chk := newChecker(cliConfig, logger)
		return runInteractive(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), format, chk)
	},
}

// runInteractive reads one target per line. A line is only read after the
// previous check finished, so checks never overlap.
func runInteractive(ctx context.Context, in io.Reader, out io.Writer, format report.Format, chk *checker.CloudflareChecker) error {
	if ctx == nil {
		ctx = context.Background()
	}

	previous := chk.OnStage
	chk.OnStage = func(target string, stage checker.Stage) {
		if previous != nil {
			previous(target, stage)
		}
		if stage == checker.StagePageFetch && format == report.FormatText {
			fmt.Fprintln(out, colorInfo("Checking website..."))
		}
	}

	reader := bufio.NewReader(in)
	fmt.Fprintln(out, "=== cfcheck ===")
	for {
		fmt.Fprint(out, "Enter a URL ([q] Quit): ")
		input, readErr := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		switch strings.ToLower(input) {
		case "q", "quit", "exit":
			return nil
		case "":
			if readErr != nil {
				fmt.Fprintln(out)
				return nil
			}
			_ = report.RenderError(out, format, errors.New(emptyInputMessage))
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := chk.Check(ctx, input)
		if err != nil {
			_ = report.RenderError(out, format, err)
		} else if err := report.Render(out, format, res); err != nil {
			return err
		}
		fmt.Fprintln(out)

		if readErr != nil {
			return nil
		}
	}
}
