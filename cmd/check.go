package cmd

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanhnv2901/cfcheck/internal/checker"
	"github.com/khanhnv2901/cfcheck/internal/report"
	consts "github.com/khanhnv2901/cfcheck/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/cfcheck/internal/shared/errors"
	"github.com/khanhnv2901/cfcheck/internal/shared/security"
)

var checkCmd = &cobra.Command{
	Use:   "check [url...]",
	Short: "Check one or more websites for Cloudflare / CDN evidence",
	Example: `  cfcheck check example.com
  cfcheck check --format json https://example.com www.example.org
  cfcheck check --targets-file sites.txt --concurrency 4 --save`,
	RunE: func(cmd *cobra.Command, args []string) error {
		targetsFile, _ := cmd.Flags().GetString("targets-file")
		save, _ := cmd.Flags().GetBool("save")

		targets, err := collectTargets(args, targetsFile)
		if err != nil {
			return err
		}

		format, err := report.ParseFormat(cliConfig.Defaults.Format)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		chk := newChecker(cliConfig, logger)
		out := cmd.OutOrStdout()

		var buf bytes.Buffer
		if save {
			out = io.MultiWriter(out, &buf)
		}

		var runErr error
		if len(targets) == 1 {
			runErr = runSingleCheck(ctx, out, format, chk, targets[0])
		} else {
			runErr = runBatchCheck(ctx, out, cmd.ErrOrStderr(), format, chk, targets)
		}

		if save && buf.Len() > 0 {
			path, err := saveReport(cliConfig.Defaults.ResultsDir, targets, format, buf.Bytes(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s Report saved to %s\n", colorInfo("→"), path)
		}

		return runErr
	},
}

func init() {
	checkCmd.Flags().String("targets-file", "", "file with one target per line (# starts a comment)")
	checkCmd.Flags().IntVar(&cliConfig.Check.Concurrency, "concurrency", cliConfig.Check.Concurrency, "number of targets checked in parallel")
	checkCmd.Flags().IntVar(&cliConfig.Check.RateLimit, "rate-limit", cliConfig.Check.RateLimit, "targets started per second (0 = unlimited)")
	checkCmd.Flags().Bool("save", false, "also write the report to the results directory")
	checkCmd.Flags().StringVar(&cliConfig.Defaults.ResultsDir, "results-dir", cliConfig.Defaults.ResultsDir, "directory for saved reports")
}

func newChecker(cfg *CLIConfig, logger *zap.Logger) *checker.CloudflareChecker {
	chk := checker.NewCloudflareChecker(cfg.CheckerOptions(logger))
	if logger != nil {
		chk.OnStage = func(target string, stage checker.Stage) {
			logger.Debug("stage", zap.String("target", target), zap.Stringer("stage", stage))
		}
	}
	return chk
}

func runSingleCheck(ctx context.Context, out io.Writer, format report.Format, chk checker.Checker, target string) error {
	res, err := chk.Check(ctx, target)
	if err != nil {
		if renderErr := report.RenderError(out, format, err); renderErr != nil {
			return renderErr
		}
		return err
	}
	return report.Render(out, format, res)
}

func runBatchCheck(ctx context.Context, out, progressOut io.Writer, format report.Format, chk checker.Checker, targets []string) error {
	runner := &checker.Runner{
		Concurrency: cliConfig.Check.Concurrency,
		RateLimit:   cliConfig.Check.RateLimit,
	}

	progress := newProgressPrinter(progressOut, len(targets), chk.Name())
	progress.Start()
	outcomes := runner.RunChecks(ctx, targets, chk, func(o checker.Outcome) error {
		progress.Increment(o.Err == nil, o.Duration)
		return nil
	})
	progress.Stop()

	if err := report.RenderBatch(out, format, outcomes); err != nil {
		return err
	}

	if format == report.FormatText {
		if err := printBatchSummary(out, outcomes); err != nil {
			return err
		}
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return &BatchError{Failed: failed, Total: len(outcomes)}
	}
	return nil
}

func printBatchSummary(out io.Writer, outcomes []checker.Outcome) error {
	fmt.Fprintln(out)
	fmt.Fprintln(out, colorInfo("Summary:"))

	table := tablewriter.NewWriter(out)
	table.Header("Status", "Target", "CDN", "Duration")
	for _, o := range outcomes {
		cdn := "-"
		if o.Result != nil && o.Result.CDNOrProxy != "" {
			cdn = o.Result.CDNOrProxy
		}
		row := []string{
			formatStatusWithColor(outcomeStatus(o)),
			o.Target,
			cdn,
			fmt.Sprintf("%.2fs", o.Duration),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func outcomeStatus(o checker.Outcome) string {
	switch {
	case o.Err != nil || o.Result == nil:
		return "error"
	case o.Result.IsCloudflare:
		return "cloudflare"
	case o.Result.CDNOrProxy != "":
		return "cdn"
	default:
		return "clear"
	}
}

// collectTargets merges positional arguments with the targets file.
func collectTargets(args []string, targetsFile string) ([]string, error) {
	targets := append([]string(nil), args...)

	if targetsFile != "" {
		fromFile, err := readTargetsFile(targetsFile)
		if err != nil {
			return nil, err
		}
		targets = append(targets, fromFile...)
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: provide at least one URL or --targets-file", sharedErrors.ErrValidation)
	}
	return targets, nil
}

func readTargetsFile(path string) ([]string, error) {
	f, err := os.Open(filepath.Clean(path)) // #nosec G304 -- operator-supplied targets file.
	if err != nil {
		return nil, &TargetsFileError{Path: path, Err: err}
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &TargetsFileError{Path: path, Err: err}
	}
	return targets, nil
}

// saveReport writes data under dir with a name derived from the targets.
func saveReport(dir string, targets []string, format report.Format, data []byte, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	name := "batch"
	if len(targets) == 1 {
		if host := checker.ExtractHost(targets[0]); host != "" {
			name = host
		}
	}
	fileName := fmt.Sprintf("%s-%s.%s", security.SafeFileName(name), now.UTC().Format("20060102T150405Z"), reportExtension(format))

	path, err := security.ResolveWithin(dir, fileName)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, consts.DefaultFilePerm); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

func reportExtension(format report.Format) string {
	switch format {
	case report.FormatText:
		return "txt"
	default:
		return string(format)
	}
}
