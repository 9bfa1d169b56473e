package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/akhenakh/skriptls/internal/remote"
	"github.com/akhenakh/skriptls/internal/report"
)

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Parse scripts with the parse service and print their diagnostics",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "text", "output format (text|json)")
	checkCmd.Flags().IntP("jobs", "j", runtime.GOMAXPROCS(0), "number of files checked concurrently")
}

func runCheck(cmd *cobra.Command, files []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q", format)
	}
	jobs, _ := cmd.Flags().GetInt("jobs")
	if jobs <= 0 {
		jobs = 1
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	client := newRemoteClient(cfg, logger)

	results := checkFiles(cmd.Context(), client, cfg.Parse.URL, files, jobs)

	out := cmd.OutOrStdout()
	if format == "json" {
		err = report.WriteJSON(out, results)
	} else {
		opts := report.Options{}
		if f, ok := out.(*os.File); ok {
			opts = report.TerminalOptions(f)
		}
		err = report.WriteText(out, results, opts)
	}
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Failed() {
			return exitError(1)
		}
	}
	return nil
}

// checkFiles parses every file, at most jobs at a time. Per-file failures
// are recorded in the results; results keep the order of files.
func checkFiles(ctx context.Context, client *remote.Client, parseURL string, files []string, jobs int) []report.Result {
	results := make([]report.Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			results[i] = report.Result{Path: path}
			text, err := os.ReadFile(path)
			if err != nil {
				results[i].Err = err
				return nil
			}
			res, err := client.Parse(gctx, parseURL, string(text))
			if err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Errors = res.Errors
			results[i].Warnings = res.Warnings
			return nil
		})
	}
	_ = g.Wait()
	return results
}
