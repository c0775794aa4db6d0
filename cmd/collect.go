package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/repohistory-go/internal/collector"
	"github.com/masmgr/repohistory-go/internal/github"
	"github.com/masmgr/repohistory-go/internal/history"
	"github.com/masmgr/repohistory-go/internal/output"
)

// CollectCmd returns the collect command.
func CollectCmd() *cli.Command {
	return &cli.Command{
		Name:   "collect",
		Usage:  "Collect commit messages, diffs and file snapshots into JSON files",
		Flags:  collectFlags(),
		Action: collectAction,
	}
}

func collectAction(c *cli.Context) error {
	cctx, err := NewCommandContext(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCollect(ctx, cctx, c.App.Writer)
}

// runCollect runs the three collection stages and writes the output files.
func runCollect(ctx context.Context, cctx *CommandContext, out io.Writer) error {
	cfg := cctx.Config
	start := time.Now()

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	fmt.Fprintf(out, "Fetching up to %d commits from %s...\n", cfg.Collect.MaxCommits, cctx.Label)

	coll := collector.New(cctx.Source, collector.Options{
		MaxCommits:    cfg.Collect.MaxCommits,
		Concurrency:   cfg.Collect.Concurrency,
		Placeholder:   cfg.Collect.Placeholder,
		SkipDiffs:     cfg.Collect.SkipDiffs,
		SkipSnapshots: cfg.Collect.SkipSnapshots,
		Filter:        cctx.Filter,
		Logger:        cctx.Logger,
		OnEnumerated: func(count int) {
			green.Fprintf(out, "Collected %d commit messages.\n", count)
		},
		OnCommit: func(index, total int, sha string) {
			cyan.Fprintf(out, "[%d/%d] Processing commit %s...\n", index+1, total, sha)
		},
		OnSnapshot: func(s history.FileSnapshot, substituted int) {
			line := fmt.Sprintf("  %d files, %s", len(s.Files), humanize.Bytes(uint64(s.Bytes())))
			if substituted > 0 {
				yellow.Fprintf(out, "%s (%d unavailable)\n", line, substituted)
				return
			}
			fmt.Fprintln(out, line)
		},
	})

	result, err := coll.Run(ctx)
	if err != nil {
		if github.IsAuthError(err) {
			return fmt.Errorf("%w (check the access token in $%s)", err, cfg.Source.TokenEnv)
		}
		return err
	}
	green.Fprintln(out, "Done collecting data!")

	writer := &output.JSONWriter{}
	files, err := writer.Write(&output.Report{
		Repository: cctx.Label,
		Commits:    result.Commits,
		Diffs:      result.Diffs,
		Snapshots:  result.Snapshots,
	}, cctx.OutputOptions())
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	green.Fprintln(out, "Saved output to JSON files.")

	summary := &output.Summary{
		Repository:   cctx.Label,
		Commits:      len(result.Commits),
		Diffs:        len(result.Diffs),
		SkippedDiffs: result.SkippedDiffs,
		Snapshots:    len(result.Snapshots),
		Substituted:  result.Substituted,
		Files:        files,
		Elapsed:      time.Since(start),
	}
	cctx.Logger.Info("collection finished", "commits", summary.Commits, "diffs", summary.Diffs,
		"snapshots", summary.Snapshots, "elapsed", summary.Elapsed)

	return (&output.ConsoleSummaryWriter{Out: out}).Write(summary)
}
