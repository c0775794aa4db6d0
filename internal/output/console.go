package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Summary describes a finished collection run.
type Summary struct {
	Repository   string
	Commits      int
	Diffs        int
	SkippedDiffs int
	Snapshots    int
	Substituted  int
	Files        []WrittenFile
	Elapsed      time.Duration
}

// ConsoleSummaryWriter prints a run summary as a table.
type ConsoleSummaryWriter struct {
	Out io.Writer // default: stdout
}

// Write renders the summary.
func (w *ConsoleSummaryWriter) Write(s *Summary) error {
	out := w.Out
	if out == nil {
		out = os.Stdout
	}

	color.New(color.FgGreen).Fprintf(out, "Collected %s\n", s.Repository)
	fmt.Fprintf(out, "Commits: %d  Diffs: %d (skipped %d)  Snapshots: %d\n",
		s.Commits, s.Diffs, s.SkippedDiffs, s.Snapshots)
	if s.Substituted > 0 {
		color.New(color.FgYellow).Fprintf(out, "Unreadable files replaced by placeholder: %d\n", s.Substituted)
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	// Keep humanized units ("kB") as written.
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"File", "Entries", "Size"})

	var total uint64
	for _, f := range s.Files {
		t.AppendRow(table.Row{f.Path, f.Entries, humanize.Bytes(uint64(f.Bytes))})
		total += uint64(f.Bytes)
	}
	t.AppendFooter(table.Row{"Total", "", humanize.Bytes(total)})
	t.Render()

	fmt.Fprintf(out, "Completed in %s\n", s.Elapsed.Round(time.Millisecond))
	return nil
}
