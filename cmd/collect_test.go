package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/filemode"

	"github.com/masmgr/repohistory-go/config"
	"github.com/masmgr/repohistory-go/internal/history"
)

func newMockContext(t *testing.T, src history.Source) *CommandContext {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Output.Dir = t.TempDir()
	return &CommandContext{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		RunID:  "test",
		Source: src,
		Label:  "octo/demo",
	}
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("Unmarshal %s: %v", path, err)
	}
}

func TestRunCollect(t *testing.T) {
	src := history.NewMockSource([]history.CommitRecord{
		{SHA: "c2", Message: "second"},
		{SHA: "c1", Message: "first"},
	})
	src.Diffs["c2"] = "diff c2"
	// c1 has no diff and is left out of micro_diffs.json.
	for _, sha := range []string{"c2", "c1"} {
		src.Trees[sha] = []history.TreeEntry{
			{Path: "README.md", Type: history.EntryBlob, Mode: filemode.Regular},
			{Path: "logo.png", Type: history.EntryBlob, Mode: filemode.Regular},
		}
		src.Contents[history.ContentKey(sha, "README.md")] = []byte("readme " + sha)
		src.Contents[history.ContentKey(sha, "logo.png")] = []byte{0x89, 'P', 'N', 'G', 0, 0, 0, 1}
	}

	cctx := newMockContext(t, src)
	var out bytes.Buffer
	if err := runCollect(context.Background(), cctx, &out); err != nil {
		t.Fatalf("runCollect: %v", err)
	}

	progress := out.String()
	for _, want := range []string{
		"Fetching up to 50 commits from octo/demo...",
		"Collected 2 commit messages.",
		"Processing commit c2...",
		"Processing commit c1...",
		"Done collecting data!",
		"Saved output to JSON files.",
	} {
		if !strings.Contains(progress, want) {
			t.Errorf("progress output missing %q:\n%s", want, progress)
		}
	}

	dir := cctx.Config.Output.Dir

	var commits []map[string]string
	readJSON(t, filepath.Join(dir, "commit_messages.json"), &commits)
	if len(commits) != 2 || commits[0]["sha"] != "c2" || commits[1]["message"] != "first" {
		t.Errorf("commits = %v", commits)
	}

	var diffs []map[string]string
	readJSON(t, filepath.Join(dir, "micro_diffs.json"), &diffs)
	if len(diffs) != 1 || diffs[0]["sha"] != "c2" || diffs[0]["diff"] != "diff c2" {
		t.Errorf("diffs = %v", diffs)
	}

	var snapshots []struct {
		SHA   string            `json:"sha"`
		Files map[string]string `json:"files"`
	}
	readJSON(t, filepath.Join(dir, "macro_snapshots.json"), &snapshots)
	if len(snapshots) != 2 {
		t.Fatalf("got %d snapshots, expected 2", len(snapshots))
	}
	if snapshots[1].Files["README.md"] != "readme c1" {
		t.Errorf("README.md = %q", snapshots[1].Files["README.md"])
	}
	if snapshots[0].Files["logo.png"] != "[Binary or Unavailable]" {
		t.Errorf("logo.png = %q, expected placeholder", snapshots[0].Files["logo.png"])
	}
}

func TestRunCollect_MaxCommitsOne(t *testing.T) {
	src := history.NewMockSource([]history.CommitRecord{
		{SHA: "c3", Message: "third"},
		{SHA: "c2", Message: "second"},
		{SHA: "c1", Message: "first"},
	})
	for _, sha := range []string{"c3", "c2", "c1"} {
		src.Diffs[sha] = "diff " + sha
		src.Trees[sha] = nil
	}

	cctx := newMockContext(t, src)
	cctx.Config.Collect.MaxCommits = 1
	if err := runCollect(context.Background(), cctx, io.Discard); err != nil {
		t.Fatalf("runCollect: %v", err)
	}

	dir := cctx.Config.Output.Dir
	for _, name := range []string{"commit_messages.json", "micro_diffs.json", "macro_snapshots.json"} {
		var entries []map[string]any
		readJSON(t, filepath.Join(dir, name), &entries)
		if len(entries) != 1 || entries[0]["sha"] != "c3" {
			t.Errorf("%s = %v, expected one entry for c3", name, entries)
		}
	}
}

func TestRunCollect_EnumerationFailureWritesNothing(t *testing.T) {
	src := history.NewMockSource(nil)
	src.CommitsErr = context.DeadlineExceeded

	cctx := newMockContext(t, src)
	if err := runCollect(context.Background(), cctx, io.Discard); err == nil {
		t.Fatal("expected error, got nil")
	}

	if _, err := os.Stat(filepath.Join(cctx.Config.Output.Dir, "commit_messages.json")); !os.IsNotExist(err) {
		t.Errorf("commit_messages.json written after a failed run (stat err = %v)", err)
	}
}

func TestCommandContext_OutputOptions(t *testing.T) {
	cctx := newMockContext(t, history.NewMockSource(nil))
	cctx.Config.Output = config.OutputConfig{Diffs: "diffs.json"}
	cctx.Config.Collect.IncludeMetadata = true

	opts := cctx.OutputOptions()

	if opts.Dir != "." {
		t.Errorf("Dir = %q, expected .", opts.Dir)
	}
	if opts.CommitsFile != "commit_messages.json" || opts.SnapshotsFile != "macro_snapshots.json" {
		t.Errorf("empty names should fall back to defaults, got %+v", opts)
	}
	if opts.DiffsFile != "diffs.json" {
		t.Errorf("DiffsFile = %q, expected diffs.json", opts.DiffsFile)
	}
	if !opts.IncludeMetadata {
		t.Error("IncludeMetadata not carried over")
	}
}
