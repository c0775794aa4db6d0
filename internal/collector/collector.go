// Package collector gathers commit messages, diffs and file snapshots from a history source.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/masmgr/repohistory-go/internal/history"
)

// ErrInvalidMaxCommits is returned when the commit limit is not positive.
var ErrInvalidMaxCommits = errors.New("max commits must be positive")

// Options configures a Collector.
type Options struct {
	MaxCommits    int
	Concurrency   int    // Parallel file fetches per snapshot (default: 1)
	Placeholder   string // Default: DefaultPlaceholder
	SkipDiffs     bool
	SkipSnapshots bool
	Filter        history.PathFilter
	Logger        *slog.Logger

	// Progress hooks, all optional.
	OnEnumerated func(count int)
	OnCommit     func(index, total int, sha string)
	OnSnapshot   func(snapshot history.FileSnapshot, substituted int)
}

// Result holds everything collected in one run.
type Result struct {
	Commits      []history.CommitRecord
	Diffs        []history.DiffRecord
	Snapshots    []history.FileSnapshot
	SkippedDiffs int
	Substituted  int // Snapshot files replaced by the placeholder
}

// Collector runs the enumerate, diff and snapshot stages against a Source.
type Collector struct {
	src  history.Source
	opts Options
}

// New creates a collector reading from src.
func New(src history.Source, opts Options) *Collector {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultPlaceholder
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Collector{src: src, opts: opts}
}

// Run enumerates commits, then fetches the diff and the snapshot of each one in order.
func (c *Collector) Run(ctx context.Context) (*Result, error) {
	commits, err := c.Enumerate(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Commits:   commits,
		Diffs:     make([]history.DiffRecord, 0, len(commits)),
		Snapshots: make([]history.FileSnapshot, 0, len(commits)),
	}

	for i, commit := range commits {
		if c.opts.OnCommit != nil {
			c.opts.OnCommit(i, len(commits), commit.SHA)
		}

		if !c.opts.SkipDiffs {
			diff, ok, err := c.fetchDiff(ctx, commit.SHA)
			if err != nil {
				return nil, err
			}
			if ok {
				result.Diffs = append(result.Diffs, diff)
			} else {
				result.SkippedDiffs++
			}
		}

		if !c.opts.SkipSnapshots {
			snapshot, substituted, err := c.snapshot(ctx, commit.SHA)
			if err != nil {
				return nil, err
			}
			result.Snapshots = append(result.Snapshots, snapshot)
			result.Substituted += substituted
		}
	}

	return result, nil
}

// Enumerate lists at most MaxCommits commits in the source's order.
// It stops consuming the source as soon as the limit is reached.
func (c *Collector) Enumerate(ctx context.Context) ([]history.CommitRecord, error) {
	if c.opts.MaxCommits <= 0 {
		return nil, ErrInvalidMaxCommits
	}

	commits := make([]history.CommitRecord, 0, min(c.opts.MaxCommits, 128))
	for rec, err := range c.src.Commits(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list commits: %w", err)
		}
		commits = append(commits, rec)
		if len(commits) >= c.opts.MaxCommits {
			break
		}
	}

	if c.opts.OnEnumerated != nil {
		c.opts.OnEnumerated(len(commits))
	}
	return commits, nil
}

func (c *Collector) fetchDiff(ctx context.Context, sha string) (history.DiffRecord, bool, error) {
	diff, err := c.src.Diff(ctx, sha)
	if err != nil {
		if errors.Is(err, history.ErrDiffUnavailable) && ctx.Err() == nil {
			c.opts.Logger.Debug("skipping diff", "sha", sha, "err", err)
			return history.DiffRecord{}, false, nil
		}
		return history.DiffRecord{}, false, fmt.Errorf("fetch diff of %s: %w", sha, err)
	}
	return history.DiffRecord{SHA: sha, Diff: diff}, true, nil
}

func (c *Collector) snapshot(ctx context.Context, sha string) (history.FileSnapshot, int, error) {
	entries, err := c.src.Tree(ctx, sha)
	if err != nil {
		return history.FileSnapshot{}, 0, fmt.Errorf("list tree of %s: %w", sha, err)
	}

	files := make([]history.TreeEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsFile() && c.opts.Filter.Matches(e.Path) {
			files = append(files, e)
		}
	}

	results, err := c.fetchFiles(ctx, sha, files)
	if err != nil {
		return history.FileSnapshot{}, 0, err
	}

	snapshot := history.FileSnapshot{SHA: sha, Files: make([]history.FileEntry, len(results))}
	substituted := 0
	for i, r := range results {
		if !r.OK() {
			substituted++
			c.opts.Logger.Debug("substituting placeholder",
				"sha", sha, "path", r.Path, "reason", r.Failure.String(), "err", r.Err)
		}
		snapshot.Files[i] = history.FileEntry{Path: r.Path, Content: r.Text(c.opts.Placeholder)}
	}

	if c.opts.OnSnapshot != nil {
		c.opts.OnSnapshot(snapshot, substituted)
	}
	return snapshot, substituted, nil
}

// fetchFiles fetches file contents on a bounded pool.
// results[i] always corresponds to entries[i].
func (c *Collector) fetchFiles(ctx context.Context, sha string, entries []history.TreeEntry) ([]FileResult, error) {
	results := make([]FileResult, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for i, e := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := c.src.FileContent(gctx, sha, e.Path)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = classifyFetch(e.Path, data, err)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch files of %s: %w", sha, err)
	}
	return results, nil
}
