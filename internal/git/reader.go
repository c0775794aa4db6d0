// Package git reads repository history from a local clone.
package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/masmgr/repohistory-go/internal/history"
)

// ReadOptions configures the history reader.
type ReadOptions struct {
	RepoPath string
	Branch   string // Branch, tag or revision to list from (default: HEAD)
}

// HistoryReader implements history.Source for a local Git repository.
type HistoryReader struct {
	repo *git.Repository
	opts ReadOptions

	// go-git object access is serialized; snapshot fetches may run in parallel.
	mu sync.Mutex
}

// NewHistoryReader creates a new history reader for the given repository.
func NewHistoryReader(opts ReadOptions) (*HistoryReader, error) {
	repo, err := git.PlainOpenWithOptions(opts.RepoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, err
	}
	return &HistoryReader{repo: repo, opts: opts}, nil
}

// Commits walks the history from the configured revision, newest committer time first.
// A repository without commits yields an empty sequence.
func (r *HistoryReader) Commits(ctx context.Context) iter.Seq2[history.CommitRecord, error] {
	return func(yield func(history.CommitRecord, error) bool) {
		from, err := r.resolveStart()
		if errors.Is(err, plumbing.ErrReferenceNotFound) && r.isHead() {
			return
		}
		if err != nil {
			yield(history.CommitRecord{}, fmt.Errorf("resolve %q: %w", r.opts.Branch, err))
			return
		}

		cIter, err := r.repo.Log(&git.LogOptions{From: from, Order: git.LogOrderCommitterTime})
		if err != nil {
			yield(history.CommitRecord{}, err)
			return
		}
		defer cIter.Close()

		for {
			if err := ctx.Err(); err != nil {
				yield(history.CommitRecord{}, err)
				return
			}
			c, err := cIter.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(history.CommitRecord{}, err)
				return
			}
			if !yield(commitRecord(c), nil) {
				return
			}
		}
	}
}

func commitRecord(c *object.Commit) history.CommitRecord {
	return history.CommitRecord{
		SHA:     c.Hash.String(),
		Message: c.Message,
		Author:  c.Author.Name,
		When:    c.Author.When,
	}
}

// Diff returns the unified patch of the commit against its first parent.
// A root commit is diffed against the empty tree.
func (r *HistoryReader) Diff(ctx context.Context, sha string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.commit(sha)
	if err != nil {
		return "", err
	}

	toTree, err := c.Tree()
	if err != nil {
		return "", err
	}

	var fromTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return "", err
		}
		if fromTree, err = parent.Tree(); err != nil {
			return "", err
		}
	}

	patch, err := fromTree.PatchContext(ctx, toTree)
	if err != nil {
		return "", err
	}
	return patch.String(), nil
}

// Tree lists every entry of the commit's root tree, depth first.
func (r *HistoryReader) Tree(ctx context.Context, sha string) ([]history.TreeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.commit(sha)
	if err != nil {
		return nil, err
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	walker := object.NewTreeWalker(tree, true, nil)
	defer walker.Close()

	var entries []history.TreeEntry
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name, entry, err := walker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, history.TreeEntry{
			Path: name,
			Type: history.EntryTypeForMode(entry.Mode),
			Mode: entry.Mode,
			SHA:  entry.Hash.String(),
		})
	}
	return entries, nil
}

// FileContent reads the blob at path in the commit's tree.
func (r *HistoryReader) FileContent(_ context.Context, sha, path string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.commit(sha)
	if err != nil {
		return nil, err
	}

	f, err := c.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", history.ErrNotFound, path)
		}
		return nil, err
	}

	rd, err := f.Reader()
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	return io.ReadAll(rd)
}

func (r *HistoryReader) isHead() bool {
	rev := strings.TrimSpace(r.opts.Branch)
	return rev == "" || strings.EqualFold(rev, "HEAD")
}

func (r *HistoryReader) resolveStart() (plumbing.Hash, error) {
	if r.isHead() {
		ref, err := r.repo.Head()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return ref.Hash(), nil
	}
	h, err := r.repo.ResolveRevision(plumbing.Revision(strings.TrimSpace(r.opts.Branch)))
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return *h, nil
}

func (r *HistoryReader) commit(sha string) (*object.Commit, error) {
	h, err := r.repo.ResolveRevision(plumbing.Revision(sha))
	if err != nil {
		return nil, fmt.Errorf("resolve commit %s: %w", sha, err)
	}
	return r.repo.CommitObject(*h)
}

// Compile-time interface conformance check.
var _ history.Source = (*HistoryReader)(nil)
