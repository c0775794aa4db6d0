package history

import (
	"context"
	"errors"
	"iter"
)

// Source answers the four questions the collector asks about a repository.
// Implementations exist for the hosted web API and for local clones.
type Source interface {
	// Commits returns the commit history as a lazy, single-pass sequence in
	// the source's native order. Iteration stops at the first error.
	Commits(ctx context.Context) iter.Seq2[CommitRecord, error]

	// Diff returns the unified diff of a commit. A response the source
	// refuses to serve is reported as ErrDiffUnavailable.
	Diff(ctx context.Context, sha string) (string, error)

	// Tree returns every entry of the commit's root tree, recursively.
	Tree(ctx context.Context, sha string) ([]TreeEntry, error)

	// FileContent returns the raw bytes of path at the given commit.
	FileContent(ctx context.Context, sha, path string) ([]byte, error)
}

var (
	// ErrDiffUnavailable marks a diff request answered with a non-OK status.
	ErrDiffUnavailable = errors.New("diff unavailable")

	// ErrNotFound marks a path or object that does not exist at the commit.
	ErrNotFound = errors.New("not found")

	// ErrUndecodable marks content the source returned in an unusable encoding.
	ErrUndecodable = errors.New("content not decodable")
)
