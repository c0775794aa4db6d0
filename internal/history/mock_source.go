package history

import (
	"context"
	"fmt"
	"iter"
	"sync"
)

// MockSource is a test double for Source.
// It allows tests to provide predefined repository data without a network or a Git repository.
type MockSource struct {
	CommitList []CommitRecord
	CommitsErr error // returned after CommitList is exhausted

	Diffs    map[string]string // sha -> diff; missing sha yields ErrDiffUnavailable
	DiffErrs map[string]error  // sha -> error overriding Diffs

	Trees    map[string][]TreeEntry
	TreeErrs map[string]error

	Contents    map[string][]byte // sha + ":" + path -> content; missing yields ErrNotFound
	ContentErrs map[string]error  // sha + ":" + path -> error

	mu      sync.Mutex
	pulled  int
	fetched []string
}

// NewMockSource creates a MockSource listing the given commits.
func NewMockSource(commits []CommitRecord) *MockSource {
	return &MockSource{
		CommitList:  commits,
		Diffs:       make(map[string]string),
		DiffErrs:    make(map[string]error),
		Trees:       make(map[string][]TreeEntry),
		TreeErrs:    make(map[string]error),
		Contents:    make(map[string][]byte),
		ContentErrs: make(map[string]error),
	}
}

// ContentKey builds the key used by Contents and ContentErrs.
func ContentKey(sha, path string) string {
	return sha + ":" + path
}

// Commits yields the predefined commits, then CommitsErr if set.
func (m *MockSource) Commits(ctx context.Context) iter.Seq2[CommitRecord, error] {
	return func(yield func(CommitRecord, error) bool) {
		for _, c := range m.CommitList {
			if err := ctx.Err(); err != nil {
				yield(CommitRecord{}, err)
				return
			}
			m.mu.Lock()
			m.pulled++
			m.mu.Unlock()
			if !yield(c, nil) {
				return
			}
		}
		if m.CommitsErr != nil {
			yield(CommitRecord{}, m.CommitsErr)
		}
	}
}

// Pulled returns how many commits were consumed from the sequence.
func (m *MockSource) Pulled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pulled
}

// Diff returns the predefined diff for sha.
func (m *MockSource) Diff(_ context.Context, sha string) (string, error) {
	if err, ok := m.DiffErrs[sha]; ok {
		return "", err
	}
	d, ok := m.Diffs[sha]
	if !ok {
		return "", fmt.Errorf("%w: status 404", ErrDiffUnavailable)
	}
	return d, nil
}

// Tree returns the predefined tree for sha.
func (m *MockSource) Tree(_ context.Context, sha string) ([]TreeEntry, error) {
	if err, ok := m.TreeErrs[sha]; ok {
		return nil, err
	}
	return m.Trees[sha], nil
}

// FileContent returns the predefined content for path at sha.
func (m *MockSource) FileContent(_ context.Context, sha, path string) ([]byte, error) {
	key := ContentKey(sha, path)

	m.mu.Lock()
	m.fetched = append(m.fetched, key)
	m.mu.Unlock()

	if err, ok := m.ContentErrs[key]; ok {
		return nil, err
	}
	c, ok := m.Contents[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return c, nil
}

// Fetched returns the content keys requested so far.
func (m *MockSource) Fetched() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fetched...)
}

// Compile-time interface conformance check.
var _ Source = (*MockSource)(nil)
