// Package github reads repository history from the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	gogithub "github.com/google/go-github/v74/github"

	"github.com/masmgr/repohistory-go/internal/history"
)

// MaxPerPage is the largest page size the commits endpoint accepts.
const MaxPerPage = 100

// Options configures a Source.
type Options struct {
	Repository string // "owner/name"
	Token      string
	BaseURL    string // REST API root, e.g. https://ghe.example.com/api/v3/ (default: api.github.com)
	Ref        string // Branch, tag or SHA to list from (default: repository default branch)
	PerPage    int
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Source implements history.Source on top of the GitHub REST API.
type Source struct {
	client  *gogithub.Client
	owner   string
	repo    string
	ref     string
	perPage int
	logger  *slog.Logger
}

// ParseRepository splits an "owner/name" identifier.
func ParseRepository(s string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q (expected owner/name)", s)
	}
	return owner, name, nil
}

// NewSource creates a Source for the configured repository.
func NewSource(opts Options) (*Source, error) {
	owner, name, err := ParseRepository(opts.Repository)
	if err != nil {
		return nil, err
	}

	client := gogithub.NewClient(opts.HTTPClient)
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
		}
		client.BaseURL = u
	}

	perPage := opts.PerPage
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Source{
		client:  client,
		owner:   owner,
		repo:    name,
		ref:     opts.Ref,
		perPage: perPage,
		logger:  logger,
	}, nil
}

// Commits pages through the commit list lazily.
// A new page is only requested once the consumer has taken every commit of the previous one.
func (s *Source) Commits(ctx context.Context) iter.Seq2[history.CommitRecord, error] {
	return func(yield func(history.CommitRecord, error) bool) {
		opts := &gogithub.CommitsListOptions{
			SHA:         s.ref,
			ListOptions: gogithub.ListOptions{PerPage: s.perPage},
		}
		for {
			page, resp, err := s.client.Repositories.ListCommits(ctx, s.owner, s.repo, opts)
			if err != nil {
				yield(history.CommitRecord{}, err)
				return
			}
			s.logger.Debug("listed commits", "page", opts.Page, "count", len(page))

			for _, rc := range page {
				if !yield(commitRecord(rc), nil) {
					return
				}
			}

			if resp.NextPage == 0 {
				return
			}
			opts.Page = resp.NextPage
		}
	}
}

func commitRecord(rc *gogithub.RepositoryCommit) history.CommitRecord {
	author := rc.GetAuthor().GetLogin()
	if author == "" {
		author = rc.GetCommit().GetAuthor().GetName()
	}
	return history.CommitRecord{
		SHA:     rc.GetSHA(),
		Message: rc.GetCommit().GetMessage(),
		Author:  author,
		When:    rc.GetCommit().GetAuthor().GetDate().Time,
		URL:     rc.GetHTMLURL(),
	}
}

// Diff requests the commit with diff content negotiation.
// Any response other than 200 OK is reported as history.ErrDiffUnavailable.
func (s *Source) Diff(ctx context.Context, sha string) (string, error) {
	diff, resp, err := s.client.Repositories.GetCommitRaw(ctx, s.owner, s.repo, sha, gogithub.RawOptions{Type: gogithub.Diff})
	if resp != nil && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s", history.ErrDiffUnavailable, resp.Status)
	}
	if err != nil {
		return "", err
	}
	return diff, nil
}

// Tree resolves the commit's root tree and lists it recursively in one call.
func (s *Source) Tree(ctx context.Context, sha string) ([]history.TreeEntry, error) {
	commit, _, err := s.client.Git.GetCommit(ctx, s.owner, s.repo, sha)
	if err != nil {
		return nil, fmt.Errorf("get commit: %w", err)
	}

	treeSHA := commit.GetTree().GetSHA()
	tree, _, err := s.client.Git.GetTree(ctx, s.owner, s.repo, treeSHA, true)
	if err != nil {
		return nil, fmt.Errorf("get tree %s: %w", treeSHA, err)
	}
	if tree.GetTruncated() {
		s.logger.Warn("tree listing truncated by the API", "sha", sha, "entries", len(tree.Entries))
	}

	entries := make([]history.TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		entries = append(entries, treeEntry(e))
	}
	return entries, nil
}

func treeEntry(e *gogithub.TreeEntry) history.TreeEntry {
	mode, err := filemode.New(e.GetMode())
	if err != nil {
		mode = filemode.Empty
	}
	return history.TreeEntry{
		Path: e.GetPath(),
		Type: history.EntryType(e.GetType()),
		Mode: mode,
		Size: int64(e.GetSize()),
		SHA:  e.GetSHA(),
	}
}

// FileContent fetches path at the commit through the contents endpoint and decodes it.
func (s *Source) FileContent(ctx context.Context, sha, path string) ([]byte, error) {
	file, dir, resp, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, path,
		&gogithub.RepositoryContentGetOptions{Ref: sha})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", history.ErrNotFound, path)
		}
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%w: %s is a directory (%d entries)", history.ErrNotFound, path, len(dir))
	}

	// Symlinks pointing outside the repository and submodules come back without content.
	if file.GetType() != "file" || file.Content == nil {
		return nil, fmt.Errorf("%w: %s is a %s", history.ErrUndecodable, path, file.GetType())
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", history.ErrUndecodable, path, err)
	}
	return []byte(content), nil
}

// IsAuthError reports whether err is a 401/403 response from the API.
func IsAuthError(err error) bool {
	var errResp *gogithub.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		code := errResp.Response.StatusCode
		return code == http.StatusUnauthorized || code == http.StatusForbidden
	}
	return false
}

// Compile-time interface conformance check.
var _ history.Source = (*Source)(nil)
