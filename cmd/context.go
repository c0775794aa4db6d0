package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/repohistory-go/config"
	gitpkg "github.com/masmgr/repohistory-go/internal/git"
	"github.com/masmgr/repohistory-go/internal/github"
	"github.com/masmgr/repohistory-go/internal/history"
	"github.com/masmgr/repohistory-go/internal/output"
)

// CommandContext holds common state for command execution.
// It encapsulates configuration loading, logger setup and source selection.
type CommandContext struct {
	Config *config.Config
	Logger *slog.Logger
	RunID  string
	Source history.Source
	Filter history.PathFilter
	Label  string // Repository shown in progress and summary output
}

// NewCommandContext creates a context from CLI flags.
func NewCommandContext(c *cli.Context) (*CommandContext, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	filter := history.PathFilter{
		Include:      cfg.Filters.Include,
		Exclude:      cfg.Filters.Exclude,
		SkipVendored: cfg.Filters.SkipVendored,
	}
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}

	runID := uuid.NewString()
	logger, err := newLogger(c.String("log-level"), c.App.ErrWriter, runID)
	if err != nil {
		return nil, err
	}

	src, label, err := newSource(cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("starting collection", "source", cfg.Source.Kind, "repository", label,
		"max_commits", cfg.Collect.MaxCommits)

	return &CommandContext{
		Config: cfg,
		Logger: logger,
		RunID:  runID,
		Source: src,
		Filter: filter,
		Label:  label,
	}, nil
}

// newLogger builds the diagnostic logger. Every record carries the run identifier.
func newLogger(level string, w io.Writer, runID string) (*slog.Logger, error) {
	lvl, err := parseLogLevel(level)
	if err != nil {
		return nil, err
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(h).With("run", runID), nil
}

// newSource opens the configured history source.
func newSource(cfg *config.Config, logger *slog.Logger) (history.Source, string, error) {
	switch cfg.Source.Kind {
	case config.SourceLocal:
		reader, err := gitpkg.NewHistoryReader(gitpkg.ReadOptions{
			RepoPath: cfg.Source.Path,
			Branch:   cfg.Source.Ref,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to open repository: %w", err)
		}
		return reader, cfg.Source.Path, nil

	default:
		var httpClient *http.Client
		if cfg.Source.Timeout > 0 {
			httpClient = &http.Client{Timeout: time.Duration(cfg.Source.Timeout)}
		}
		if cfg.Source.Token == "" {
			logger.Warn("no access token set, using unauthenticated rate limits", "env", cfg.Source.TokenEnv)
		}
		src, err := github.NewSource(github.Options{
			Repository: cfg.Source.Repository,
			Token:      cfg.Source.Token,
			BaseURL:    cfg.Source.BaseURL,
			Ref:        cfg.Source.Ref,
			PerPage:    min(cfg.Collect.MaxCommits, github.MaxPerPage),
			HTTPClient: httpClient,
			Logger:     logger,
		})
		if err != nil {
			return nil, "", err
		}
		return src, cfg.Source.Repository, nil
	}
}

// OutputOptions creates OutputOptions from the configuration.
// Empty file names in the configuration fall back to the defaults.
func (ctx *CommandContext) OutputOptions() output.OutputOptions {
	opts := output.DefaultOutputOptions()
	o := ctx.Config.Output
	if o.Dir != "" {
		opts.Dir = o.Dir
	}
	if o.Commits != "" {
		opts.CommitsFile = o.Commits
	}
	if o.Diffs != "" {
		opts.DiffsFile = o.Diffs
	}
	if o.Snapshots != "" {
		opts.SnapshotsFile = o.Snapshots
	}
	opts.IncludeMetadata = ctx.Config.Collect.IncludeMetadata
	return opts
}
