package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/masmgr/repohistory-go/config"
	"github.com/urfave/cli/v2"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "repohistory",
		Usage:   "Collect commit messages, diffs and file snapshots from a repository",
		Version: "1.0.0",
		Commands: []*cli.Command{
			CollectCmd(),
			ConfigCmd(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (JSON or YAML)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Diagnostic log level on stderr (debug, info, warn, error)",
				Value: "warn",
			},
		},
		Action: defaultAction,
	}
}

// Collection flags. Only flags set explicitly override the configuration.
func collectFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "repo",
			Aliases: []string{"r"},
			Usage:   "GitHub repository as owner/name",
		},
		&cli.IntFlag{
			Name:    "max-commits",
			Aliases: []string{"n"},
			Usage:   "Maximum number of commits to collect",
		},
		&cli.StringFlag{
			Name:  "source",
			Usage: "History source (github, local)",
		},
		&cli.StringFlag{
			Name:  "path",
			Usage: "Path to a local clone (with --source local)",
		},
		&cli.StringFlag{
			Name:    "ref",
			Aliases: []string{"b"},
			Usage:   "Branch, tag or commit to start from (default: default branch)",
		},
		&cli.StringFlag{
			Name:  "base-url",
			Usage: "GitHub Enterprise REST API root",
		},
		&cli.IntFlag{
			Name:  "concurrency",
			Usage: "Parallel file fetches per snapshot",
		},
		&cli.StringFlag{
			Name:  "placeholder",
			Usage: "Text stored for files that cannot be fetched or decoded",
		},
		&cli.StringSliceFlag{
			Name:  "include",
			Usage: "Glob patterns to include in snapshots (can be specified multiple times)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Glob patterns to exclude from snapshots (can be specified multiple times)",
		},
		&cli.BoolFlag{
			Name:  "skip-vendored",
			Usage: "Leave vendored and generated paths out of snapshots",
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Aliases: []string{"o"},
			Usage:   "Directory to write the JSON files to",
		},
		&cli.BoolFlag{
			Name:  "with-metadata",
			Usage: "Include author, date and URL in commit_messages.json",
		},
		&cli.BoolFlag{
			Name:  "skip-diffs",
			Usage: "Do not fetch diffs",
		},
		&cli.BoolFlag{
			Name:  "skip-snapshots",
			Usage: "Do not fetch file snapshots",
		},
	}
}

// parseLogLevel parses the log level flag.
func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s (expected debug, info, warn or error)", s)
	}
}

// parseSourceKind parses the source flag.
func parseSourceKind(s string) (config.SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "github", "gh":
		return config.SourceGitHub, nil
	case "local", "git":
		return config.SourceLocal, nil
	default:
		return "", fmt.Errorf("invalid source: %s (expected github or local)", s)
	}
}

// loadConfig layers the config file, the environment and the CLI flags over the defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.ApplyEnv()

	if c.IsSet("source") {
		kind, err := parseSourceKind(c.String("source"))
		if err != nil {
			return nil, err
		}
		cfg.Source.Kind = kind
	}
	if c.IsSet("repo") {
		cfg.Source.Repository = c.String("repo")
	}
	if c.IsSet("path") {
		cfg.Source.Path = c.String("path")
	}
	if c.IsSet("ref") {
		cfg.Source.Ref = c.String("ref")
	}
	if c.IsSet("base-url") {
		cfg.Source.BaseURL = c.String("base-url")
	}
	if c.IsSet("max-commits") {
		cfg.Collect.MaxCommits = c.Int("max-commits")
	}
	if c.IsSet("concurrency") {
		cfg.Collect.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("placeholder") {
		cfg.Collect.Placeholder = c.String("placeholder")
	}
	if c.IsSet("with-metadata") {
		cfg.Collect.IncludeMetadata = c.Bool("with-metadata")
	}
	if c.IsSet("skip-diffs") {
		cfg.Collect.SkipDiffs = c.Bool("skip-diffs")
	}
	if c.IsSet("skip-snapshots") {
		cfg.Collect.SkipSnapshots = c.Bool("skip-snapshots")
	}
	if c.IsSet("output-dir") {
		cfg.Output.Dir = c.String("output-dir")
	}

	// Apply filter overrides from CLI
	if includes := c.StringSlice("include"); len(includes) > 0 {
		cfg.Filters.Include = includes
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Filters.Exclude = excludes
	}
	if c.IsSet("skip-vendored") {
		cfg.Filters.SkipVendored = c.Bool("skip-vendored")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// defaultAction runs a collection with the configured defaults when no subcommand is given.
func defaultAction(c *cli.Context) error {
	if c.NArg() > 0 {
		return fmt.Errorf("unknown command %q", c.Args().First())
	}
	return collectAction(c)
}

// Run executes the CLI application.
func Run() {
	if err := App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
