package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"
	"github.com/wrhall/graphql-search"
	"github.com/wrhall/graphql-search/internal/config"
)

var (
	flagFormat      string
	flagConfig      string
	flagVerbose     int
	flagCache       string
	flagWorkers     int
	flagNoParallel  bool
	flagSyntaxAware bool
	flagGitignore   bool
	flagIgnore      []string
	flagInclude     []string
	flagTimeout     time.Duration
	flagProgress    bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gqlsearch <field.path> [dir]",
	Short: "Find source files whose embedded GraphQL queries select a field path",
	Long: `Scans dir (default: the current directory) for GraphQL snippets embedded with
graphql(` + "`...`" + `) or gql` + "`...`" + ` and prints every file where a query selects the
given dotted field path, e.g. user.profile.email.

Settings are read from .gqlsearch.yml in dir (or --config) and GQLSEARCH_*
environment variables; flags take precedence.`,
	Args:          cobra.RangeArgs(1, 2),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	RunE: runSearch,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flagFormat, "format", "text", "output format: json|text")
	f.StringVar(&flagConfig, "config", "", "config file (default: .gqlsearch.yml in dir)")
	f.CountVarP(&flagVerbose, "verbose", "v", "report unparsable snippets on stderr (-vv for debug logging)")
	f.StringVar(&flagCache, "cache", "", "SQLite result cache path, relative paths resolve against the repo root")
	f.IntVar(&flagWorkers, "workers", 0, "worker count (default: one per CPU)")
	f.BoolVar(&flagNoParallel, "no-parallel", false, "search files one at a time")
	f.BoolVar(&flagSyntaxAware, "syntax-aware", false, "use a tree-sitter parse for JavaScript and TypeScript files")
	f.BoolVar(&flagGitignore, "gitignore", false, "list files with git ls-files, respecting .gitignore")
	f.StringSliceVar(&flagIgnore, "ignore", nil, "glob of paths to skip, relative to dir, added to the configured ones (repeatable)")
	f.StringSliceVar(&flagInclude, "include", nil, "glob of paths to search, relative to dir, added to the configured ones (repeatable)")
	f.DurationVar(&flagTimeout, "timeout", 0, "stop after this long and print partial results")
	f.BoolVar(&flagProgress, "progress", false, "show a progress bar on stderr")
}

const commandName = "search"

func runSearch(cmd *cobra.Command, args []string) error {
	start := time.Now()
	fieldPath := args[0]

	// Reject a bad path before touching the filesystem.
	if _, err := gqlsearch.ParsePath(fieldPath); err != nil {
		return outputError(commandName, fmt.Errorf("invalid field path: %w", err))
	}

	targetDir, err := resolveTargetDir(args[1:])
	if err != nil {
		return outputError(commandName, err)
	}

	cfg, err := config.NewLoader(targetDir, flagConfig).Load()
	if err != nil {
		return outputError(commandName, err)
	}
	applyFlags(cmd, cfg)
	if err := config.Validate(cfg); err != nil {
		return outputError(commandName, err)
	}

	logger := newLogger(flagVerbose)
	opts, err := engineOptions(cfg, targetDir, logger)
	if err != nil {
		return outputError(commandName, err)
	}

	var progress *progressReporter
	if flagProgress {
		progress = newProgressReporter(os.Stderr)
		opts = append(opts, gqlsearch.WithProgress(progress.Update))
	}

	engine, err := gqlsearch.New(fieldPath, opts...)
	if err != nil {
		return outputError(commandName, fmt.Errorf("creating engine: %w", err))
	}
	defer engine.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	// Search the directory as given so reported paths stay relative to it.
	report, searchErr := engine.SearchDirectory(ctx, searchRoot(args[1:]))
	progress.Finish()
	if report == nil {
		return outputError(commandName, fmt.Errorf("searching: %w", searchErr))
	}

	logger.Debug("search finished",
		"dir", targetDir,
		"files", report.FilesScanned,
		"matches", len(report.Matches),
		"cache_hits", report.CacheHits,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	// Partial results are still printed when the search was cut short.
	result := reportToCLI(report)
	if searchErr != nil {
		if errors.Is(searchErr, context.DeadlineExceeded) {
			searchErr = fmt.Errorf("timed out after %s, results are partial", cfg.Timeout)
		}
		result.Error = searchErr.Error()
	}
	if err := outputResult(result); err != nil {
		return err
	}
	if searchErr != nil && flagFormat == "json" {
		// Already reported in the envelope.
		errorHandled = true
	}
	return searchErr
}

// applyFlags overrides config values with the flags given on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = flagWorkers
	}
	if flags.Changed("no-parallel") {
		cfg.Parallel = !flagNoParallel
	}
	if flags.Changed("syntax-aware") {
		cfg.SyntaxAware = flagSyntaxAware
	}
	if flags.Changed("gitignore") {
		cfg.Gitignore = flagGitignore
	}
	if flags.Changed("cache") {
		cfg.Cache = flagCache
	}
	if flags.Changed("timeout") {
		cfg.Timeout = flagTimeout
	}
	if flags.Changed("ignore") {
		cfg.Ignore = append(cfg.Ignore, flagIgnore...)
	}
	if flags.Changed("include") {
		cfg.Include = append(cfg.Include, flagInclude...)
	}
}

// engineOptions translates the merged configuration into Engine options.
func engineOptions(cfg *config.Config, targetDir string, logger *slog.Logger) ([]gqlsearch.Option, error) {
	opts := []gqlsearch.Option{
		gqlsearch.WithLogger(logger),
		gqlsearch.WithParallel(cfg.Parallel),
		gqlsearch.WithWorkers(cfg.Workers),
		gqlsearch.WithSyntaxAware(cfg.SyntaxAware),
		gqlsearch.WithGitignore(cfg.Gitignore),
		gqlsearch.WithIgnore(cfg.Ignore...),
		gqlsearch.WithInclude(cfg.Include...),
	}
	if cfg.Cache != "" {
		dbPath := resolveCachePath(findRepoRoot(targetDir), cfg.Cache)
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
		opts = append(opts, gqlsearch.WithCache(dbPath))
		// Keep the cache database and its WAL files out of the search.
		if rel, err := filepath.Rel(targetDir, dbPath); err == nil && !strings.HasPrefix(rel, "..") {
			opts = append(opts, gqlsearch.WithIgnore(glob.QuoteMeta(filepath.ToSlash(rel))+"*"))
		}
	}
	return opts, nil
}

// newLogger returns a stderr logger. Diagnostics for unparsable snippets are
// logged at Info, so they show from -v on.
func newLogger(verbosity int) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolveTargetDir returns the absolute path of the directory to search.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// searchRoot returns the directory argument as the user wrote it, cleaned.
func searchRoot(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return filepath.Clean(args[0])
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveCachePath makes a relative cache path absolute against the repo root.
func resolveCachePath(repoRoot, cache string) string {
	if filepath.IsAbs(cache) {
		return cache
	}
	return filepath.Join(repoRoot, cache)
}
