package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lex00/redash-aws-go/internal/config"
	"github.com/lex00/redash-aws-go/internal/policy"
)

// newWatchCmd creates the "watch" subcommand for rebuilding on config changes.
func newWatchCmd(opts *globalOptions) *cobra.Command {
	var (
		lintOnly     bool
		debounce     time.Duration
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the template when the configuration changes",
		Long: `Watch monitors the configuration file and rebuilds on every change.

The watch command:
- Monitors the configuration file's directory for writes to the file
- Runs the policy check on each change
- Rebuilds the template if the check passes (unless --lint-only)
- Debounces rapid changes to avoid excessive rebuilds

Examples:
    redash-aws watch -o template.json
    redash-aws watch --config prod.yaml --lint-only
    redash-aws watch --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, opts, cmd.OutOrStdout(), watchOptions{
				lintOnly:     lintOnly,
				debounce:     debounce,
				outputFormat: outputFormat,
				outputFile:   outputFile,
			})
		},
	}

	cmd.Flags().BoolVar(&lintOnly, "lint-only", false, "Only run the policy check, skip build")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format for build: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file for build (default: stdout)")

	return cmd
}

type watchOptions struct {
	lintOnly     bool
	debounce     time.Duration
	outputFormat string
	outputFile   string
}

// runWatch watches the configuration file until ctx is done.
func runWatch(ctx context.Context, opts *globalOptions, w io.Writer, wopts watchOptions) error {
	path := opts.configPath
	if path == "" {
		path = config.DefaultFile
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	// Editors replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	fmt.Fprintf(w, "Watching: %s\n", abs)

	fmt.Fprintln(w, "Running initial lint/build...")
	runLintAndBuild(ctx, opts, w, wopts)

	fmt.Fprintln(w, "\nWatching for changes... (Ctrl+C to stop)")
	return watchLoop(ctx, watcher.Events, watcher.Errors, abs, wopts.debounce, func() {
		fmt.Fprintf(w, "\n[%s] Change detected, rebuilding...\n", time.Now().Format("15:04:05"))
		runLintAndBuild(ctx, opts, w, wopts)
	})
}

// watchLoop calls rebuild once per burst of changes to path.
func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, path string, debounce time.Duration, rebuild func()) error {
	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			rebuild()

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			zerolog.Ctx(ctx).Warn().Err(err).Msg("watch error")

		case <-ctx.Done():
			return nil
		}
	}
}

// runLintAndBuild checks and rebuilds the template, reporting failures
// without stopping the watch.
func runLintAndBuild(ctx context.Context, opts *globalOptions, w io.Writer, wopts watchOptions) {
	r, t, err := opts.buildTemplate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
		return
	}

	checked := policy.Check(t, lintOptions(r))
	for _, issue := range policy.LintIssues(checked.Issues) {
		fmt.Fprintf(w, "%s: %s [%s] %s\n", issue.Resource, issue.Severity, issue.Rule, issue.Message)
	}
	if !checked.Success {
		fmt.Fprintln(w, "Lint failed, skipping build.")
		return
	}
	if wopts.lintOnly {
		fmt.Fprintln(w, "Lint passed.")
		return
	}

	if err := writeTemplate(w, t, wopts.outputFormat, wopts.outputFile); err != nil {
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
	}
}
