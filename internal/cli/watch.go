package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/morozRed/ustgen/internal/parser"
	"github.com/morozRed/ustgen/internal/watch"
)

// RunWatch runs an incremental build, then rebuilds whenever a supported
// file changes until interrupted.
func RunWatch(cmd *cobra.Command, args []string) error {
	opts, err := runOptionsFromFlags(cmd, args)
	if err != nil {
		return err
	}
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return err
	}
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		debounce = watch.DefaultDebounce
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Watch(ctx, opts, debounce, func(summary RunSummary) error {
		return PrintRunSummary(cmd.OutOrStdout(), summary, asJSON)
	})
}

// Watch keeps one session open for the lifetime of ctx and reports every
// build through report.
func Watch(ctx context.Context, opts RunOptions, debounce time.Duration, report func(RunSummary) error) error {
	session, err := OpenSession(opts)
	if err != nil {
		return err
	}
	defer session.Close()

	summary, err := session.Build(ctx, "watch", true)
	if err != nil {
		return err
	}
	if err := report(summary); err != nil {
		return err
	}

	matcher, err := parser.Matcher(opts.RootPath, session.Config())
	if err != nil {
		return err
	}
	registry := session.Registry()
	w, err := watch.New(opts.RootPath, matcher, watch.Options{
		Accept: func(rel string) bool {
			_, ok := registry.GetParserForFile(rel)
			return ok
		},
		Debounce: debounce,
		Logger:   session.logger,
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	err = w.Run(ctx, func(ctx context.Context, files []string) error {
		session.logger.Info("rebuilding", slog.Int("files", len(files)), slog.Any("changed", files))
		summary, err := session.Build(ctx, "watch", true)
		if err != nil {
			return err
		}
		return report(summary)
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, watch.ErrStopped) {
		return nil
	}
	return err
}
