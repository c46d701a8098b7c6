package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

func OptionalStringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return strings.TrimSpace(value), nil
}

func OptionalBoolFlag(cmd *cobra.Command, name string) (bool, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return false, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

func OptionalIntFlag(cmd *cobra.Command, name string) (int, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return 0, nil
	}
	value, err := cmd.Flags().GetInt(name)
	if err != nil {
		return 0, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

func ParseOutputFormat(cmd *cobra.Command) (Format, error) {
	value, err := OptionalStringFlag(cmd, "format")
	if err != nil {
		return "", err
	}
	return ParseFormat(value)
}

// NewLogger builds the slog logger selected by --log-level and
// --log-format. Both default when the flags are absent.
func NewLogger(cmd *cobra.Command, w io.Writer) (*slog.Logger, error) {
	levelName, err := OptionalStringFlag(cmd, "log-level")
	if err != nil {
		return nil, err
	}
	if levelName == "" {
		levelName = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return nil, fmt.Errorf("unsupported log level %q (supported: debug, info, warn, error)", levelName)
	}

	formatName, err := OptionalStringFlag(cmd, "log-format")
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(formatName) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q (supported: text, json)", formatName)
	}
}

// runOptionsFromFlags reads the flags shared by generate, update and watch.
func runOptionsFromFlags(cmd *cobra.Command, args []string) (RunOptions, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	rootPath, err := resolveProjectRoot(path)
	if err != nil {
		return RunOptions{}, err
	}

	format, err := ParseOutputFormat(cmd)
	if err != nil {
		return RunOptions{}, err
	}
	outputPath, err := OptionalStringFlag(cmd, "output")
	if err != nil {
		return RunOptions{}, err
	}
	workers, err := OptionalIntFlag(cmd, "workers")
	if err != nil {
		return RunOptions{}, err
	}
	if workers < 0 {
		return RunOptions{}, fmt.Errorf("--workers must be >= 0, got %d", workers)
	}
	asJSON, err := OptionalBoolFlag(cmd, "json")
	if err != nil {
		return RunOptions{}, err
	}
	logger, err := NewLogger(cmd, cmd.ErrOrStderr())
	if err != nil {
		return RunOptions{}, err
	}

	return RunOptions{
		RootPath:   rootPath,
		Format:     format,
		OutputPath: outputPath,
		Workers:    workers,
		Logger:     logger,
		Progress:   !asJSON,
	}, nil
}
