// Package cli implements the webity command line.
package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/deicod/webity/internal/logging"
)

// Version is injected during build
var Version = "dev"

// options holds the persistent flags shared by every command
type options struct {
	logLevel  string
	logFormat string
	stdout    io.Writer
	stderr    io.Writer
}

func (o *options) logger(debug bool) *slog.Logger {
	cfg := logging.DefaultConfig()
	cfg.Output = o.stderr
	cfg.Color = logging.ShouldColor(o.stderr)
	cfg.Level = logging.ParseLevel(o.logLevel)
	cfg.Format = logging.ParseFormat(o.logFormat)
	if debug {
		cfg.Level = logging.LevelDebug
	}
	return logging.New(cfg)
}

// NewRootCommand builds the webity command tree writing to stdout and stderr
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "webity",
		Short: "webity renders component-based HTML pages",
		Long: `webity renders HTML templates composed of components. Templates embed
%{ expression }% directives and <script webity> blocks that import other
templates as components.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRenderCommand(opts),
		newRoutesCommand(opts),
		newServeCommand(opts),
	)
	return root
}

// Execute runs the command line with args
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
