// Package commands implements the seasonplan command line.
package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vsinha/seasonplan/pkg/interfaces/cli/output"
)

type globalOptions struct {
	verbose bool
	format  string
}

// NewRootCommand builds the seasonplan command tree
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "seasonplan",
		Short: "Seasonal retail planning: demand, allocation, replenishment and markdown",
		Long: `seasonplan decomposes a category season forecast down to stores and weeks,
sizes the manufacturing order and initial shipments, and replays weekly actuals
through variance checks, replenishment cycles and the mid-season markdown review.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging on stderr")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", output.FormatText, "Output format: text, json")

	root.AddCommand(newPlanCommand(opts))
	root.AddCommand(newSimulateCommand(opts))
	return root
}

// Execute runs the command tree until completion or SIGINT/SIGTERM
func Execute(ctx context.Context, args []string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (o *globalOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
