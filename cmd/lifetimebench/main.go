// Command lifetimebench stress-tests lifetime creation and termination and
// prints pool statistics.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BinGo-Lab-Team/lifetime"
	"github.com/BinGo-Lab-Team/lifetime/internal/bench"
)

var cfg bench.Config

var rootCmd = &cobra.Command{
	Use:   "lifetimebench",
	Short: "Stress-test lifetime trees and report pool behaviour",
	Long: `lifetimebench repeatedly builds trees of nested lifetimes, attaches
cleanup actions to every node, and terminates each tree from its root.

It verifies that every attached action ran exactly once and reports how
often the process-wide action pool served new lifetimes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		lifetime.SetLogger(logger)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res, err := bench.Run(ctx, cfg)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			slog.Warn("run interrupted, results are partial")
		}
		bench.PrintReport(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	rootCmd.Flags().IntVar(&cfg.Depth, "depth", 3, "Levels of nesting below each tree root")
	rootCmd.Flags().IntVar(&cfg.Fanout, "fanout", 4, "Children per node")
	rootCmd.Flags().IntVarP(&cfg.Iterations, "iterations", "n", 1000, "Trees to build and terminate")
	rootCmd.Flags().IntVarP(&cfg.Workers, "workers", "w", 4, "Concurrent workers")
	rootCmd.Flags().IntVar(&cfg.Actions, "actions", 2, "Cleanup actions attached to every node")
	rootCmd.Flags().BoolVar(&cfg.Intersect, "intersect", false, "Link leaves to parent and grandparent via intersection")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
