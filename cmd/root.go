// Package cmd defines and implements the CLI commands for the minerva
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Tifany-Devil/Billboard-Minerva/internal/config"
	"github.com/Tifany-Devil/Billboard-Minerva/internal/logging"
	"github.com/Tifany-Devil/Billboard-Minerva/internal/metrics"
)

var cfgFile string

// Runtime carries the loaded configuration and logger to subcommands.
type Runtime struct {
	Cfg    config.Config
	Logger *zap.Logger
}

type runtimeKey struct{}

// newRuntime is a factory variable so tests can inject a stub.
var newRuntime = func() (*Runtime, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	metrics.Init()
	return &Runtime{Cfg: cfg, Logger: logger}, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "minerva",
		Short: "Billboard Hot 100 retrieval with playable-link resolution",
		Long: `minerva fetches a weekly Billboard Hot 100 chart, extracts its
ranked entries from structured data (with a markup fallback), and
resolves each track to a playable Spotify link without the Spotify API.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, rt))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(runtimeKey{}).(*Runtime); ok && rt != nil {
				_ = rt.Logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")

	cmd.AddCommand(newChartCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func resolveRuntime(ctx context.Context) (*Runtime, error) {
	rt, ok := ctx.Value(runtimeKey{}).(*Runtime)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
