// Command smoke drives a running marketintel server with random screener
// queries and checks every response for consistency.
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mdaly0277/marketintel/internal/smoke"
	"github.com/mdaly0277/marketintel/pkg/logger"
)

// defaultWorkers is a multiplier for runtime.NumCPU().
const defaultWorkers = 2

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	config := &smoke.Config{}
	var logLevel string

	cmd := &cobra.Command{
		Use:          "smoke",
		Short:        "Smoke test a running marketintel server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return err
			}
			if err := logger.SetLevelString(logLevel); err != nil {
				return err
			}
			if config.Verbose {
				_ = logger.SetLevelString("debug")
			}
			_, err := smoke.Run(cmd.Context(), config)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&config.BaseURL, "url", smoke.DefaultBaseURL, "base URL of the service")
	f.IntVar(&config.NumQueries, "queries", smoke.DefaultNumQueries, "number of screener queries")
	f.IntVar(&config.Workers, "workers", runtime.NumCPU()*defaultWorkers, "concurrent requests")
	f.DurationVar(&config.Timeout, "timeout", smoke.DefaultTimeout, "HTTP request timeout")
	f.DurationVar(&config.ReadyWait, "ready-wait", smoke.DefaultReadyWait, "how long to wait for a dataset")
	f.BoolVar(&config.Favorites, "favorites", true, "check the favorites round trip")
	f.BoolVar(&config.Export, "export", true, "check the CSV export")
	f.StringVar(&config.ReportFile, "report", "", "write a JSON report to this file")
	f.Uint64Var(&config.Seed, "seed", 0, "query generator seed (0 picks one)")
	f.BoolVar(&config.Verbose, "verbose", false, "log every query")
	f.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	return cmd
}
