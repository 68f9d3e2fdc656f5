package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sophialabs/mockdeck/internal/app"
)

// Set via -ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

func main() {
	ctx := context.Background()

	cfg := app.DefaultConfig()
	if err := cfg.ApplyEnv(ctx, nil); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd(&cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the CLI. Flag defaults come from cfg, so explicit flags
// take precedence over the environment.
func newRootCmd(cfg *app.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "mockdeck",
		Short:         "mockdeck serves programmable HTTP mocks from a directory of YAML definitions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfg.RootDir, "root", cfg.RootDir, "catalog root directory")
	root.PersistentFlags().StringVar(&cfg.DefinitionGlob, "glob", cfg.DefinitionGlob, "definition file glob relative to the root (default **/*.{yaml,yml})")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text, json)")

	root.AddCommand(newServeCmd(cfg), newValidateCmd(cfg), newVersionCmd())
	return root
}

func newServeCmd(cfg *app.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the mock server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.NewWithOutput(*cfg, cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			return a.Run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	f.StringVar(&cfg.RoutePrefix, "prefix", cfg.RoutePrefix, "path prefix stripped before matching")
	f.IntVar(&cfg.TraceSize, "trace-size", cfg.TraceSize, "number of request outcomes to keep")
	f.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", cfg.MaxBodyBytes, "maximum request body size")
	f.IntVar(&cfg.MaxLoopIterations, "max-loop-iterations", cfg.MaxLoopIterations, "iteration cap for template loops")
	f.Float64Var(&cfg.AdminRate, "admin-rate", cfg.AdminRate, "admin API requests per second per client (0 disables)")
	f.IntVar(&cfg.AdminBurst, "admin-burst", cfg.AdminBurst, "admin API burst size")
	f.BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload the catalog when files change")
	f.DurationVar(&cfg.WatcherDebounce, "watch-debounce", cfg.WatcherDebounce, "quiet period before a reload")
	f.UintVar(&cfg.ReloadAttempts, "reload-attempts", cfg.ReloadAttempts, "attempts for a failing reload")
	f.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown timeout")
	return cmd
}

func newValidateCmd(cfg *app.Config) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load the catalog once and report errors without serving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logs := io.Discard
			if verbose {
				logs = cmd.ErrOrStderr()
			}
			n, err := app.Check(cmd.Context(), *cfg, logs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog ok: %d definitions\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print load warnings")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mockdeck %s (%s)\n", Version, Commit)
		},
	}
}
