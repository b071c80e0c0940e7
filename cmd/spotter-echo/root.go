package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/snowmerak/spotter.go/lib/plugin"
	"github.com/snowmerak/spotter.go/lib/protocol"
)

type rootFlags struct {
	cfg      plugin.Config
	logLevel string
}

// NewRootCommand builds the spotter-echo command tree.
func NewRootCommand(version, commit, date string) *cobra.Command {
	flags := rootFlags{cfg: plugin.DefaultConfig()}

	rootCmd := &cobra.Command{
		Use:   "spotter-echo",
		Short: "Example Spotter plugin that echoes queries",
		Long: `spotter-echo connects to a running Spotter host and answers every query
with an echo of the text and an upper-casing sub-query.

The host normally starts it with the port and connection id to use:
  spotter-echo --port 4040 --connection-id 3`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEcho(cmd, flags)
		},
	}

	f := rootCmd.Flags()
	f.StringVar(&flags.cfg.Host, "host", flags.cfg.Host, "host to connect to")
	f.IntVarP(&flags.cfg.Port, "port", "p", flags.cfg.Port, "host port")
	f.StringVar(&flags.cfg.Path, "path", flags.cfg.Path, "WebSocket path on the host")
	f.StringVar(&flags.cfg.ConnectionID, "connection-id", "", "connection id assigned by the host")
	f.IntVar(&flags.cfg.RetryAttempts, "retry", 0, "extra connection attempts after the first failure")
	f.DurationVar(&flags.cfg.RetryDelay, "retry-delay", flags.cfg.RetryDelay, "delay between connection attempts")
	f.BoolVar(&flags.cfg.ResetOnQuery, "reset-on-query", false, "invalidate option ids from earlier menus on every new query")
	f.StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newSchemaCommand())

	return rootCmd
}

func runEcho(cmd *cobra.Command, flags rootFlags) error {
	logger, err := newLogger(flags.logLevel)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	module, err := plugin.New(newEchoPlugin(logger), flags.cfg, plugin.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create plugin: %w", err)
	}

	if err := module.Listen(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler), nil
}

func newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of every protocol message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := protocol.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}
