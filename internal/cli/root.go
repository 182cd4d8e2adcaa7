// Package cli defines the wirechat command tree.
package cli

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat/internal/app"
	"github.com/vovakirdan/wirechat/internal/config"
	"github.com/vovakirdan/wirechat/internal/log"
)

type rootFlags struct {
	configPath string
	overrides  config.Config
}

// NewRootCmd builds the `wirechat` command with `serve` and `chat`.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "wirechat",
		Short:         "Multi-room chat server and terminal client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&flags.overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error, off)")

	root.AddCommand(newServeCmd(flags), newChatCmd(flags))
	return root
}

// Execute runs the command tree with args.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// load resolves configuration and builds the process logger.
func (f *rootFlags) load() (*config.Config, *zerolog.Logger, error) {
	boot := log.New("info", os.Stderr)
	cfg, path, err := config.Load(boot, f.configPath)
	if err != nil {
		return nil, nil, err
	}
	cfg.UpdateFrom(f.overrides)

	logger := log.New(cfg.LogLevel, os.Stderr)
	logger.Debug().Str("config", path).Msg("configuration loaded")
	return &cfg, logger, nil
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference chat server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			srv, err := app.NewServer(cfg, logger)
			if err != nil {
				return err
			}
			logger.Info().Str("addr", cfg.Server.Addr).Msg("starting wirechat server")
			if err := srv.Run(cmd.Context()); err != nil {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
	s := &flags.overrides.Server
	cmd.Flags().StringVar(&s.Addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&s.DatabasePath, "db", "", "SQLite database path")
	cmd.Flags().IntVar(&s.HistoryLimit, "history-limit", 0, "messages returned by /history")
	cmd.Flags().DurationVar(&s.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	return cmd
}

func newChatCmd(flags *rootFlags) *cobra.Command {
	var noColor bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Join the chat from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			client, err := app.NewClient(cfg, logger, app.ClientOptions{
				In:    cmd.InOrStdin(),
				Out:   cmd.OutOrStdout(),
				Color: !noColor,
			})
			if err != nil {
				return err
			}
			return client.Run(cmd.Context())
		},
	}
	c := &flags.overrides.Client
	cmd.Flags().StringVar(&c.ServerURL, "server", "", "server base URL, e.g. http://localhost:8080")
	cmd.Flags().StringVarP(&c.User, "user", "u", "", "display name")
	cmd.Flags().StringVarP(&c.DefaultRoom, "room", "r", "", "room to join first")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}
