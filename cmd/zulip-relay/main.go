package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/relaybridge/zulip-relay/internal/api"
	"github.com/relaybridge/zulip-relay/internal/biz/usecase"
	"github.com/relaybridge/zulip-relay/internal/conf"
	"github.com/relaybridge/zulip-relay/internal/data"
	"github.com/relaybridge/zulip-relay/internal/infra/zulip"
	relaymcp "github.com/relaybridge/zulip-relay/internal/mcp"
	"github.com/relaybridge/zulip-relay/internal/server"
	"github.com/relaybridge/zulip-relay/internal/service"
	"github.com/relaybridge/zulip-relay/mcpserver"
)

var Version = "dev"

const defaultAPIAddr = "127.0.0.1:9877"

func main() {
	// Load .env file; a missing file is fine
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "zulip-relay",
		Short:         "Forward Zulip messages that matter to a Telegram or Feishu chat",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRelay,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(paramsCmd())
	rootCmd.AddCommand(mcpCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the relay (default)",
		Args:  cobra.NoArgs,
		RunE:  runRelay,
	}
}

func paramsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Print the configuration parameters and validate them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := conf.LoadFromEnv()
			out := cmd.OutOrStdout()
			for _, p := range cfg.Params() {
				value := "not set"
				if p.Set {
					value = p.Value
				}
				fmt.Fprintf(out, "%-42s %s\n", p.Key, value)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return nil
		},
	}
}

func mcpCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools over stdio, backed by a running relay's status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// stdout belongs to the MCP transport
			srv := mcpserver.NewServer(relaymcp.NewClient(addr), Version)
			return srv.Run(ctx)
		},
	}

	def := os.Getenv("RELAY_API_ADDR")
	if def == "" {
		def = defaultAPIAddr
	}
	cmd.Flags().StringVar(&addr, "addr", def, "Relay status API address")
	return cmd
}

func runRelay(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := newLogger(cfg)
	log.Info().Str("version", Version).Str("destination", cfg.Destination).Msg("Starting Zulip relay")

	// Initialize clients
	zulipClient := zulip.NewClient(
		cfg.Zulip.Site,
		cfg.Zulip.Email,
		cfg.Zulip.APIKey,
		cfg.Zulip.RateLimitDelay,
		cfg.Zulip.RateLimitMaxDelay,
		zulip.WithLogger(componentLogger(log, "zulip")),
	)

	// Initialize repository layer
	repos, err := data.NewRepositories(cfg, zulipClient, log)
	if err != nil {
		return fmt.Errorf("failed to create repositories: %w", err)
	}
	defer repos.Close()

	zulipClient.SetObserver(service.NewRateLimitAlerter(
		repos.Notifier,
		cfg.Messages.RateLimit.Limited,
		cfg.Messages.RateLimit.Recovered,
		componentLogger(log, "alert"),
	))

	// Initialize usecase layer
	store := usecase.NewMuteStore()
	transformer := usecase.NewContentTransformer(cfg.Zulip.Site, cfg.Messages.ToLabels())
	silence := cfg.Silence.ToSilencePolicy()

	// Initialize service layer
	muteSvc := service.NewMuteSyncService(repos.Source, store, cfg.Zulip.MutePollInterval, componentLogger(log, "mute"))
	relaySvc := service.NewRelayService(repos.Source, repos.Notifier, repos.Cursor, store, transformer, service.RelayOptions{
		Self:              cfg.Zulip.Self(),
		IgnoreOwnMessages: cfg.Zulip.IgnoreOwnMessages,
		Silence:           silence,
		EventsWait:        cfg.Zulip.EventsTimeout,
		RetryDelay:        cfg.Zulip.PollRetryDelay,
	}, componentLogger(log, "relay"))

	statusSvc := service.NewStatusService(relaySvc, muteSvc, func() service.RateLimitStatus {
		st := zulipClient.State()
		return service.RateLimitStatus{Limited: st.Limited, Since: st.Since, LastDelay: st.LastDelay}
	}, silence)

	commandSvc := service.NewCommandService(destinationChatID(cfg), cfg.Params(), cfg.Messages.Commands, statusSvc, componentLogger(log, "commands"))

	var apiServer *api.Server
	if cfg.Relay.APIAddr != "" {
		apiServer = api.NewServer(statusSvc, cfg.Params(), cfg.Relay.APIAddr, componentLogger(log, "api"))
	}

	srv := server.NewRelayServer(muteSvc, relaySvc, commandSvc, repos.Commands, apiServer, componentLogger(log, "server"))

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Relay failed")
		return err
	}
	return nil
}

func newLogger(cfg *conf.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.Debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func componentLogger(log zerolog.Logger, component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

func destinationChatID(cfg *conf.Config) string {
	if cfg.Destination == conf.DestinationFeishu {
		return cfg.Feishu.ChatID
	}
	return strconv.FormatInt(cfg.Telegram.ChatID, 10)
}
