package server

import (
	"context"
	"time"

	"github.com/relaybridge/zulip-relay/internal/api"
	"github.com/relaybridge/zulip-relay/internal/biz/repo"
	"github.com/relaybridge/zulip-relay/internal/service"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// RelayServer runs the relay's concurrent loops: mute sync, event relay,
// destination commands and the optional status API
type RelayServer struct {
	mute          *service.MuteSyncService
	relay         *service.RelayService
	commands      *service.CommandService
	commandSource repo.CommandSource // optional
	apiServer     *api.Server        // optional
	log           zerolog.Logger
}

// NewRelayServer creates a new relay server
func NewRelayServer(
	mute *service.MuteSyncService,
	relay *service.RelayService,
	commands *service.CommandService,
	commandSource repo.CommandSource,
	apiServer *api.Server,
	log zerolog.Logger,
) *RelayServer {
	return &RelayServer{
		mute:          mute,
		relay:         relay,
		commands:      commands,
		commandSource: commandSource,
		apiServer:     apiServer,
		log:           log,
	}
}

// Run resolves the relay identity, then runs every loop until ctx is done
// or the relay loop fails. Startup failures are returned before any loop
// starts.
func (s *RelayServer) Run(ctx context.Context) error {
	if err := s.mute.Init(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.mute.Run(ctx)
		return nil
	})

	g.Go(func() error {
		return s.relay.Run(ctx)
	})

	if s.commands != nil && s.commandSource != nil {
		g.Go(func() error {
			// A failed command listener leaves the relay running
			if err := s.commands.Run(ctx, s.commandSource); err != nil {
				s.log.Error().Err(err).Msg("Command listener stopped")
			}
			return nil
		})
	}

	if s.apiServer != nil {
		g.Go(func() error {
			if err := s.apiServer.Start(); err != nil {
				s.log.Error().Err(err).Str("addr", s.apiServer.Addr()).Msg("Status API stopped")
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return s.apiServer.Stop(stopCtx)
		})
	}

	s.log.Info().Msg("Relay running")
	err := g.Wait()
	s.log.Info().Msg("Relay stopped")
	return err
}
