package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/relaybridge/zulip-relay/internal/biz/domain"
	"github.com/relaybridge/zulip-relay/internal/biz/repo"
	"github.com/relaybridge/zulip-relay/internal/biz/usecase"
	"github.com/rs/zerolog"
)

// RelayState is the event loop state
type RelayState string

const (
	RelayStateRegistering RelayState = "registering"
	RelayStatePolling     RelayState = "polling"
	RelayStateStopped     RelayState = "stopped"
)

// RelayOptions configures the relay loop
type RelayOptions struct {
	Self              usecase.Identity
	IgnoreOwnMessages bool
	Silence           usecase.SilencePolicy
	EventsWait        time.Duration // server-side long-poll wait
	RetryDelay        time.Duration // pause after a failed poll
}

// RelayStatus is a point-in-time view of the relay loop
type RelayStatus struct {
	State         RelayState `json:"state"`
	QueueID       string     `json:"queue_id"`
	LastEventID   int64      `json:"last_event_id"`
	Registrations int        `json:"registrations"`
	EventsSeen    int64      `json:"events_seen"`
	MessagesSeen  int64      `json:"messages_seen"`
	Forwarded     int64      `json:"forwarded"`
	Suppressed    int64      `json:"suppressed"`
	ForwardErrors int64      `json:"forward_errors"`
	PollErrors    int64      `json:"poll_errors"`
	LastForwardAt time.Time  `json:"last_forward_at,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
}

// RelayService long-polls the source event queue and forwards the messages
// that pass the notification policy
type RelayService struct {
	source      repo.SourceRepo
	notifier    repo.Notifier
	cursors     repo.CursorRepo // optional
	mutes       *usecase.MuteStore
	transformer *usecase.ContentTransformer
	opts        RelayOptions
	log         zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	mu     sync.RWMutex
	cursor domain.Cursor
	status RelayStatus
}

// NewRelayService creates the relay loop. cursors may be nil.
func NewRelayService(
	source repo.SourceRepo,
	notifier repo.Notifier,
	cursors repo.CursorRepo,
	mutes *usecase.MuteStore,
	transformer *usecase.ContentTransformer,
	opts RelayOptions,
	log zerolog.Logger,
) *RelayService {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 3 * time.Second
	}
	return &RelayService{
		source:      source,
		notifier:    notifier,
		cursors:     cursors,
		mutes:       mutes,
		transformer: transformer,
		opts:        opts,
		log:         log,
		sleep:       sleepContext,
		now:         time.Now,
		status:      RelayStatus{State: RelayStateRegistering},
	}
}

// Run registers (or resumes) a queue and polls it until ctx is done.
// Only a failed registration is returned as an error.
func (s *RelayService) Run(ctx context.Context) error {
	s.mu.Lock()
	s.status.StartedAt = s.now()
	s.mu.Unlock()
	defer s.setState(RelayStateStopped)

	cursor, err := s.initialCursor(ctx)
	if err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		events, err := s.source.GetEvents(ctx, cursor, s.opts.EventsWait)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if s.source.IsQueueExpired(err) {
				s.log.Warn().Str("queue_id", cursor.QueueID).Msg("Event queue expired, registering a new one")
				s.forgetCursor(ctx)
				if cursor, err = s.register(ctx); err != nil {
					return err
				}
				continue
			}

			s.mu.Lock()
			s.status.PollErrors++
			s.mu.Unlock()
			s.log.Error().Err(err).Dur("retry_in", s.opts.RetryDelay).Msg("Polling events failed")
			if err := s.sleep(ctx, s.opts.RetryDelay); err != nil {
				return nil
			}
			continue
		}

		for _, ev := range events {
			s.handleEvent(ctx, ev)
			cursor = cursor.Advance(ev.ID)
			s.commitCursor(ctx, cursor)
		}
	}
}

// initialCursor resumes a stored queue when one exists, otherwise registers.
// A stale stored queue is detected by the first poll.
func (s *RelayService) initialCursor(ctx context.Context) (domain.Cursor, error) {
	if s.cursors != nil {
		stored, err := s.cursors.Load(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to load stored cursor, registering a new queue")
		} else if !stored.IsZero() {
			s.log.Info().
				Str("queue_id", stored.QueueID).
				Int64("last_event_id", stored.LastEventID).
				Msg("Resuming stored event queue")
			s.setCursor(stored)
			s.setState(RelayStatePolling)
			return stored, nil
		}
	}
	return s.register(ctx)
}

// forgetCursor drops a stored queue the server no longer knows, so a
// restart after a failed registration does not resume it
func (s *RelayService) forgetCursor(ctx context.Context) {
	if s.cursors == nil {
		return
	}
	if err := s.cursors.Clear(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to clear stored cursor")
	}
}

func (s *RelayService) register(ctx context.Context) (domain.Cursor, error) {
	s.setState(RelayStateRegistering)

	cursor, err := s.source.Register(ctx)
	if err != nil {
		return domain.Cursor{}, fmt.Errorf("register event queue: %w", err)
	}

	s.log.Info().
		Str("queue_id", cursor.QueueID).
		Int64("last_event_id", cursor.LastEventID).
		Msg("Registered event queue")

	s.mu.Lock()
	s.status.Registrations++
	s.mu.Unlock()

	s.commitCursor(ctx, cursor)
	s.setState(RelayStatePolling)
	return cursor, nil
}

func (s *RelayService) handleEvent(ctx context.Context, ev domain.Event) {
	s.mu.Lock()
	s.status.EventsSeen++
	if ev.Message != nil {
		s.status.MessagesSeen++
	}
	s.mu.Unlock()

	if ev.Type != domain.EventTypeMessage || ev.Message == nil {
		return
	}
	s.forward(ctx, ev.Message)
}

// forward runs one message through the policy, transformer and notifier.
// A failed send is logged and counted; the event is not retried.
func (s *RelayService) forward(ctx context.Context, msg *domain.Message) {
	self := s.opts.Self
	self.UserID = s.mutes.SelfID()

	decision := usecase.Decide(msg, s.mutes.Current(), self, s.opts.IgnoreOwnMessages)
	if !decision.Forward {
		s.mu.Lock()
		s.status.Suppressed++
		s.mu.Unlock()
		s.log.Debug().Int64("message_id", msg.ID).Str("reason", decision.Reason).Msg("Message suppressed")
		return
	}

	text := s.transformer.Preview(msg)
	silent := s.opts.Silence.IsSilent(s.now())

	if err := s.notifier.Send(ctx, text, silent); err != nil {
		s.mu.Lock()
		s.status.ForwardErrors++
		s.mu.Unlock()
		s.log.Error().Err(err).Int64("message_id", msg.ID).Msg("Failed to forward message")
		return
	}

	s.mu.Lock()
	s.status.Forwarded++
	s.status.LastForwardAt = s.now()
	s.mu.Unlock()
	s.log.Info().
		Int64("message_id", msg.ID).
		Str("reason", decision.Reason).
		Bool("silent", silent).
		Msg("Message forwarded")
}

func (s *RelayService) commitCursor(ctx context.Context, cursor domain.Cursor) {
	s.setCursor(cursor)
	if s.cursors == nil {
		return
	}
	if err := s.cursors.Save(ctx, cursor); err != nil {
		s.log.Warn().Err(err).Msg("Failed to persist cursor")
	}
}

func (s *RelayService) setCursor(cursor domain.Cursor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = cursor
	s.status.QueueID = cursor.QueueID
	s.status.LastEventID = cursor.LastEventID
}

func (s *RelayService) setState(state RelayState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = state
}

// Cursor returns the current queue position
func (s *RelayService) Cursor() domain.Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// Status returns a copy of the loop status
func (s *RelayService) Status() RelayStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
