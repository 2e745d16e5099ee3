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

// MuteSyncStatus reports the last mute refresh
type MuteSyncStatus struct {
	MutedStreams []int64   `json:"muted_streams"`
	FetchedAt    time.Time `json:"fetched_at,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	Failures     int64     `json:"failures"`
}

// MuteSyncService keeps the mute store in line with the account's
// subscriptions. It is the store's only writer.
type MuteSyncService struct {
	source   repo.SourceRepo
	store    *usecase.MuteStore
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastErr  error
	failures int64
}

// NewMuteSyncService creates a mute sync service polling every interval
func NewMuteSyncService(source repo.SourceRepo, store *usecase.MuteStore, interval time.Duration, log zerolog.Logger) *MuteSyncService {
	return &MuteSyncService{
		source:   source,
		store:    store,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Init resolves the relay's own user id and takes the first snapshot.
// Only the identity lookup is fatal.
func (s *MuteSyncService) Init(ctx context.Context) error {
	id, err := s.source.GetOwnUserID(ctx)
	if err != nil {
		return fmt.Errorf("resolve own user id: %w", err)
	}
	s.store.SetSelfID(id)
	s.log.Info().Int64("user_id", id).Msg("Resolved own user id")

	_ = s.Refresh(ctx)
	return nil
}

// Run refreshes the snapshot every interval until ctx is done
func (s *MuteSyncService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("Mute sync started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Mute sync stopped")
			return
		case <-ticker.C:
			_ = s.Refresh(ctx)
		}
	}
}

// Refresh fetches subscriptions and publishes a new snapshot. On failure the
// previous snapshot stays in place.
func (s *MuteSyncService) Refresh(ctx context.Context) error {
	subs, err := s.source.GetSubscriptions(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.failures++
		s.mu.Unlock()
		if ctx.Err() == nil {
			s.log.Warn().Err(err).Msg("Failed to refresh muted streams, keeping previous snapshot")
		}
		return err
	}

	var muted []int64
	for _, sub := range subs {
		if sub.IsMuted {
			muted = append(muted, sub.StreamID)
		}
	}
	snap := domain.NewMuteSnapshot(muted, nil, s.now())

	changed := !equalIDs(s.store.Current().StreamIDs(), snap.StreamIDs())
	s.store.Replace(snap)

	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()

	if changed {
		s.log.Info().Ints64("muted_streams", snap.StreamIDs()).Msg("Muted streams updated")
	}
	return nil
}

// Status returns the last refresh outcome
func (s *MuteSyncService) Status() MuteSyncStatus {
	snap := s.store.Current()
	st := MuteSyncStatus{
		MutedStreams: snap.StreamIDs(),
		FetchedAt:    snap.FetchedAt(),
	}
	s.mu.Lock()
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	st.Failures = s.failures
	s.mu.Unlock()
	return st
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
