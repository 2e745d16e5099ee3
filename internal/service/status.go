package service

import (
	"time"

	"github.com/relaybridge/zulip-relay/internal/biz/usecase"
)

// RateLimitStatus mirrors the source client's throttling state
type RateLimitStatus struct {
	Limited   bool          `json:"limited"`
	Since     time.Time     `json:"since,omitempty"`
	LastDelay time.Duration `json:"last_delay_ns"`
}

// Snapshot is the combined runtime state of the relay
type Snapshot struct {
	Time         time.Time       `json:"time"`
	Relay        RelayStatus     `json:"relay"`
	Mute         MuteSyncStatus  `json:"mute"`
	RateLimit    RateLimitStatus `json:"rate_limit"`
	SilentNow    bool            `json:"silent_now"`
	SilentWindow string          `json:"silent_window"`
}

// StatusService collects the state of the running components
type StatusService struct {
	relay     *RelayService
	mute      *MuteSyncService
	rateLimit func() RateLimitStatus
	silence   usecase.SilencePolicy
	now       func() time.Time
}

// NewStatusService creates a status collector. rateLimit may be nil.
func NewStatusService(relay *RelayService, mute *MuteSyncService, rateLimit func() RateLimitStatus, silence usecase.SilencePolicy) *StatusService {
	return &StatusService{
		relay:     relay,
		mute:      mute,
		rateLimit: rateLimit,
		silence:   silence,
		now:       time.Now,
	}
}

// Snapshot returns the current state
func (s *StatusService) Snapshot() Snapshot {
	now := s.now()
	snap := Snapshot{
		Time:         now,
		SilentNow:    s.silence.IsSilent(now),
		SilentWindow: s.silence.Window.String(),
	}
	if s.relay != nil {
		snap.Relay = s.relay.Status()
	}
	if s.mute != nil {
		snap.Mute = s.mute.Status()
	}
	if s.rateLimit != nil {
		snap.RateLimit = s.rateLimit()
	}
	return snap
}
