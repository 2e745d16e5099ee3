package service

import (
	"testing"
	"time"

	"github.com/relaybridge/zulip-relay/internal/biz/domain"
	"github.com/relaybridge/zulip-relay/internal/biz/usecase"
	"github.com/stretchr/testify/require"
)

func TestStatusSnapshot(t *testing.T) {
	from, err := domain.ParseTimeOfDay("22:00")
	require.NoError(t, err)
	to, err := domain.ParseTimeOfDay("08:00")
	require.NoError(t, err)

	policy := usecase.SilencePolicy{Window: domain.SilentWindow{From: from, To: to}}
	svc := NewStatusService(nil, nil, func() RateLimitStatus {
		return RateLimitStatus{Limited: true, LastDelay: 5 * time.Second}
	}, policy)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 23, 0, 0, 0, time.Local) }

	snap := svc.Snapshot()
	require.True(t, snap.SilentNow)
	require.Equal(t, "22:00-08:00", snap.SilentWindow)
	require.True(t, snap.RateLimit.Limited)
	require.Equal(t, RelayStatus{}, snap.Relay)
}
