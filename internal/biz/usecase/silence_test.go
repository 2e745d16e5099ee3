package usecase

import (
	"testing"
	"time"

	"github.com/relaybridge/zulip-relay/internal/biz/domain"
	"github.com/stretchr/testify/require"
)

func TestSilencePolicy(t *testing.T) {
	window := domain.SilentWindow{From: 22 * 60, To: 8 * 60}
	night := time.Date(2026, 1, 2, 23, 0, 0, 0, time.Local)
	noon := time.Date(2026, 1, 2, 12, 0, 0, 0, time.Local)

	tests := []struct {
		name   string
		policy SilencePolicy
		at     time.Time
		want   bool
	}{
		{"inside window", SilencePolicy{Window: window}, night, true},
		{"outside window", SilencePolicy{Window: window}, noon, false},
		{"force silent", SilencePolicy{Window: window, ForceSilent: true}, noon, true},
		{"force alarm beats window", SilencePolicy{Window: window, ForceAlarm: true}, night, false},
		{"force alarm beats force silent", SilencePolicy{Window: window, ForceSilent: true, ForceAlarm: true}, noon, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.policy.IsSilent(tt.at))
		})
	}
}
