package usecase

import (
	"time"

	"github.com/relaybridge/zulip-relay/internal/biz/domain"
)

// SilencePolicy decides whether a forwarded message is delivered without an alert
type SilencePolicy struct {
	Window      domain.SilentWindow
	ForceSilent bool
	ForceAlarm  bool // wins over both the window and ForceSilent
}

// IsSilent reports whether a message sent at now should be silent
func (p SilencePolicy) IsSilent(now time.Time) bool {
	if p.ForceAlarm {
		return false
	}
	return p.ForceSilent || p.Window.Contains(now)
}
