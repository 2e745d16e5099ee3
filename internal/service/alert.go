package service

import (
	"context"
	"time"

	"github.com/relaybridge/zulip-relay/internal/biz/repo"
	"github.com/rs/zerolog"
)

const alertSendTimeout = 15 * time.Second

// RateLimitAlerter posts the throttling transition messages to the
// destination chat. It satisfies the Zulip client's observer interface.
type RateLimitAlerter struct {
	notifier  repo.Notifier
	limited   string
	recovered string
	log       zerolog.Logger
}

// NewRateLimitAlerter creates an alerter with the given texts
func NewRateLimitAlerter(notifier repo.Notifier, limited, recovered string, log zerolog.Logger) *RateLimitAlerter {
	return &RateLimitAlerter{
		notifier:  notifier,
		limited:   limited,
		recovered: recovered,
		log:       log,
	}
}

// OnRateLimited is called once when the source API starts throttling
func (a *RateLimitAlerter) OnRateLimited(ctx context.Context) {
	a.send(ctx, a.limited, "limited")
}

// OnRecovered is called once when requests go through again
func (a *RateLimitAlerter) OnRecovered(ctx context.Context) {
	a.send(ctx, a.recovered, "recovered")
}

// send always alerts loudly. The caller's context may be about to end, so
// the send gets its own deadline.
func (a *RateLimitAlerter) send(ctx context.Context, text, edge string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertSendTimeout)
	defer cancel()

	if err := a.notifier.Send(ctx, text, false); err != nil {
		a.log.Error().Err(err).Str("edge", edge).Msg("Failed to send rate limit alert")
		return
	}
	a.log.Info().Str("edge", edge).Msg("Rate limit alert sent")
}
