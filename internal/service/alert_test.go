package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRateLimitAlerter(t *testing.T) {
	n := &fakeNotifier{}
	a := NewRateLimitAlerter(n, "limited!", "recovered!", zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Alerts still go out when the triggering call is being cancelled
	a.OnRateLimited(ctx)
	a.OnRecovered(context.Background())

	require.Equal(t, []sentMessage{
		{text: "limited!", silent: false},
		{text: "recovered!", silent: false},
	}, n.messages())
}

func TestRateLimitAlerterSendFailure(t *testing.T) {
	n := &fakeNotifier{failOn: "limited"}
	a := NewRateLimitAlerter(n, "limited!", "recovered!", zerolog.Nop())

	a.OnRateLimited(context.Background())
	require.Empty(t, n.messages())
}
