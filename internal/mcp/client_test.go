package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/relaybridge/zulip-relay/internal/api"
	"github.com/relaybridge/zulip-relay/internal/conf"
	"github.com/relaybridge/zulip-relay/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fixedStatus struct{}

func (fixedStatus) Snapshot() service.Snapshot {
	return service.Snapshot{
		Relay:        service.RelayStatus{State: service.RelayStatePolling, LastEventID: 12},
		SilentWindow: "22:00-08:00",
	}
}

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	params := []conf.Param{{Key: "ZULIP_SITE", Value: "https://zulip.example.com", Set: true}}
	srv := httptest.NewServer(api.NewServer(fixedStatus{}, params, "", zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestClientAgainstStatusAPI(t *testing.T) {
	srv := newAPI(t)
	c := NewClient(srv.URL + "/")
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	snap, err := c.GetStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, service.RelayStatePolling, snap.Relay.State)
	require.Equal(t, int64(12), snap.Relay.LastEventID)
	require.Equal(t, "22:00-08:00", snap.SilentWindow)

	params, err := c.GetParams(ctx)
	require.NoError(t, err)
	require.Equal(t, []conf.Param{{Key: "ZULIP_SITE", Value: "https://zulip.example.com", Set: true}}, params)
}

func TestClientAddsScheme(t *testing.T) {
	srv := newAPI(t)
	c := NewClient(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, c.Health(context.Background()))
}

func TestClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetStatus(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "HTTP 500: boom")
}
