package service

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/relaybridge/zulip-relay/internal/biz/repo"
	"github.com/relaybridge/zulip-relay/internal/conf"
	"github.com/rs/zerolog"
)

// Command names
const (
	CommandParams = "params"
	CommandStatus = "status"
)

// StatusProvider exposes the runtime state shown by the status command
type StatusProvider interface {
	Snapshot() Snapshot
}

// CommandService answers commands sent from the destination chat.
// Commands from any other chat are ignored.
type CommandService struct {
	chatID string
	params []conf.Param
	texts  conf.CommandMessages
	status StatusProvider
	log    zerolog.Logger
}

// NewCommandService creates the command handler for chatID
func NewCommandService(chatID string, params []conf.Param, texts conf.CommandMessages, status StatusProvider, log zerolog.Logger) *CommandService {
	return &CommandService{
		chatID: chatID,
		params: params,
		texts:  texts,
		status: status,
		log:    log,
	}
}

// Run listens on source until ctx is done
func (s *CommandService) Run(ctx context.Context, source repo.CommandSource) error {
	return source.Listen(ctx, s.Handle)
}

// Handle answers one command. It returns an empty reply for commands it does
// not serve.
func (s *CommandService) Handle(ctx context.Context, cmd repo.Command) string {
	if cmd.ChatID != s.chatID {
		s.log.Warn().Str("chat_id", cmd.ChatID).Str("command", cmd.Name).Msg("Command from foreign chat ignored")
		return ""
	}

	s.log.Info().Str("command", cmd.Name).Str("from", cmd.From).Msg("Command received")

	switch cmd.Name {
	case CommandParams:
		return s.paramsReply()
	case CommandStatus:
		return s.statusReply()
	default:
		return ""
	}
}

func (s *CommandService) paramsReply() string {
	lines := []string{s.texts.ParamsHeader}
	for _, p := range s.params {
		value := s.texts.NotSet
		if p.Set {
			value = "<code>" + html.EscapeString(p.Value) + "</code>"
		}
		lines = append(lines, fmt.Sprintf("%s = %s", p.Key, value))
	}
	return strings.Join(lines, "\n")
}

func (s *CommandService) statusReply() string {
	if s.status == nil {
		return ""
	}
	snap := s.status.Snapshot()

	muted := make([]string, 0, len(snap.Mute.MutedStreams))
	for _, id := range snap.Mute.MutedStreams {
		muted = append(muted, strconv.FormatInt(id, 10))
	}
	mutedText := s.texts.NotSet
	if len(muted) > 0 {
		mutedText = "<code>" + strings.Join(muted, ",") + "</code>"
	}

	lines := []string{
		s.texts.StatusHeader,
		fmt.Sprintf("state = <code>%s</code>", snap.Relay.State),
		fmt.Sprintf("queue = <code>%s</code>", html.EscapeString(snap.Relay.QueueID)),
		fmt.Sprintf("last_event_id = <code>%d</code>", snap.Relay.LastEventID),
		fmt.Sprintf("forwarded = <code>%d</code>, suppressed = <code>%d</code>", snap.Relay.Forwarded, snap.Relay.Suppressed),
		fmt.Sprintf("errors = <code>%d</code> forward, <code>%d</code> poll", snap.Relay.ForwardErrors, snap.Relay.PollErrors),
		fmt.Sprintf("muted_streams = %s", mutedText),
		fmt.Sprintf("rate_limited = <code>%t</code>", snap.RateLimit.Limited),
		fmt.Sprintf("silent_now = <code>%t</code>", snap.SilentNow),
	}
	if !snap.Relay.StartedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("uptime = <code>%s</code>", snap.Time.Sub(snap.Relay.StartedAt).Truncate(time.Second)))
	}
	return strings.Join(lines, "\n")
}
