package data

import (
	"fmt"

	"github.com/relaybridge/zulip-relay/internal/biz/repo"
	"github.com/relaybridge/zulip-relay/internal/conf"
	"github.com/relaybridge/zulip-relay/internal/infra/feishu"
	"github.com/relaybridge/zulip-relay/internal/infra/telegram"
	"github.com/relaybridge/zulip-relay/internal/infra/zulip"
	"github.com/rs/zerolog"
)

var telegramCommands = []telegram.BotCommand{
	{Name: "params", Description: "Show the relay configuration"},
	{Name: "status", Description: "Show the relay state"},
}

// Repositories contains all repositories
type Repositories struct {
	Source   repo.SourceRepo
	Notifier repo.Notifier
	Commands repo.CommandSource
	Cursor   repo.CursorRepo // nil when persistence is disabled
}

// NewRepositories creates all repositories for the configured destination
func NewRepositories(cfg *conf.Config, zulipClient *zulip.Client, log zerolog.Logger) (*Repositories, error) {
	repos := &Repositories{Source: NewZulipRepo(zulipClient)}

	switch cfg.Destination {
	case conf.DestinationFeishu:
		client := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, log.With().Str("component", "feishu").Logger())
		r := NewFeishuRepo(client, cfg.Feishu.ChatID, log.With().Str("component", "feishu").Logger())
		repos.Notifier, repos.Commands = r, r
	default:
		tgLog := log.With().Str("component", "telegram").Logger()
		telegram.RouteLibraryLogs(tgLog)
		client, err := telegram.NewClient(cfg.Telegram.BotToken, tgLog)
		if err != nil {
			return nil, err
		}
		if err := client.SetCommands(telegramCommands); err != nil {
			tgLog.Warn().Err(err).Msg("Failed to publish command menu")
		}
		r := NewTelegramRepo(client, cfg.Telegram.ChatID, tgLog)
		repos.Notifier, repos.Commands = r, r
	}

	if cfg.Relay.CursorDBPath != "" {
		cursorRepo, err := NewCursorRepo(cfg.Relay.CursorDBPath)
		if err != nil {
			return nil, fmt.Errorf("cursor store: %w", err)
		}
		repos.Cursor = cursorRepo
	}

	return repos, nil
}

// Close releases repository resources
func (r *Repositories) Close() error {
	if r.Cursor != nil {
		return r.Cursor.Close()
	}
	return nil
}
