package data

import (
	"context"
	"strconv"
	"strings"

	"github.com/relaybridge/zulip-relay/internal/biz/repo"
	"github.com/relaybridge/zulip-relay/internal/infra/telegram"
	"github.com/rs/zerolog"
)

// telegramRepo delivers notifications to one Telegram chat and receives
// commands from the bot's updates
type telegramRepo struct {
	client *telegram.Client
	chatID int64
	log    zerolog.Logger
}

// NewTelegramRepo creates the Telegram notifier and command source
func NewTelegramRepo(client *telegram.Client, chatID int64, log zerolog.Logger) *telegramRepo {
	return &telegramRepo{client: client, chatID: chatID, log: log}
}

// Send posts HTML text to the fixed chat
func (r *telegramRepo) Send(ctx context.Context, text string, silent bool) error {
	return r.client.SendHTML(ctx, r.chatID, text, silent)
}

// Listen delivers commands until ctx is done. Replies are sent silently to
// the chat the command came from.
func (r *telegramRepo) Listen(ctx context.Context, handler repo.CommandHandler) error {
	return r.client.Listen(ctx, func(ctx context.Context, u telegram.Update) {
		reply := handler(ctx, repo.Command{
			ChatID: strconv.FormatInt(u.ChatID, 10),
			Name:   u.Command,
			Args:   u.Args,
			From:   u.From,
		})
		if strings.TrimSpace(reply) == "" {
			return
		}
		if err := r.client.SendHTML(ctx, u.ChatID, reply, true); err != nil {
			r.log.Error().Err(err).Str("command", u.Command).Msg("Failed to send command reply")
		}
	})
}
