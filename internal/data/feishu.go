package data

import (
	"context"
	"strings"

	"github.com/relaybridge/zulip-relay/internal/biz/repo"
	"github.com/relaybridge/zulip-relay/internal/infra/feishu"
	"github.com/rs/zerolog"
)

// feishuRepo delivers notifications to one Feishu chat as markdown posts
type feishuRepo struct {
	client *feishu.Client
	chatID string
	log    zerolog.Logger
}

// NewFeishuRepo creates the Feishu notifier and command source
func NewFeishuRepo(client *feishu.Client, chatID string, log zerolog.Logger) *feishuRepo {
	return &feishuRepo{client: client, chatID: chatID, log: log}
}

// Send posts the notification. Feishu has no per-message silent delivery,
// so the flag is only recorded.
func (r *feishuRepo) Send(ctx context.Context, text string, silent bool) error {
	r.log.Debug().Bool("silent", silent).Msg("Sending notification")
	return r.client.SendMarkdown(ctx, r.chatID, feishu.HTMLToMarkdown(text))
}

// Listen delivers slash commands until ctx is done
func (r *feishuRepo) Listen(ctx context.Context, handler repo.CommandHandler) error {
	return r.client.Listen(ctx, func(ctx context.Context, msg *feishu.Message) {
		cmd, ok := parseSlashCommand(msg.Text)
		if !ok {
			return
		}
		cmd.ChatID = msg.ChatID
		cmd.From = msg.SenderID

		reply := handler(ctx, cmd)
		if strings.TrimSpace(reply) == "" {
			return
		}
		if err := r.client.SendMarkdown(ctx, msg.ChatID, feishu.HTMLToMarkdown(reply)); err != nil {
			r.log.Error().Err(err).Str("command", cmd.Name).Str("msg_id", msg.MsgID).Msg("Failed to send command reply")
		}
	})
}

// parseSlashCommand splits "/name args" into a command
func parseSlashCommand(text string) (repo.Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") || len(text) < 2 {
		return repo.Command{}, false
	}
	name, args, _ := strings.Cut(text[1:], " ")
	name, _, _ = strings.Cut(name, "@")
	if name == "" {
		return repo.Command{}, false
	}
	return repo.Command{
		Name: strings.ToLower(name),
		Args: strings.TrimSpace(args),
	}, true
}
