// Package telegram sends HTML notifications to a Telegram chat and receives
// bot commands through long polling.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const updatesTimeout = 60 // seconds

// BotCommand is a command advertised in the chat's command menu
type BotCommand struct {
	Name        string
	Description string
}

// Update is a command received from a chat
type Update struct {
	ChatID  int64
	Command string // without the slash or @botname suffix
	Args    string
	From    string
}

// UpdateHandler is called for every received command
type UpdateHandler func(ctx context.Context, u Update)

// Client wraps the Bot API for one bot token
type Client struct {
	bot *tgbotapi.BotAPI
	log zerolog.Logger
}

// Option configures a Client
type Option func(*options)

type options struct {
	endpoint   string
	httpClient tgbotapi.HTTPClient
}

// WithEndpoint overrides the Bot API endpoint format (used by tests)
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(hc tgbotapi.HTTPClient) Option {
	return func(o *options) { o.httpClient = hc }
}

// NewClient authenticates the bot token with getMe
func NewClient(token string, log zerolog.Logger, opts ...Option) (*Client, error) {
	o := options{endpoint: tgbotapi.APIEndpoint, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(&o)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, o.endpoint, o.httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram getMe: %w", err)
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("Telegram bot authorized")

	return &Client{bot: bot, log: log}, nil
}

// SendHTML sends text in HTML parse mode with link previews disabled.
// silent suppresses the notification sound. Text rejected by Telegram's
// HTML parser is resent as plain text.
func (c *Client) SendHTML(ctx context.Context, chatID int64, text string, silent bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableNotification = silent
	msg.DisableWebPagePreview = true

	_, err := c.bot.Send(msg)
	if err == nil {
		return nil
	}
	if !isParseError(err) {
		return fmt.Errorf("telegram send: %w", err)
	}

	c.log.Warn().Err(err).Msg("HTML rejected, resending as plain text")
	msg.Text = StripHTML(text)
	msg.ParseMode = ""
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send plain: %w", err)
	}
	return nil
}

// SetCommands publishes the command menu
func (c *Client) SetCommands(commands []BotCommand) error {
	cmds := make([]tgbotapi.BotCommand, 0, len(commands))
	for _, cmd := range commands {
		cmds = append(cmds, tgbotapi.BotCommand{Command: cmd.Name, Description: cmd.Description})
	}
	if _, err := c.bot.Request(tgbotapi.NewSetMyCommands(cmds...)); err != nil {
		return fmt.Errorf("telegram setMyCommands: %w", err)
	}
	return nil
}

// Listen long-polls for updates and hands every command to handler until
// ctx is done. Handlers run sequentially.
func (c *Client) Listen(ctx context.Context, handler UpdateHandler) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updatesTimeout
	cfg.AllowedUpdates = []string{"message"}

	updates := c.bot.GetUpdatesChan(cfg)
	defer c.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if u, ok := toUpdate(upd); ok {
				handler(ctx, u)
			}
		}
	}
}

func toUpdate(upd tgbotapi.Update) (Update, bool) {
	m := upd.Message
	if m == nil || m.Chat == nil || !m.IsCommand() {
		return Update{}, false
	}
	u := Update{
		ChatID:  m.Chat.ID,
		Command: strings.ToLower(m.Command()),
		Args:    strings.TrimSpace(m.CommandArguments()),
	}
	if m.From != nil {
		u.From = m.From.UserName
		if u.From == "" {
			u.From = m.From.FirstName
		}
	}
	return u, true
}

func isParseError(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "parse entities")
	}
	return strings.Contains(err.Error(), "can't parse entities")
}

var tagRe = regexp.MustCompile(`(?s)<[^>]+>`)

// StripHTML removes tags and unescapes entities
func StripHTML(s string) string {
	return html.UnescapeString(tagRe.ReplaceAllString(s, ""))
}
