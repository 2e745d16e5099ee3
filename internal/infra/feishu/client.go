package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"github.com/rs/zerolog"
)

// Message represents a received Feishu text message
type Message struct {
	ChatID   string
	MsgID    string
	SenderID string // open_id
	Text     string // mention placeholders removed
}

// MessageHandler is the callback for received messages
type MessageHandler func(ctx context.Context, msg *Message)

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	log       zerolog.Logger
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string, log zerolog.Logger) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
		log:       log,
	}
}

// Listen connects via WebSocket and calls handler for every text message
// until ctx is done.
func (c *Client) Listen(ctx context.Context, handler MessageHandler) error {
	// Must return quickly so the SDK can ACK, otherwise Feishu redelivers
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(_ context.Context, event *larkim.P2MessageReceiveV1) error {
			if msg := parseMessage(event); msg != nil {
				go handler(ctx, msg)
			}
			return nil
		})

	wsCli := larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelWarn),
	)

	c.log.Info().Msg("Starting WebSocket connection")

	// Start never returns on success, so shutdown is driven by ctx alone
	errCh := make(chan error, 1)
	go func() { errCh <- wsCli.Start(ctx) }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("feishu websocket: %w", err)
		}
		return nil
	}
}

var mentionKeyRe = regexp.MustCompile(`@_user_\d+`)

// parseMessage extracts a text message, skipping bot-sent and non-text ones
func parseMessage(event *larkim.P2MessageReceiveV1) *Message {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return nil
	}
	raw := event.Event.Message

	// Ignore messages sent by apps, including our own
	if s := event.Event.Sender; s != nil && s.SenderType != nil && *s.SenderType == "app" {
		return nil
	}
	if raw.MessageType == nil || *raw.MessageType != larkim.MsgTypeText || raw.Content == nil {
		return nil
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(*raw.Content), &parsed); err != nil {
		return nil
	}

	msg := &Message{
		ChatID: larkcore.StringValue(raw.ChatId),
		MsgID:  larkcore.StringValue(raw.MessageId),
		Text:   strings.TrimSpace(mentionKeyRe.ReplaceAllString(parsed.Text, "")),
	}
	if s := event.Event.Sender; s != nil && s.SenderId != nil && s.SenderId.OpenId != nil {
		msg.SenderID = *s.SenderId.OpenId
	}
	return msg
}

// SendMarkdown sends a post message holding a single markdown element
func (c *Client) SendMarkdown(ctx context.Context, chatID, markdown string) error {
	content, err := buildMarkdownPost(markdown)
	if err != nil {
		return err
	}
	return c.create(ctx, chatID, larkim.MsgTypePost, content)
}

func (c *Client) create(ctx context.Context, chatID, msgType, content string) error {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send %s message failed: %w", msgType, err)
	}
	if !resp.Success() {
		return fmt.Errorf("send %s message error: code=%d msg=%s", msgType, resp.Code, resp.Msg)
	}

	c.log.Debug().Str("chat_id", chatID).Str("msg_type", msgType).Msg("Message sent")
	return nil
}

func buildMarkdownPost(markdown string) (string, error) {
	post := map[string]interface{}{
		"zh_cn": map[string]interface{}{
			"content": [][]map[string]interface{}{
				{{"tag": "md", "text": markdown}},
			},
		},
	}
	contentJSON, err := json.Marshal(post)
	if err != nil {
		return "", fmt.Errorf("encode post: %w", err)
	}
	return string(contentJSON), nil
}
