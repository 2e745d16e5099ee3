package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeBotAPI struct {
	mu         sync.Mutex
	sends      []map[string]string
	rejectHTML bool
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Relay","username":"relay_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		f.mu.Lock()
		f.sends = append(f.sends, form)
		reject := f.rejectHTML && form["parse_mode"] == "HTML"
		f.mu.Unlock()
		if reject {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities: Unsupported start tag \"ul\" at byte offset 0"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":5,"date":0,"chat":{"id":42,"type":"private"}}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}
}

func newTestClient(t *testing.T, api *fakeBotAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := NewClient("123:abc", zerolog.Nop(), WithEndpoint(srv.URL+"/bot%s/%s"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestSendHTML(t *testing.T) {
	api := &fakeBotAPI{}
	c := newTestClient(t, api)

	require.NoError(t, c.SendHTML(context.Background(), 42, "<b>hi</b>", true))
	require.Len(t, api.sends, 1)
	sent := api.sends[0]
	require.Equal(t, "42", sent["chat_id"])
	require.Equal(t, "<b>hi</b>", sent["text"])
	require.Equal(t, "HTML", sent["parse_mode"])
	require.Equal(t, "true", sent["disable_notification"])
	require.Equal(t, "true", sent["disable_web_page_preview"])
}

func TestSendHTMLLoud(t *testing.T) {
	api := &fakeBotAPI{}
	c := newTestClient(t, api)

	require.NoError(t, c.SendHTML(context.Background(), 42, "alarm", false))
	require.Len(t, api.sends, 1)
	require.NotEqual(t, "true", api.sends[0]["disable_notification"])
}

func TestSendHTMLFallsBackToPlainText(t *testing.T) {
	api := &fakeBotAPI{rejectHTML: true}
	c := newTestClient(t, api)

	require.NoError(t, c.SendHTML(context.Background(), 42, "<ul><li>a &amp; b</li></ul>", false))
	require.Len(t, api.sends, 2)
	require.Equal(t, "a & b", api.sends[1]["text"])
	require.Empty(t, api.sends[1]["parse_mode"])
}

func TestSendHTMLCancelled(t *testing.T) {
	api := &fakeBotAPI{}
	c := newTestClient(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, c.SendHTML(ctx, 42, "x", false), context.Canceled)
	require.Empty(t, api.sends)
}

func TestToUpdate(t *testing.T) {
	upd := tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     "/Status@relay_bot now",
		Chat:     &tgbotapi.Chat{ID: 42},
		From:     &tgbotapi.User{UserName: "alice"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 17}},
	}}
	u, ok := toUpdate(upd)
	require.True(t, ok)
	require.Equal(t, int64(42), u.ChatID)
	require.Equal(t, "status", u.Command)
	require.Equal(t, "now", u.Args)
	require.Equal(t, "alice", u.From)

	_, ok = toUpdate(tgbotapi.Update{Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 42}}})
	require.False(t, ok)
	_, ok = toUpdate(tgbotapi.Update{})
	require.False(t, ok)
}

func TestStripHTML(t *testing.T) {
	require.Equal(t, "PM — Bob\nhi <there>", StripHTML("<b>PM</b> — <b>Bob</b>\nhi &lt;there&gt;"))
}
