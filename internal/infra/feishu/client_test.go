package feishu

import (
	"testing"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func textEvent(senderType, msgType, content string) *larkim.P2MessageReceiveV1 {
	return &larkim.P2MessageReceiveV1{
		Event: &larkim.P2MessageReceiveV1Data{
			Sender: &larkim.EventSender{
				SenderId:   &larkim.UserId{OpenId: strPtr("ou_1")},
				SenderType: strPtr(senderType),
			},
			Message: &larkim.EventMessage{
				MessageId:   strPtr("om_1"),
				ChatId:      strPtr("oc_1"),
				ChatType:    strPtr("group"),
				MessageType: strPtr(msgType),
				Content:     strPtr(content),
			},
		},
	}
}

func TestParseMessage(t *testing.T) {
	msg := parseMessage(textEvent("user", "text", `{"text":"@_user_1 /status now"}`))
	require.NotNil(t, msg)
	require.Equal(t, "oc_1", msg.ChatID)
	require.Equal(t, "om_1", msg.MsgID)
	require.Equal(t, "ou_1", msg.SenderID)
	require.Equal(t, "/status now", msg.Text)
}

func TestParseMessageSkips(t *testing.T) {
	require.Nil(t, parseMessage(nil))
	require.Nil(t, parseMessage(textEvent("app", "text", `{"text":"/status"}`)))
	require.Nil(t, parseMessage(textEvent("user", "image", `{"image_key":"k"}`)))
	require.Nil(t, parseMessage(textEvent("user", "text", `not json`)))
}
