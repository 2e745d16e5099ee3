package zulip

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// CodeBadEventQueue is returned when the server no longer knows a queue
const CodeBadEventQueue = "BAD_EVENT_QUEUE_ID"

// UpstreamError is a non-2xx, non-429 API response
type UpstreamError struct {
	StatusCode int
	Code       string
	Msg        string
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("zulip: HTTP %d %s: %s", e.StatusCode, e.Code, e.Msg)
	}
	return fmt.Sprintf("zulip: HTTP %d: %s", e.StatusCode, e.Msg)
}

func newUpstreamError(status int, body []byte) *UpstreamError {
	e := &UpstreamError{StatusCode: status}
	var payload struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		e.Code = payload.Code
		e.Msg = payload.Msg
	}
	if e.Msg == "" {
		e.Msg = truncate(string(body), 200)
	}
	return e
}

// IsBadEventQueue reports whether err means the event queue expired
func IsBadEventQueue(err error) bool {
	var upErr *UpstreamError
	return errors.As(err, &upErr) && upErr.Code == CodeBadEventQueue
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
