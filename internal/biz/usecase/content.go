package usecase

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/relaybridge/zulip-relay/internal/biz/domain"
)

// MaxPreviewRunes is the rendered body length kept in a preview
const MaxPreviewRunes = 500

const ellipsis = "…"

// Labels holds the user-visible strings of a preview
type Labels struct {
	HeaderIcon     string
	PrivateLabel   string
	UnknownSender  string
	MentionWarning string
	LinkLabel      string
}

// DefaultLabels are used when no messages configuration is loaded
var DefaultLabels = Labels{
	HeaderIcon:     "📩",
	PrivateLabel:   "PM",
	UnknownSender:  "Unknown",
	MentionWarning: "⚠️ You were mentioned!",
	LinkLabel:      "View in Zulip:",
}

var (
	saidLinkRegex = regexp.MustCompile(`<a href="(#narrow/[^"]*)">said</a>`)
	spanRegex     = regexp.MustCompile(`<span.*?>(.*?)</span>`)
	lineBreaks    = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n")
	paragraphs    = strings.NewReplacer("<p>", "", "</p>", "\n")
	quotes        = strings.NewReplacer("<blockquote>", "<pre>", "</blockquote>", "</pre>")
	newlines      = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// ContentTransformer converts source messages into destination markup
type ContentTransformer struct {
	baseURL string
	labels  Labels
	steps   []func(string) string
}

// NewContentTransformer creates a transformer for the given site URL
func NewContentTransformer(baseURL string, labels Labels) *ContentTransformer {
	t := &ContentTransformer{
		baseURL: strings.TrimRight(baseURL, "/"),
		labels:  labels,
	}
	// Order matters: quote links must be rewritten before spans are stripped
	t.steps = []func(string) string{
		lineBreaks.Replace,
		paragraphs.Replace,
		quotes.Replace,
		t.rewriteSaidLinks,
		stripSpans,
		dropBlankLines,
	}
	return t
}

// Render converts a rich-text body into destination markup, truncated to
// MaxPreviewRunes with an ellipsis appended.
func (t *ContentTransformer) Render(content string) string {
	text := content
	for _, step := range t.steps {
		text = step(text)
	}
	return truncateRunes(text, MaxPreviewRunes)
}

func (t *ContentTransformer) rewriteSaidLinks(text string) string {
	return saidLinkRegex.ReplaceAllStringFunc(text, func(match string) string {
		target := saidLinkRegex.FindStringSubmatch(match)[1]
		return fmt.Sprintf("<a href='%s%s'>said</a>", t.baseURL, target)
	})
}

func stripSpans(text string) string {
	// Nested spans need more than one pass
	for {
		next := spanRegex.ReplaceAllString(text, "$1")
		if next == text {
			return text
		}
		text = next
	}
}

func dropBlankLines(text string) string {
	lines := strings.Split(newlines.Replace(text), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + ellipsis
}

// LinkFor builds a deep link to the message in the source web client
func (t *ContentTransformer) LinkFor(msg *domain.Message) string {
	if msg.ID == 0 {
		return t.baseURL
	}

	switch msg.Kind {
	case domain.MessageKindStream:
		streamPart := url.PathEscape(msg.StreamName)
		if msg.StreamID != 0 {
			streamPart = fmt.Sprintf("%d-%s", msg.StreamID, streamPart)
		}
		return fmt.Sprintf("%s/#narrow/stream/%s/topic/%s/near/%d",
			t.baseURL, streamPart, url.PathEscape(msg.Topic), msg.ID)

	case domain.MessageKindPrivate:
		ids := recipientIDs(msg.Recipients)
		switch len(ids) {
		case 0:
			// no usable recipient data
		case 1:
			return fmt.Sprintf("%s/#narrow/pm-with/%d/near/%d", t.baseURL, ids[0], msg.ID)
		default:
			parts := make([]string, len(ids))
			for i, id := range ids {
				parts[i] = strconv.FormatInt(id, 10)
			}
			return fmt.Sprintf("%s/#narrow/pm/%s/near/%d", t.baseURL, strings.Join(parts, ","), msg.ID)
		}
	}

	return fmt.Sprintf("%s/#narrow/near/%d", t.baseURL, msg.ID)
}

// recipientIDs returns the known recipient ids in ascending order
func recipientIDs(recipients []domain.Recipient) []int64 {
	var ids []int64
	for _, r := range recipients {
		if r.ID != 0 {
			ids = append(ids, r.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Preview builds the full destination message: header, optional mention
// warning, rendered body and a link back to the source.
func (t *ContentTransformer) Preview(msg *domain.Message) string {
	sender := msg.SenderFullName
	if sender == "" {
		sender = t.labels.UnknownSender
	}

	var meta string
	if msg.IsStream() {
		stream := msg.StreamName
		if stream == "" {
			stream = "stream"
		}
		meta = fmt.Sprintf("<b>[%s][%s]</b>", html.EscapeString(stream), html.EscapeString(msg.Topic))
	} else {
		meta = fmt.Sprintf("<b>%s</b>", html.EscapeString(t.labels.PrivateLabel))
	}

	parts := []string{
		strings.TrimSpace(fmt.Sprintf("%s %s — <b>%s</b>", t.labels.HeaderIcon, meta, html.EscapeString(sender))),
	}
	if msg.IsMentioned() && t.labels.MentionWarning != "" {
		parts = append(parts, t.labels.MentionWarning)
	}
	if body := t.Render(msg.Content); strings.TrimSpace(body) != "" {
		parts = append(parts, body)
	}
	parts = append(parts, fmt.Sprintf("<b>%s</b> %s", t.labels.LinkLabel, t.LinkFor(msg)))

	return strings.Join(parts, "\n")
}
