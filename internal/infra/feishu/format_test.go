package feishu

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTMLToMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "<b>ops</b> — <b>Alice</b>", "**ops** — **Alice**"},
		{"italic", "<i>note</i>", "*note*"},
		{"code", "run <code>make</code>", "run `make`"},
		{"link double quotes", `<a href="https://z.example.com/#narrow">said</a>`, "[said](https://z.example.com/#narrow)"},
		{"link single quotes", `<a href='https://z.example.com/x'>said</a>`, "[said](https://z.example.com/x)"},
		{"pre", "quote:\n<pre>\nhello\n</pre>", "quote:\n\n```\nhello\n```"},
		{"unknown tags dropped", "<ul><li>one</li></ul>", "one"},
		{"entities", "a &lt; b &amp;&amp; c", "a < b && c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, HTMLToMarkdown(tt.in))
		})
	}
}

func TestBuildMarkdownPost(t *testing.T) {
	content, err := buildMarkdownPost("**hi**")
	require.NoError(t, err)

	var post struct {
		ZhCN struct {
			Content [][]struct {
				Tag  string `json:"tag"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"zh_cn"`
	}
	require.NoError(t, json.Unmarshal([]byte(content), &post))
	require.Len(t, post.ZhCN.Content, 1)
	require.Equal(t, "md", post.ZhCN.Content[0][0].Tag)
	require.Equal(t, "**hi**", post.ZhCN.Content[0][0].Text)
}
