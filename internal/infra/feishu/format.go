package feishu

import (
	"html"
	"regexp"
	"strings"
)

var (
	boldRe   = regexp.MustCompile(`(?is)<(?:b|strong)>(.*?)</(?:b|strong)>`)
	italicRe = regexp.MustCompile(`(?is)<(?:i|em)>(.*?)</(?:i|em)>`)
	preRe    = regexp.MustCompile(`(?is)<pre[^>]*>(.*?)</pre>`)
	codeRe   = regexp.MustCompile(`(?is)<code[^>]*>(.*?)</code>`)
	linkRe   = regexp.MustCompile(`(?is)<a\s+[^>]*href=["']([^"']*)["'][^>]*>(.*?)</a>`)
	anyTagRe = regexp.MustCompile(`(?s)<[^>]+>`)
)

// HTMLToMarkdown converts the notification HTML subset (b, i, code, pre and
// a) to Lark markdown. Unknown tags are dropped, entities are unescaped.
func HTMLToMarkdown(s string) string {
	s = preRe.ReplaceAllStringFunc(s, func(m string) string {
		body := preRe.FindStringSubmatch(m)[1]
		body = strings.Trim(anyTagRe.ReplaceAllString(body, ""), "\n")
		return "\n```\n" + body + "\n```\n"
	})
	s = codeRe.ReplaceAllString(s, "`$1`")
	s = boldRe.ReplaceAllString(s, "**$1**")
	s = italicRe.ReplaceAllString(s, "*$1*")
	s = linkRe.ReplaceAllString(s, "[$2]($1)")
	s = anyTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)

	// pre blocks may have introduced blank lines at the edges
	return strings.Trim(s, "\n")
}
