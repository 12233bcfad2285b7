package formatter

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Goldmark returns a MarkdownFunc backed by goldmark with GitHub flavoured
// extensions and hard line wraps. Raw HTML in the source is omitted.
func Goldmark() MarkdownFunc {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	return func(src string) (string, error) {
		var buf bytes.Buffer
		if err := md.Convert([]byte(src), &buf); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
}

// Markdown converts src with md. A nil converter, or one that fails, falls
// back to HTML escaping so the text still renders safely.
func Markdown(md MarkdownFunc, src string) string {
	if md == nil {
		return EscapeHTML(src)
	}
	out, err := md(src)
	if err != nil {
		return EscapeHTML(src)
	}
	return out
}
