package service

import (
	"bytes"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Renderer turns markdown into HTML that is safe to embed.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps(), gmhtml.WithXHTML()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render converts source to sanitized HTML. On a conversion failure the
// escaped source is returned inside a paragraph.
func (r *Renderer) Render(source string) string {
	if r == nil || source == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "<p>" + html.EscapeString(source) + "</p>"
	}
	return r.policy.Sanitize(buf.String())
}

var strictPolicy = bluemonday.StrictPolicy()

// StripTags removes all markup from user text. Entities produced by the
// policy are decoded again so stored text stays plain.
func StripTags(s string) string {
	return html.UnescapeString(strictPolicy.Sanitize(s))
}
