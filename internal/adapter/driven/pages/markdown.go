package pages

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// DefaultMarkdownPolicy returns the policy applied to Markdown output when
// Options.MarkdownPolicy is nil: user-generated-content rules, plus the
// language classes goldmark puts on fenced code blocks.
func DefaultMarkdownPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w-]+$`)).OnElements("code")
	return p
}

// markdownConverter turns Markdown page sources into sanitized HTML. Raw HTML
// in the source is passed through goldmark and then filtered by the policy.
type markdownConverter struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func newMarkdownConverter(policy *bluemonday.Policy) *markdownConverter {
	if policy == nil {
		policy = DefaultMarkdownPolicy()
	}
	return &markdownConverter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		policy: policy,
	}
}

// Convert renders src as HTML. Empty input yields empty output.
func (c *markdownConverter) Convert(src []byte) (template.HTML, error) {
	if len(bytes.TrimSpace(src)) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	if err := c.md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return template.HTML(c.policy.SanitizeBytes(buf.Bytes())), nil
}
