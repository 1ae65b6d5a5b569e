package web

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	promptRenderer  goldmark.Markdown
	promptSanitizer *bluemonday.Policy
)

func init() {
	// Prompts come from a textarea, so single newlines are kept as breaks.
	// Raw HTML is dropped by goldmark before the sanitizer ever sees it.
	promptRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	promptSanitizer = bluemonday.UGCPolicy()
	promptSanitizer.RequireNoReferrerOnLinks(true)
	promptSanitizer.AddTargetBlankToFullyQualifiedLinks(true)
}

// RenderMarkdown converts a style prompt written in markdown to sanitized
// HTML. Returns empty string for blank input.
func RenderMarkdown(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := promptRenderer.Convert([]byte(src), &buf); err != nil {
		return promptSanitizer.Sanitize(src)
	}

	return promptSanitizer.Sanitize(buf.String())
}
