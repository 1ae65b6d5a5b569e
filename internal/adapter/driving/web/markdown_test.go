package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown_EmptyInput(t *testing.T) {
	assert.Equal(t, "", RenderMarkdown(""))
	assert.Equal(t, "", RenderMarkdown("  \n\t"))
}

func TestRenderMarkdown_PlainText(t *testing.T) {
	result := RenderMarkdown("sarcastic and witty")
	assert.Contains(t, result, "sarcastic and witty")
}

func TestRenderMarkdown_Bold(t *testing.T) {
	result := RenderMarkdown("**energetic** tone")
	assert.Contains(t, result, "<strong>energetic</strong>")
}

func TestRenderMarkdown_HardWraps(t *testing.T) {
	result := RenderMarkdown("first line\nsecond line")
	assert.Contains(t, result, "<br")
}

func TestRenderMarkdown_Link(t *testing.T) {
	result := RenderMarkdown("[reference](https://example.com)")
	assert.Contains(t, result, `<a href="https://example.com"`)
	assert.Contains(t, result, `target="_blank"`)
	assert.Contains(t, result, "noreferrer")
	assert.Contains(t, result, "reference</a>")
}

func TestRenderMarkdown_DropsRawHTML(t *testing.T) {
	result := RenderMarkdown(`<script>alert("xss")</script>`)
	assert.NotContains(t, result, "<script>")
}

func TestRenderMarkdown_SanitizesJavascriptLinks(t *testing.T) {
	result := RenderMarkdown("[click](javascript:alert(1))")
	assert.NotContains(t, result, "javascript:")
}

func TestRenderMarkdown_GFMStrikethrough(t *testing.T) {
	result := RenderMarkdown("~~boring~~")
	assert.Contains(t, result, "<del>boring</del>")
}

func TestRenderMarkdown_GFMList(t *testing.T) {
	result := RenderMarkdown("- keep it short\n- smile")
	assert.Contains(t, result, "<li>")
	assert.Contains(t, result, "keep it short")
	assert.Contains(t, result, "smile")
}
