// ABOUTME: Tests for markdown rendering of message bodies
// ABOUTME: Covers formatting, hard wraps, and raw HTML suppression

package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Basics(t *testing.T) {
	out, err := Render("hello **world**")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>world</strong>")
}

func TestRender_HardWraps(t *testing.T) {
	out, err := Render("line one\nline two")
	require.NoError(t, err)
	assert.Contains(t, out, "<br")
}

func TestRender_Autolink(t *testing.T) {
	out, err := Render("see https://example.com for details")
	require.NoError(t, err)
	assert.Contains(t, out, `<a href="https://example.com"`)
}

func TestRender_RawHTMLSuppressed(t *testing.T) {
	out, err := Render(`<script>alert("hi")</script>`)
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}
