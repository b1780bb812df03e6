// ABOUTME: Renders message and comment bodies from markdown to HTML
// ABOUTME: Raw HTML in the source is never passed through

package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// converter renders CommonMark plus autolinks and strikethrough. Raw HTML
// in the source is dropped, not escaped; message bodies come from other
// users and go straight into client DOMs.
var converter = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Render converts a markdown body to HTML.
func Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := converter.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}
