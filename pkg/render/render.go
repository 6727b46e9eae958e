package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/xhad/glance/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// PlainText joins the markdown of every page with blank lines, in page
// order.
func PlainText(result *models.Result) string {
	parts := make([]string, 0, len(result.Pages))
	for _, page := range result.Pages {
		parts = append(parts, page.Markdown)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// Rewrite returns the combined markdown with every ![id](id) image
// reference replaced by an inline data URL built from the API's base64
// payload. Images the API returned without a payload get a warning note
// appended instead.
func Rewrite(result *models.Result) string {
	text := PlainText(result)

	for _, page := range result.Pages {
		for _, img := range page.Images {
			dataURL, ok := DataURL(img)
			if !ok {
				text += fmt.Sprintf("\n\n[image warning: no data for %s]", img.ID)
				continue
			}
			ref := fmt.Sprintf("![%s](%s)", img.ID, img.ID)
			text = strings.ReplaceAll(text, ref, fmt.Sprintf("![%s](%s)", img.ID, dataURL))
		}
	}

	return strings.TrimSpace(text)
}

// DataURL normalizes an embedded image into a displayable data URL. The
// API sometimes returns a full data URL and sometimes bare base64; both
// are accepted. Returns false when the image carries no payload or the
// payload is not valid base64.
func DataURL(img models.Image) (string, bool) {
	payload := img.Base64
	if payload == "" {
		return "", false
	}

	mime := ""
	if strings.HasPrefix(payload, "data:") {
		head, rest, found := strings.Cut(payload, ",")
		if !found {
			return "", false
		}
		mime = strings.TrimSuffix(strings.TrimPrefix(head, "data:"), ";base64")
		payload = rest
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", false
	}
	if mime == "" {
		mime = http.DetectContentType(decoded)
	}

	return "data:" + mime + ";base64," + payload, true
}

// Images returns the data URLs of every embedded image, in page order.
// Images without payloads are skipped.
func Images(result *models.Result) []string {
	var urls []string
	for _, page := range result.Pages {
		for _, img := range page.Images {
			if dataURL, ok := DataURL(img); ok {
				urls = append(urls, dataURL)
			}
		}
	}
	return urls
}

// HTML renders markdown to HTML for the browser results pane.
func HTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %v", err)
	}
	return buf.String(), nil
}
