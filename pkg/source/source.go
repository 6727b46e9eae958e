package source

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/xhad/glance/internal/models"
)

var documentExtensions = map[string]bool{
	".pdf": true,
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// SupportedExtensions lists every file extension accepted for uploads.
func SupportedExtensions() []string {
	return []string{".pdf", ".jpg", ".jpeg", ".png"}
}

// FromURL builds a source from a user-submitted URL. URLs ending in an
// image extension go to the API as image_url, everything else as
// document_url; the API decides whether it can actually fetch the target.
func FromURL(raw string) (models.Source, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return models.Source{}, fmt.Errorf("please provide a valid URL")
	}

	kind := models.KindDocumentURL
	lower := strings.ToLower(trimmed)
	for ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			kind = models.KindImageURL
			break
		}
	}

	return models.Source{
		Kind:  kind,
		URL:   trimmed,
		Input: trimmed,
	}, nil
}

// FromUpload builds a source from an uploaded file. PDFs keep their raw
// bytes and go through the upload/signed URL flow; images are inlined as
// base64 data URLs.
func FromUpload(filename string, content []byte) (models.Source, error) {
	if filename == "" || len(content) == 0 {
		return models.Source{}, fmt.Errorf("please upload a file")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	base := filepath.Base(filename)

	switch {
	case documentExtensions[ext]:
		return models.Source{
			Kind:     models.KindDocumentURL,
			Content:  content,
			Filename: base,
			Input:    base,
		}, nil
	case imageExtensions[ext]:
		mime := sniffImageMIME(content, ext)
		dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(content)
		return models.Source{
			Kind:     models.KindImageURL,
			URL:      dataURL,
			Filename: base,
			Input:    base,
		}, nil
	default:
		return models.Source{}, fmt.Errorf("unsupported file type %s, supported types: %s",
			ext, strings.Join(SupportedExtensions(), ", "))
	}
}

// sniffImageMIME prefers content sniffing and falls back to the extension
// when the bytes are ambiguous.
func sniffImageMIME(content []byte, ext string) string {
	mime := http.DetectContentType(content)
	if strings.HasPrefix(mime, "image/") {
		return mime
	}
	switch ext {
	case ".png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}
