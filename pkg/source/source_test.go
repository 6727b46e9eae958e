package source

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/glance/internal/models"
)

// Minimal valid PNG header bytes, enough for content sniffing.
var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func TestFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantKind models.SourceKind
		wantErr  bool
	}{
		{"pdf url", "https://example.com/report.pdf", models.KindDocumentURL, false},
		{"jpg url", "https://example.com/scan.jpg", models.KindImageURL, false},
		{"jpeg url uppercase", "https://example.com/SCAN.JPEG", models.KindImageURL, false},
		{"png url", "https://example.com/page.png", models.KindImageURL, false},
		{"extensionless url", "https://example.com/docs/invoice", models.KindDocumentURL, false},
		{"whitespace trimmed", "  https://example.com/a.pdf  ", models.KindDocumentURL, false},
		{"empty url", "", models.KindDocumentURL, true},
		{"blank url", "   ", models.KindDocumentURL, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := FromURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, src.Kind)
			assert.Equal(t, strings.TrimSpace(tt.url), src.URL)
			assert.False(t, src.NeedsUpload())
		})
	}
}

func TestFromUploadPDF(t *testing.T) {
	content := []byte("%PDF-1.4 fake content")
	src, err := FromUpload("docs/report.pdf", content)
	require.NoError(t, err)

	assert.Equal(t, models.KindDocumentURL, src.Kind)
	assert.Equal(t, "report.pdf", src.Filename)
	assert.Equal(t, content, src.Content)
	assert.True(t, src.NeedsUpload())
}

func TestFromUploadImage(t *testing.T) {
	src, err := FromUpload("scan.png", pngBytes)
	require.NoError(t, err)

	assert.Equal(t, models.KindImageURL, src.Kind)
	assert.False(t, src.NeedsUpload())
	require.True(t, strings.HasPrefix(src.URL, "data:image/png;base64,"))

	encoded := strings.TrimPrefix(src.URL, "data:image/png;base64,")
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, decoded)
}

func TestFromUploadErrors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
	}{
		{"no file", "", nil},
		{"empty content", "report.pdf", nil},
		{"unsupported extension", "notes.txt", []byte("hello")},
		{"no extension", "mystery", []byte{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromUpload(tt.filename, tt.content)
			assert.Error(t, err)
		})
	}
}

func TestFromUploadUnsupportedMessage(t *testing.T) {
	_, err := FromUpload("archive.zip", []byte{0x50, 0x4B})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".pdf")
	assert.Contains(t, err.Error(), ".png")
}
