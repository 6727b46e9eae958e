package render

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/glance/internal/models"
)

var pngPayload = base64.StdEncoding.EncodeToString(
	[]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0})

func twoPageResult() *models.Result {
	return &models.Result{
		Pages: []models.Page{
			{Index: 0, Markdown: "# Invoice\n\nTotal: $42"},
			{Index: 1, Markdown: "Second page text"},
		},
	}
}

func TestPlainText(t *testing.T) {
	text := PlainText(twoPageResult())
	assert.Equal(t, "# Invoice\n\nTotal: $42\n\nSecond page text", text)
}

func TestPlainTextEmpty(t *testing.T) {
	assert.Equal(t, "", PlainText(&models.Result{}))
}

func TestRewriteReplacesImageRefs(t *testing.T) {
	result := &models.Result{
		Pages: []models.Page{
			{
				Index:    0,
				Markdown: "Before\n\n![img-0.png](img-0.png)\n\nAfter",
				Images: []models.Image{
					{ID: "img-0.png", Base64: pngPayload},
				},
			},
		},
	}

	text := Rewrite(result)
	assert.NotContains(t, text, "![img-0.png](img-0.png)")
	assert.Contains(t, text, "![img-0.png](data:image/png;base64,")
}

func TestRewriteWarnsOnMissingPayload(t *testing.T) {
	result := &models.Result{
		Pages: []models.Page{
			{
				Markdown: "![img-1.png](img-1.png)",
				Images:   []models.Image{{ID: "img-1.png"}},
			},
		},
	}

	text := Rewrite(result)
	assert.Contains(t, text, "[image warning: no data for img-1.png]")
	// The unresolved reference stays as-is.
	assert.Contains(t, text, "![img-1.png](img-1.png)")
}

func TestDataURL(t *testing.T) {
	tests := []struct {
		name   string
		image  models.Image
		want   string
		wantOK bool
	}{
		{
			name:   "bare base64",
			image:  models.Image{ID: "a", Base64: pngPayload},
			want:   "data:image/png;base64," + pngPayload,
			wantOK: true,
		},
		{
			name:   "full data URL",
			image:  models.Image{ID: "b", Base64: "data:image/jpeg;base64," + pngPayload},
			want:   "data:image/jpeg;base64," + pngPayload,
			wantOK: true,
		},
		{
			name:   "empty payload",
			image:  models.Image{ID: "c"},
			wantOK: false,
		},
		{
			name:   "invalid base64",
			image:  models.Image{ID: "d", Base64: "!!not-base64!!"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DataURL(tt.image)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestImages(t *testing.T) {
	result := &models.Result{
		Pages: []models.Page{
			{Images: []models.Image{
				{ID: "a", Base64: pngPayload},
				{ID: "b"}, // no payload, skipped
			}},
			{Images: []models.Image{
				{ID: "c", Base64: pngPayload},
			}},
		},
	}

	urls := Images(result)
	require.Len(t, urls, 2)
	for _, u := range urls {
		assert.True(t, strings.HasPrefix(u, "data:image/png;base64,"))
	}
}

func TestHTML(t *testing.T) {
	src := "# Invoice\n\nTotal: **$42**\n\n![img](data:image/png;base64," + pngPayload + ")"

	out, err := HTML(src)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)

	assert.Equal(t, "Invoice", doc.Find("h1").Text())
	assert.Equal(t, "$42", doc.Find("strong").Text())

	imgSrc, exists := doc.Find("img").Attr("src")
	require.True(t, exists)
	assert.True(t, strings.HasPrefix(imgSrc, "data:image/png;base64,"))
}

func TestHTMLTable(t *testing.T) {
	// GFM tables are common in OCR output for invoices and forms.
	src := "| Item | Price |\n| --- | --- |\n| Socks | $5 |"

	out, err := HTML(src)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)

	assert.Equal(t, 1, doc.Find("table").Length())
	assert.Equal(t, 2, doc.Find("th").Length())
	assert.Contains(t, doc.Find("td").Text(), "Socks")
}
