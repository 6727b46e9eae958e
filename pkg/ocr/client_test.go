package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/glance/internal/models"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewWithConfig(ClientConfig{
		APIKey:        "test-key",
		BaseURL:       baseURL,
		RateLimit:     100,
		IncludeImages: true,
	})
	require.NoError(t, err)
	return client
}

func TestNewWithConfig(t *testing.T) {
	client, err := NewWithConfig(ClientConfig{APIKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.mistral.ai", client.config.BaseURL)
	assert.Equal(t, "mistral-ocr-latest", client.config.Model)
}

func TestNewWithConfigRequiresKey(t *testing.T) {
	_, err := NewWithConfig(ClientConfig{})
	assert.Error(t, err)
}

func TestProcessURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/ocr", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral-ocr-latest", req["model"])
		assert.Equal(t, true, req["include_image_base64"])

		doc := req["document"].(map[string]interface{})
		assert.Equal(t, "document_url", doc["type"])
		assert.Equal(t, "https://example.com/report.pdf", doc["document_url"])

		json.NewEncoder(w).Encode(models.Result{
			Pages: []models.Page{
				{Index: 0, Markdown: "# Page one"},
				{Index: 1, Markdown: "Page two"},
			},
			Usage: models.Usage{PagesProcessed: 2},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	result, err := client.Process(context.Background(), models.Source{
		Kind: models.KindDocumentURL,
		URL:  "https://example.com/report.pdf",
	})
	require.NoError(t, err)
	require.Len(t, result.Pages, 2)
	assert.Equal(t, "# Page one", result.Pages[0].Markdown)
	assert.Equal(t, 2, result.Usage.PagesProcessed)
}

func TestProcessImageURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		doc := req["document"].(map[string]interface{})
		assert.Equal(t, "image_url", doc["type"])
		assert.Equal(t, "data:image/png;base64,abc", doc["image_url"])
		_, hasDocumentURL := doc["document_url"]
		assert.False(t, hasDocumentURL)

		json.NewEncoder(w).Encode(models.Result{
			Pages: []models.Page{{Markdown: "scanned text"}},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	result, err := client.Process(context.Background(), models.Source{
		Kind: models.KindImageURL,
		URL:  "data:image/png;base64,abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "scanned text", result.Pages[0].Markdown)
}

func TestProcessUploadFlow(t *testing.T) {
	var gotUpload, gotSignedURL bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/files":
			gotUpload = true
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "ocr", r.FormValue("purpose"))

			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "report.pdf", header.Filename)

			json.NewEncoder(w).Encode(map[string]string{"id": "file-123"})
		case "/v1/files/file-123/url":
			gotSignedURL = true
			json.NewEncoder(w).Encode(map[string]string{"url": "https://signed.example.com/report.pdf"})
		case "/v1/ocr":
			var req map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			doc := req["document"].(map[string]interface{})
			assert.Equal(t, "https://signed.example.com/report.pdf", doc["document_url"])

			json.NewEncoder(w).Encode(models.Result{
				Pages: []models.Page{{Markdown: "uploaded doc"}},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	result, err := client.Process(context.Background(), models.Source{
		Kind:     models.KindDocumentURL,
		Content:  []byte("%PDF-1.4"),
		Filename: "report.pdf",
	})
	require.NoError(t, err)
	assert.True(t, gotUpload)
	assert.True(t, gotSignedURL)
	assert.Equal(t, "uploaded doc", result.Pages[0].Markdown)
}

func TestProcessAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid api key"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Process(context.Background(), models.Source{
		Kind: models.KindDocumentURL,
		URL:  "https://example.com/report.pdf",
	})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid api key", apiErr.Message)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestProcessAPIErrorPlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.Process(context.Background(), models.Source{
		Kind: models.KindDocumentURL,
		URL:  "https://example.com/report.pdf",
	})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
}

func TestProcessContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Process(ctx, models.Source{
		Kind: models.KindDocumentURL,
		URL:  "https://example.com/report.pdf",
	})
	assert.Error(t, err)
}
