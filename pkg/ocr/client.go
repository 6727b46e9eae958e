package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/xhad/glance/internal/models"
	"golang.org/x/time/rate"
)

type ClientConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	RateLimit     float64 // requests per second
	IncludeImages bool
}

// Client talks to the Mistral OCR API. All calls are synchronous; errors
// from the API pass through to the caller untouched.
type Client struct {
	config  ClientConfig
	httpc   *http.Client
	limiter *rate.Limiter
}

// APIError is a non-200 response from the OCR API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("OCR API error %d: %s", e.StatusCode, e.Message)
}

func NewWithConfig(config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.mistral.ai"
	}
	if config.Model == "" {
		config.Model = "mistral-ocr-latest"
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 1
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")

	return &Client{
		config: config,
		httpc: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

type ocrRequest struct {
	Model              string      `json:"model"`
	Document           ocrDocument `json:"document"`
	IncludeImageBase64 bool        `json:"include_image_base64"`
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Process runs a document through the OCR API. Sources that carry raw
// file content are first exchanged for a signed URL.
func (c *Client) Process(ctx context.Context, src models.Source) (*models.Result, error) {
	if src.NeedsUpload() {
		fileID, err := c.UploadFile(ctx, src.Filename, src.Content)
		if err != nil {
			return nil, err
		}
		signedURL, err := c.SignedURL(ctx, fileID)
		if err != nil {
			return nil, err
		}
		src.URL = signedURL
	}

	doc := ocrDocument{Type: string(src.Kind)}
	switch src.Kind {
	case models.KindImageURL:
		doc.ImageURL = src.URL
	default:
		doc.DocumentURL = src.URL
	}

	payload, err := json.Marshal(ocrRequest{
		Model:              c.config.Model,
		Document:           doc,
		IncludeImageBase64: c.config.IncludeImages,
	})
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/ocr", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var result models.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode OCR response: %v", err)
	}

	return &result, nil
}

type uploadResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// UploadFile uploads raw file content with purpose=ocr and returns the
// file ID assigned by the API.
func (c *Client) UploadFile(ctx context.Context, filename string, content []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("purpose", "ocr"); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(content); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/files", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}

	var uploaded uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %v", err)
	}
	if uploaded.ID == "" {
		return "", fmt.Errorf("upload response missing file id")
	}

	return uploaded.ID, nil
}

type signedURLResponse struct {
	URL string `json:"url"`
}

// SignedURL exchanges an uploaded file ID for a short-lived download URL
// the OCR endpoint can fetch.
func (c *Client) SignedURL(ctx context.Context, fileID string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/v1/files/"+fileID+"/url", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}

	var signed signedURLResponse
	if err := json.NewDecoder(resp.Body).Decode(&signed); err != nil {
		return "", fmt.Errorf("failed to decode signed URL response: %v", err)
	}
	if signed.URL == "" {
		return "", fmt.Errorf("signed URL response missing url")
	}

	return signed.URL, nil
}

// apiError reads the response body and maps it onto an APIError. The API
// reports failures as {"message": ...}; anything else is kept verbatim.
func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var parsed struct {
		Message string `json:"message"`
	}
	message := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Message != "" {
		message = parsed.Message
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}
