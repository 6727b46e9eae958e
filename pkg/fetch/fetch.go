package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

type ProbeConfig struct {
	Timeout      time.Duration
	RateLimit    float64 // requests per second
	MaxBodyBytes int64
}

// Probe inspects a submitted URL before it is handed to the OCR API. It
// reports the content type and, for HTML pages, the page title so history
// entries get a human-readable label. Probe results are advisory: the API
// stays the authority on what it accepts.
type Probe struct {
	config  ProbeConfig
	client  *http.Client
	limiter *rate.Limiter
}

type Info struct {
	ContentType string
	Title       string
	Size        int64
}

func NewWithConfig(config ProbeConfig) *Probe {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}
	if config.MaxBodyBytes == 0 {
		config.MaxBodyBytes = 1 << 20 // titles live in the first megabyte
	}

	return &Probe{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

func New() *Probe {
	return NewWithConfig(ProbeConfig{})
}

// Probe fetches the URL and extracts what it can. An unreachable URL is an
// error; an HTML page without a title is not.
func (p *Probe) Probe(ctx context.Context, rawURL string) (Info, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return Info{}, fmt.Errorf("not a fetchable URL: %s", rawURL)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return Info{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Info{}, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Info{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, rawURL)
	}

	info := Info{
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}

	if strings.Contains(info.ContentType, "text/html") {
		body := io.LimitReader(resp.Body, p.config.MaxBodyBytes)
		doc, err := goquery.NewDocumentFromReader(body)
		if err == nil {
			info.Title = strings.TrimSpace(doc.Find("title").First().Text())
		}
	}

	return info, nil
}
