package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const maxPageBytes = 2 << 20

// PageFetcher returns the readable text of a posting's source page
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPPageFetcher downloads a page and extracts its visible text
type HTTPPageFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPPageFetcher creates a fetcher. A nil client gets a 20s timeout.
func NewHTTPPageFetcher(client *http.Client) *HTTPPageFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTTPPageFetcher{
		client:    client,
		userAgent: "ContractsOnlyVerifier/1.0 (+https://contractsonly.com)",
	}
}

// Fetch downloads url and returns its text content
func (f *HTTPPageFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPageFetch, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPageFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d", ErrPageFetch, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxPageBytes)
	if !strings.Contains(resp.Header.Get("Content-Type"), "html") {
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrPageFetch, err)
		}
		return string(raw), nil
	}

	text, err := extractText(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPageFetch, err)
	}
	return text, nil
}

// extractText walks the HTML token stream and keeps text outside script and style
func extractText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var b strings.Builder
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", err
			}
			return strings.TrimSpace(b.String()), nil
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				skip++
			case "br", "p", "div", "li", "h1", "h2", "h3", "h4", "tr":
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "noscript":
				if skip > 0 {
					skip--
				}
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if text := strings.TrimSpace(string(z.Text())); text != "" {
				b.WriteString(text)
				b.WriteByte(' ')
			}
		}
	}
}
