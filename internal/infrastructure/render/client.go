package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"SocialPoster/internal/config"
	"SocialPoster/internal/ports"
)

// Client talks to the caption-card render service: item data in, composed
// image bytes out. Compositing detail lives entirely on the other side of
// this boundary.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.Renderer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.RenderConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// RenderCard requests a caption-overlaid card image.
func (c *Client) RenderCard(ctx context.Context, title, caption, imageHint string) ([]byte, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("render client misconfigured")
	}

	body, err := json.Marshal(map[string]string{
		"title":    title,
		"caption":  caption,
		"imageUrl": imageHint,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal render payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("render service %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	img, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rendered image: %w", err)
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("render service returned empty image")
	}
	return img, nil
}
