package storage

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
	"SocialPoster/internal/domain"
	"SocialPoster/internal/ports"
)

// Client is a thin REST client for the object storage service. Uploaded
// objects become publicly fetchable under PublicBaseURL.
type Client struct {
	endpoint      string
	bucket        string
	apiKey        string
	publicBaseURL string
	http          *http.Client
}

var _ ports.Uploader = (*Client)(nil)

// NewClient wires bucket credentials from configuration.
func NewClient(cfg config.StorageConfig) *Client {
	return &Client{
		endpoint:      strings.TrimSuffix(cfg.Endpoint, "/"),
		bucket:        cfg.Bucket,
		apiKey:        cfg.APIKey,
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		http:          &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload stores data under name and returns its public URL.
func (c *Client) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if c.endpoint == "" || c.bucket == "" {
		return "", fmt.Errorf("storage client misconfigured")
	}

	uploadURL := fmt.Sprintf("%s/object/%s/%s", c.endpoint, c.bucket, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("storage %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	return c.publicBaseURL + "/" + name, nil
}

// List returns object metadata under prefix, used by the library-selection
// variant to pick an already-uploaded image.
func (c *Client) List(ctx context.Context, prefix string) ([]domain.StoredObject, error) {
	if c.endpoint == "" || c.bucket == "" {
		return nil, fmt.Errorf("storage client misconfigured")
	}

	body, err := json.Marshal(map[string]string{"prefix": prefix})
	if err != nil {
		return nil, fmt.Errorf("marshal list payload: %w", err)
	}

	listURL := fmt.Sprintf("%s/object/list/%s", c.endpoint, c.bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, listURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storage list %s", resp.Status)
	}

	var rows []struct {
		Name     string `json:"name"`
		Metadata struct {
			Size int64 `json:"size"`
		} `json:"metadata"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}

	objects := make([]domain.StoredObject, 0, len(rows))
	for _, row := range rows {
		objects = append(objects, domain.StoredObject{
			Name:      row.Name,
			Size:      row.Metadata.Size,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return objects, nil
}

// PublicURL resolves an object name to its public address.
func (c *Client) PublicURL(name string) string {
	return c.publicBaseURL + "/" + name
}
