package social

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"SocialPoster/internal/config"
	"SocialPoster/internal/domain"
	"SocialPoster/internal/ports"
)

// TwitterPublisher posts an artifact as two sequential signed requests:
// upload the media bytes, then create the post referencing the media id.
// Neither step retries; the platform exposes no still-processing status for
// this flow, so a failure is terminal and reported as-is.
type TwitterPublisher struct {
	cfg    config.TwitterConfig
	signer *oauthSigner
	http   *http.Client
	logger *slog.Logger
}

var _ ports.Publisher = (*TwitterPublisher)(nil)

// NewTwitterPublisher builds the publisher from configuration.
func NewTwitterPublisher(cfg config.TwitterConfig, logger *slog.Logger) *TwitterPublisher {
	return &TwitterPublisher{
		cfg:    cfg,
		signer: newOAuthSigner(cfg.ConsumerKey, cfg.ConsumerSecret, cfg.AccessToken, cfg.AccessSecret),
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Platform identifies the destination.
func (p *TwitterPublisher) Platform() domain.Platform {
	return domain.PlatformTwitter
}

// CaptionLimit is the platform's maximum post length in characters.
func (p *TwitterPublisher) CaptionLimit() int {
	if p.cfg.CaptionLimit > 0 {
		return p.cfg.CaptionLimit
	}
	return 280
}

// Publish downloads the artifact image, uploads it, and creates the post.
func (p *TwitterPublisher) Publish(ctx context.Context, artifact domain.Artifact) (string, error) {
	if p.cfg.ConsumerKey == "" || p.cfg.ConsumerSecret == "" || p.cfg.AccessToken == "" || p.cfg.AccessSecret == "" {
		return "", fmt.Errorf("twitter publisher misconfigured: missing credentials")
	}

	data, err := p.downloadImage(ctx, artifact.ImageURL)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}

	// MIME is sniffed from the bytes, not trusted from headers.
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("unsupported file type %q", mime)
	}

	mediaID, err := p.uploadMedia(ctx, data)
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	p.debug("media uploaded", "media_id", mediaID)

	text := domain.FitCaption(artifact.Caption, artifact.TagBlock, p.CaptionLimit())
	postID, err := p.createPost(ctx, text, mediaID)
	if err != nil {
		return "", fmt.Errorf("create post: %w", err)
	}

	p.debug("posted", "post_id", postID)
	return postID, nil
}

func (p *TwitterPublisher) downloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch returned %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}

func (p *TwitterPublisher) uploadMedia(ctx context.Context, data []byte) (string, error) {
	endpoint := p.cfg.UploadBaseURL + "/media/upload.json"
	form := url.Values{}
	form.Set("media_data", base64.StdEncoding.EncodeToString(data))

	// Form-encoded body parameters participate in the signature base.
	header, err := p.signer.authorize(http.MethodPost, endpoint, form)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", header)

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("media upload %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var payload struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.MediaIDString == "" {
		return "", fmt.Errorf("upload response missing media_id_string: %s", string(raw))
	}
	return payload.MediaIDString, nil
}

func (p *TwitterPublisher) createPost(ctx context.Context, text, mediaID string) (string, error) {
	endpoint := p.cfg.APIBaseURL + "/tweets"

	body, err := json.Marshal(map[string]any{
		"text": text,
		"media": map[string]any{
			"media_ids": []string{mediaID},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal post payload: %w", err)
	}

	// JSON bodies are excluded from the signature base; a fresh signature is
	// produced anyway (new nonce and timestamp).
	header, err := p.signer.authorize(http.MethodPost, endpoint, nil)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", header)

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("post create %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var payload struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Data.ID == "" {
		return "", fmt.Errorf("post response missing data.id: %s", string(raw))
	}
	return payload.Data.ID, nil
}

func (p *TwitterPublisher) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
