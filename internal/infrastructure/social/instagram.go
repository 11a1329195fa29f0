package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"SocialPoster/internal/config"
	"SocialPoster/internal/domain"
	"SocialPoster/internal/ports"
	"SocialPoster/internal/retry"
)

const (
	publishMaxAttempts = 5
	publishBackoffStep = 5 * time.Second
	publishBackoffCap  = 30 * time.Second
	ingestDelay        = 3 * time.Second

	// Graph API codes meaning the media container is still processing.
	codeMediaProcessing    = 9007
	subcodeMediaProcessing = 2207027
)

// InstagramPublisher drives the two-phase Graph API protocol: create a media
// container, then publish it. Publishing retries while the platform reports
// the container as still processing; every other error is terminal.
type InstagramPublisher struct {
	cfg    config.InstagramConfig
	http   *http.Client
	logger *slog.Logger
	sleep  func(time.Duration)
	delay  time.Duration
}

var _ ports.Publisher = (*InstagramPublisher)(nil)

// NewInstagramPublisher builds the publisher from configuration.
func NewInstagramPublisher(cfg config.InstagramConfig, logger *slog.Logger) *InstagramPublisher {
	return &InstagramPublisher{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
		sleep:  time.Sleep,
		delay:  ingestDelay,
	}
}

// Platform identifies the destination.
func (p *InstagramPublisher) Platform() domain.Platform {
	return domain.PlatformInstagram
}

// CaptionLimit is the platform's maximum caption length in characters.
func (p *InstagramPublisher) CaptionLimit() int {
	if p.cfg.CaptionLimit > 0 {
		return p.cfg.CaptionLimit
	}
	return 2200
}

// Publish submits the artifact and returns the created post id.
func (p *InstagramPublisher) Publish(ctx context.Context, artifact domain.Artifact) (string, error) {
	if p.cfg.AccessToken == "" || p.cfg.BusinessAccountID == "" {
		return "", fmt.Errorf("instagram publisher misconfigured: missing credentials")
	}

	caption := domain.FitCaption(artifact.Caption, artifact.TagBlock, p.CaptionLimit())

	containerID, err := p.createContainer(ctx, artifact.ImageURL, caption)
	if err != nil {
		return "", fmt.Errorf("create media container: %w", err)
	}
	p.debug("media container created", "container_id", containerID)

	// Give the platform time to ingest the media before the first publish.
	p.sleep(p.delay)

	var postID string
	attempts := 0
	err = retry.Do(ctx, retry.Policy{
		MaxAttempts: publishMaxAttempts,
		Backoff:     retry.Capped(publishBackoffStep, publishBackoffCap),
		Retryable:   isStillProcessing,
		Sleep:       p.sleep,
	}, func() error {
		attempts++
		id, err := p.publishContainer(ctx, containerID)
		if err != nil {
			return err
		}
		postID = id
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("publish container after %d attempts: %w", attempts, err)
	}

	p.debug("published", "post_id", postID, "attempts", attempts)
	return postID, nil
}

func (p *InstagramPublisher) createContainer(ctx context.Context, imageURL, caption string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/media", p.cfg.APIBaseURL, p.cfg.BusinessAccountID)
	return p.graphCall(ctx, endpoint, map[string]string{
		"image_url":    imageURL,
		"caption":      caption,
		"access_token": p.cfg.AccessToken,
	})
}

func (p *InstagramPublisher) publishContainer(ctx context.Context, containerID string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/media_publish", p.cfg.APIBaseURL, p.cfg.BusinessAccountID)
	return p.graphCall(ctx, endpoint, map[string]string{
		"creation_id":  containerID,
		"access_token": p.cfg.AccessToken,
	})
}

func (p *InstagramPublisher) graphCall(ctx context.Context, endpoint string, payload map[string]string) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", parseGraphError(resp.StatusCode, raw)
	}

	var ok struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &ok); err != nil || ok.ID == "" {
		return "", fmt.Errorf("graph response missing id: %s", string(raw))
	}
	return ok.ID, nil
}

// graphError is a structured Graph API error; Code/Subcode drive the
// still-processing retry decision.
type graphError struct {
	Status  int
	Message string
	Code    int
	Subcode int
}

func (e *graphError) Error() string {
	return fmt.Sprintf("graph api %d (code=%d subcode=%d): %s", e.Status, e.Code, e.Subcode, e.Message)
}

func parseGraphError(status int, raw []byte) error {
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
			Subcode int    `json:"error_subcode"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return &graphError{Status: status, Message: string(raw)}
	}
	return &graphError{
		Status:  status,
		Message: payload.Error.Message,
		Code:    payload.Error.Code,
		Subcode: payload.Error.Subcode,
	}
}

func isStillProcessing(err error) bool {
	var ge *graphError
	if !errors.As(err, &ge) {
		return false
	}
	return ge.Code == codeMediaProcessing || ge.Subcode == subcodeMediaProcessing
}

func (p *InstagramPublisher) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
