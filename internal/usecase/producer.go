package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"SocialPoster/internal/domain"
	"SocialPoster/internal/ports"
	"SocialPoster/internal/retry"
)

const (
	uploadMaxAttempts = 3
	uploadBackoffStep = 2 * time.Second
	objectPrefix      = "posts/"
)

// Producer turns a selected item into a publishable artifact: render the
// caption card, upload it, verify the public URL answers. Missing or
// unreachable images degrade to the placeholder; only upload exhaustion is
// fatal, since a post with neither image nor placeholder is unpublishable.
type Producer struct {
	renderer       ports.Renderer
	uploader       ports.Uploader
	placeholderURL string
	tagBlock       string
	probe          *http.Client
	sleep          func(time.Duration)
	logger         *slog.Logger
}

// NewProducer wires the render and storage adapters.
func NewProducer(renderer ports.Renderer, uploader ports.Uploader, placeholderURL, tagBlock string, logger *slog.Logger) *Producer {
	return &Producer{
		renderer:       renderer,
		uploader:       uploader,
		placeholderURL: placeholderURL,
		tagBlock:       tagBlock,
		probe:          &http.Client{Timeout: 10 * time.Second},
		sleep:          time.Sleep,
		logger:         logger,
	}
}

// Produce builds the artifact for one selected item.
func (p *Producer) Produce(ctx context.Context, item domain.SelectedItem) (domain.Artifact, error) {
	artifact := domain.Artifact{
		Item:     item,
		Caption:  item.RewrittenTitle + "\n\n" + item.CaptionText,
		TagBlock: p.tagBlock,
	}

	img, err := p.renderer.RenderCard(ctx, item.RewrittenTitle, item.CaptionText, item.Candidate.ImageHint)
	if err != nil {
		p.warn("render failed, using placeholder", "source_id", item.Candidate.SourceID, "error", err)
		artifact.ImageURL = p.placeholderURL
		artifact.Placeholder = true
		return artifact, nil
	}

	name := objectPrefix + uuid.NewString() + ".png"
	var publicURL string
	err = retry.Do(ctx, retry.Policy{
		MaxAttempts: uploadMaxAttempts,
		Backoff:     retry.Linear(uploadBackoffStep),
		Sleep:       p.sleep,
	}, func() error {
		url, uerr := p.uploader.Upload(ctx, name, img, "image/png")
		if uerr != nil {
			return uerr
		}
		publicURL = url
		return nil
	})
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("upload artifact image: %w", err)
	}

	if !p.reachable(ctx, publicURL) {
		p.warn("uploaded image not reachable, using placeholder", "url", publicURL)
		artifact.ImageURL = p.placeholderURL
		artifact.Placeholder = true
		return artifact, nil
	}

	artifact.ImageURL = publicURL
	return artifact, nil
}

// FromLibrary builds an artifact from the oldest already-uploaded image
// instead of rendering a new one.
func (p *Producer) FromLibrary(ctx context.Context, caption string) (domain.Artifact, error) {
	objects, err := p.uploader.List(ctx, objectPrefix)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("list library: %w", err)
	}
	if len(objects) == 0 {
		return domain.Artifact{}, fmt.Errorf("library is empty")
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].UpdatedAt.Before(objects[j].UpdatedAt)
	})
	oldest := objects[0]

	return domain.Artifact{
		Item:     domain.SelectedItem{RewrittenTitle: oldest.Name},
		ImageURL: p.uploader.PublicURL(oldest.Name),
		Caption:  caption,
		TagBlock: p.tagBlock,
	}, nil
}

func (p *Producer) reachable(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.probe.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (p *Producer) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
