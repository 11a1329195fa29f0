package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"SocialPoster/internal/domain"
	"SocialPoster/internal/infrastructure/feed"
	"SocialPoster/internal/ports"
)

// Pipeline-fatal conditions; everything else degrades.
var (
	ErrNoNewContent    = errors.New("no new content")
	ErrNothingProduced = errors.New("no artifact could be produced")
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source       ports.CandidateSource
	Store        ports.FingerprintStore
	Selector     ports.Selector
	Producer     *Producer
	Orchestrator *Orchestrator
	MaxPosts     int
	Logger       *slog.Logger
}

// Pipeline implements one full content pass: fetch, filter, select, produce,
// publish, commit fingerprints. Each invocation is a single stateless pass;
// the fingerprint store is the only state surviving between runs.
type Pipeline struct {
	source       ports.CandidateSource
	store        ports.FingerprintStore
	selector     ports.Selector
	producer     *Producer
	orchestrator *Orchestrator
	maxPosts     int
	logger       *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	maxPosts := deps.MaxPosts
	if maxPosts < 1 {
		maxPosts = 3
	}
	return &Pipeline{
		source:       deps.Source,
		store:        deps.Store,
		selector:     deps.Selector,
		producer:     deps.Producer,
		orchestrator: deps.Orchestrator,
		maxPosts:     maxPosts,
		logger:       deps.Logger,
	}
}

// FetchOnly returns the candidates that survive dedup filtering, without
// selecting or publishing anything.
func (p *Pipeline) FetchOnly(ctx context.Context) ([]domain.ContentCandidate, error) {
	candidates, err := p.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	return feed.FilterUnused(ctx, candidates, p.store), nil
}

// Run executes one pipeline pass against the given publishers. Fingerprints
// are committed only after artifacts were produced and a publish pass ran:
// commit-after-use, never reserve-before-use.
func (p *Pipeline) Run(ctx context.Context, publishers []ports.Publisher) (domain.Report, error) {
	fresh, err := p.FetchOnly(ctx)
	if err != nil {
		return domain.Report{}, err
	}
	if len(fresh) == 0 {
		return domain.Report{}, ErrNoNewContent
	}
	p.debug("candidates after dedup", "count", len(fresh))

	items, err := p.selector.Select(ctx, fresh, p.maxPosts)
	if err != nil {
		return domain.Report{}, fmt.Errorf("selection: %w", err)
	}
	p.debug("items selected", "count", len(items))

	artifacts := p.produceAll(ctx, items)
	if len(artifacts) == 0 {
		return domain.Report{}, ErrNothingProduced
	}

	report := p.orchestrator.PublishAll(ctx, artifacts, publishers)

	fingerprints := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		fingerprints = append(fingerprints, a.Item.Candidate.Fingerprint())
	}
	p.store.AddAll(ctx, fingerprints)

	return report, nil
}

// Publish sends pre-built artifacts through the orchestrator. Used for the
// library-selection variant, which bypasses fetch and selection and therefore
// never touches the fingerprint store.
func (p *Pipeline) Publish(ctx context.Context, artifacts []domain.Artifact, publishers []ports.Publisher) domain.Report {
	return p.orchestrator.PublishAll(ctx, artifacts, publishers)
}

// produceAll fans out per selected item; items are independent, so one
// failed production drops only that item.
func (p *Pipeline) produceAll(ctx context.Context, items []domain.SelectedItem) []domain.Artifact {
	produced := make([]*domain.Artifact, len(items))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			artifact, err := p.producer.Produce(gctx, item)
			if err != nil {
				p.warn("artifact production failed", "source_id", item.Candidate.SourceID, "error", err)
				return nil
			}
			mu.Lock()
			produced[i] = &artifact
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	artifacts := make([]domain.Artifact, 0, len(items))
	for _, a := range produced {
		if a != nil {
			artifacts = append(artifacts, *a)
		}
	}
	return artifacts
}

func (p *Pipeline) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
