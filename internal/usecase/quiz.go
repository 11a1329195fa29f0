package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"SocialPoster/internal/domain"
	"SocialPoster/internal/ports"
)

const quizBatchSize = 3

// QuizPipeline is the secondary mode: generate programming-trivia quiz
// items, dedup them by content hash, and publish them through the same
// production and orchestration path as news posts.
type QuizPipeline struct {
	generator    ports.QuizGenerator
	store        ports.FingerprintStore
	producer     *Producer
	orchestrator *Orchestrator
	logger       *slog.Logger
}

// NewQuizPipeline wires the quiz variant. The store is the per-language
// quiz fingerprint set, not the headline set.
func NewQuizPipeline(generator ports.QuizGenerator, store ports.FingerprintStore, producer *Producer, orchestrator *Orchestrator, logger *slog.Logger) *QuizPipeline {
	return &QuizPipeline{
		generator:    generator,
		store:        store,
		producer:     producer,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Run generates, filters, produces, and publishes quiz posts for language.
func (q *QuizPipeline) Run(ctx context.Context, language string, publishers []ports.Publisher) (domain.Report, error) {
	items, err := q.generator.GenerateQuiz(ctx, language, quizBatchSize)
	if err != nil {
		return domain.Report{}, fmt.Errorf("generate quiz: %w", err)
	}

	fresh := make([]domain.QuizItem, 0, len(items))
	for _, item := range items {
		if q.store.Contains(ctx, QuizFingerprint(item)) {
			continue
		}
		fresh = append(fresh, item)
	}
	if len(fresh) == 0 {
		return domain.Report{}, ErrNoNewContent
	}

	artifacts := make([]domain.Artifact, 0, len(fresh))
	fingerprints := make([]string, 0, len(fresh))
	for _, item := range fresh {
		artifact, err := q.producer.Produce(ctx, quizToSelected(item))
		if err != nil {
			q.warn("quiz artifact production failed", "language", language, "error", err)
			continue
		}
		artifacts = append(artifacts, artifact)
		fingerprints = append(fingerprints, QuizFingerprint(item))
	}
	if len(artifacts) == 0 {
		return domain.Report{}, ErrNothingProduced
	}

	report := q.orchestrator.PublishAll(ctx, artifacts, publishers)
	q.store.AddAll(ctx, fingerprints)
	return report, nil
}

// QuizFingerprint hashes the question body; generated text has no stable
// natural key the way headlines do.
func QuizFingerprint(item domain.QuizItem) string {
	sum := sha256.Sum256([]byte(item.Language + "\x00" + item.Question))
	return hex.EncodeToString(sum[:])
}

func quizToSelected(item domain.QuizItem) domain.SelectedItem {
	var caption strings.Builder
	for i, opt := range item.Options {
		fmt.Fprintf(&caption, "%c) %s\n", 'A'+i, opt)
	}
	caption.WriteString("Answer in the comments!")

	return domain.SelectedItem{
		Candidate: domain.ContentCandidate{
			SourceID: QuizFingerprint(item),
			Title:    item.Question,
			FeedName: "quiz/" + item.Language,
		},
		RewrittenTitle: item.Question,
		CaptionText:    caption.String(),
	}
}

func (q *QuizPipeline) warn(msg string, args ...interface{}) {
	if q.logger != nil {
		q.logger.Warn(msg, args...)
	}
}
