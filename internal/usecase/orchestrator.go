package usecase

import (
	"context"
	"log/slog"
	"time"

	"SocialPoster/internal/domain"
	"SocialPoster/internal/ports"
)

// Orchestrator fans one artifact out to every requested publisher and walks
// artifacts strictly in order with a fixed delay between them. The delay is
// a deliberate rate-limit control, which is why artifacts are serialized.
type Orchestrator struct {
	delay   time.Duration
	sleep   func(time.Duration)
	history ports.OutcomeRepository
	logger  *slog.Logger
}

// NewOrchestrator wires the inter-artifact delay and the optional audit
// repository.
func NewOrchestrator(delay time.Duration, history ports.OutcomeRepository, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		delay:   delay,
		sleep:   time.Sleep,
		history: history,
		logger:  logger,
	}
}

// PublishAll attempts every (artifact, publisher) pair and aggregates the
// outcomes. A failed pair never blocks the remaining pairs, and partial
// failure is always reported with the full outcome list.
func (o *Orchestrator) PublishAll(ctx context.Context, artifacts []domain.Artifact, publishers []ports.Publisher) domain.Report {
	report := domain.Report{Success: true}

	for i, artifact := range artifacts {
		if i > 0 {
			o.sleep(o.delay)
		}

		for _, pub := range publishers {
			outcome := domain.PublishOutcome{
				Platform: pub.Platform(),
				Title:    artifact.Item.RewrittenTitle,
			}

			id, err := pub.Publish(ctx, artifact)
			if err != nil {
				outcome.Error = err.Error()
				report.Success = false
				o.warn("publish failed", "platform", pub.Platform(), "title", outcome.Title, "error", err)
			} else {
				outcome.Success = true
				outcome.ExternalID = id
				o.debug("published", "platform", pub.Platform(), "post_id", id)
			}

			report.Outcomes = append(report.Outcomes, outcome)
			o.record(ctx, outcome)
		}
	}

	if len(report.Outcomes) == 0 {
		report.Success = false
	}
	return report
}

func (o *Orchestrator) record(ctx context.Context, outcome domain.PublishOutcome) {
	if o.history == nil {
		return
	}
	if err := o.history.SaveOutcome(ctx, outcome); err != nil {
		o.warn("outcome audit write failed", "error", err)
	}
}

func (o *Orchestrator) debug(msg string, args ...interface{}) {
	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}
}

func (o *Orchestrator) warn(msg string, args ...interface{}) {
	if o.logger != nil {
		o.logger.Warn(msg, args...)
	}
}
