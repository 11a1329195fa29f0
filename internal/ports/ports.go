package ports

import (
	"context"

	"SocialPoster/internal/domain"
)

// CandidateSource pulls fresh candidates from all configured feeds.
type CandidateSource interface {
	Fetch(ctx context.Context) ([]domain.ContentCandidate, error)
}

// FingerprintStore keeps the set of already-used content fingerprints.
// Contains never fails: when the backing store is unreachable it reports
// false for everything. AddAll merges (union) and refreshes the expiry;
// write errors are logged and swallowed by the implementation.
type FingerprintStore interface {
	Contains(ctx context.Context, fingerprint string) bool
	AddAll(ctx context.Context, fingerprints []string)
}

// Selector delegates choosing and rewriting candidates to a generative model.
type Selector interface {
	Select(ctx context.Context, candidates []domain.ContentCandidate, maxCount int) ([]domain.SelectedItem, error)
}

// QuizGenerator produces programming-trivia quiz items from a model prompt.
type QuizGenerator interface {
	GenerateQuiz(ctx context.Context, language string, count int) ([]domain.QuizItem, error)
}

// Renderer composes the caption card image for an item.
type Renderer interface {
	RenderCard(ctx context.Context, title, caption, imageHint string) ([]byte, error)
}

// Uploader pushes rendered bytes to object storage and lists prior uploads.
// PublicURL resolves a stored object's name to its public address.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
	List(ctx context.Context, prefix string) ([]domain.StoredObject, error)
	PublicURL(name string) string
}

// Publisher implements one destination platform's publish protocol.
// Publish returns the platform's post id on success.
type Publisher interface {
	Platform() domain.Platform
	CaptionLimit() int
	Publish(ctx context.Context, artifact domain.Artifact) (string, error)
}

// OutcomeRepository persists publish outcomes for audit.
type OutcomeRepository interface {
	SaveOutcome(ctx context.Context, outcome domain.PublishOutcome) error
	Recent(ctx context.Context, limit int) ([]domain.PublishRecord, error)
}
