package domain

import "time"

// ContentCandidate is a raw feed item normalized into a common shape.
// Candidates are single-pass data: fetched, filtered, handed to selection,
// then discarded.
type ContentCandidate struct {
	SourceID     string
	Title        string
	Description  string
	ImageHint    string
	ExternalLink string
	FeedName     string
}

// Fingerprint is the dedup key for a candidate. Raw titles are used on
// purpose so the backing set stays human-readable.
func (c ContentCandidate) Fingerprint() string {
	return c.Title
}

// SelectedItem is a candidate the model picked, with rewritten metadata.
// Its SourceID always traces back to an input candidate; fabricated ids are
// rejected during selection.
type SelectedItem struct {
	Candidate      ContentCandidate
	RewrittenTitle string
	CaptionText    string
}

// Artifact is a platform-ready unit: a publicly reachable image plus the
// finalized caption body and trailing tag block.
type Artifact struct {
	Item        SelectedItem
	ImageURL    string
	Caption     string
	TagBlock    string
	Placeholder bool
}

// Platform enumerates publish destinations.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
)

// PublishOutcome records one publish attempt for one artifact on one
// platform. Never mutated after creation.
type PublishOutcome struct {
	Platform   Platform
	Title      string
	Success    bool
	ExternalID string
	Error      string
}

// Report aggregates outcomes of a whole pipeline pass. Success is true only
// when every outcome succeeded; partial failure keeps the full list visible.
type Report struct {
	Success  bool
	Outcomes []PublishOutcome
}

// PublishRecord is a persisted outcome with its audit timestamp.
type PublishRecord struct {
	PublishOutcome
	CreatedAt time.Time
}

// QuizItem is one generated trivia question for the secondary mode.
type QuizItem struct {
	Language string
	Question string
	Options  []string
	Answer   string
}

// StoredObject describes an uploaded image in object storage, used by the
// library-selection variant.
type StoredObject struct {
	Name      string
	Size      int64
	UpdatedAt time.Time
}
