package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SocialPoster/internal/domain"
	"SocialPoster/internal/ports"
)

type scriptedPublisher struct {
	platform domain.Platform
	ids      []string
	errs     []error
	calls    int
}

func (s *scriptedPublisher) Platform() domain.Platform { return s.platform }
func (s *scriptedPublisher) CaptionLimit() int         { return 2200 }

func (s *scriptedPublisher) Publish(_ context.Context, _ domain.Artifact) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.ids) {
		return s.ids[i], nil
	}
	return "post-id", nil
}

type recordingHistory struct {
	saved []domain.PublishOutcome
	err   error
}

func (r *recordingHistory) SaveOutcome(_ context.Context, outcome domain.PublishOutcome) error {
	r.saved = append(r.saved, outcome)
	return r.err
}

func (r *recordingHistory) Recent(context.Context, int) ([]domain.PublishRecord, error) {
	return nil, nil
}

func artifactsNamed(titles ...string) []domain.Artifact {
	out := make([]domain.Artifact, 0, len(titles))
	for _, t := range titles {
		out = append(out, domain.Artifact{
			Item:     domain.SelectedItem{RewrittenTitle: t},
			ImageURL: "https://cdn.example/" + t + ".png",
		})
	}
	return out
}

func TestPublishAllFansOutToEveryPublisher(t *testing.T) {
	ig := &scriptedPublisher{platform: domain.PlatformInstagram, ids: []string{"ig-1", "ig-2"}}
	tw := &scriptedPublisher{platform: domain.PlatformTwitter, ids: []string{"tw-1", "tw-2"}}

	o := NewOrchestrator(0, nil, nil)
	report := o.PublishAll(context.Background(), artifactsNamed("a", "b"), []ports.Publisher{ig, tw})

	assert.True(t, report.Success)
	require.Len(t, report.Outcomes, 4)
	assert.Equal(t, "ig-1", report.Outcomes[0].ExternalID)
	assert.Equal(t, "tw-1", report.Outcomes[1].ExternalID)
	assert.Equal(t, 2, ig.calls)
	assert.Equal(t, 2, tw.calls)
}

func TestPublishAllContinuesAfterFailure(t *testing.T) {
	ig := &scriptedPublisher{
		platform: domain.PlatformInstagram,
		errs:     []error{errors.New("container rejected"), nil},
		ids:      []string{"", "ig-2"},
	}
	tw := &scriptedPublisher{platform: domain.PlatformTwitter, ids: []string{"tw-1", "tw-2"}}

	o := NewOrchestrator(0, nil, nil)
	report := o.PublishAll(context.Background(), artifactsNamed("a", "b"), []ports.Publisher{ig, tw})

	assert.False(t, report.Success, "one failed pair fails the aggregate")
	require.Len(t, report.Outcomes, 4)
	assert.False(t, report.Outcomes[0].Success)
	assert.Contains(t, report.Outcomes[0].Error, "container rejected")
	assert.True(t, report.Outcomes[1].Success)
	assert.True(t, report.Outcomes[2].Success, "second artifact still published")
}

func TestPublishAllDelaysBetweenArtifactsOnly(t *testing.T) {
	var waits []time.Duration
	o := NewOrchestrator(10*time.Second, nil, nil)
	o.sleep = func(d time.Duration) { waits = append(waits, d) }

	pub := &scriptedPublisher{platform: domain.PlatformInstagram}
	o.PublishAll(context.Background(), artifactsNamed("a", "b", "c"), []ports.Publisher{pub})

	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, waits,
		"no delay before the first artifact")
}

func TestPublishAllRecordsOutcomes(t *testing.T) {
	history := &recordingHistory{}
	o := NewOrchestrator(0, history, nil)

	pub := &scriptedPublisher{platform: domain.PlatformTwitter, ids: []string{"tw-1"}}
	o.PublishAll(context.Background(), artifactsNamed("a"), []ports.Publisher{pub})

	require.Len(t, history.saved, 1)
	assert.Equal(t, domain.PlatformTwitter, history.saved[0].Platform)
	assert.Equal(t, "tw-1", history.saved[0].ExternalID)
}

func TestPublishAllHistoryFailureDoesNotAffectReport(t *testing.T) {
	history := &recordingHistory{err: errors.New("db down")}
	o := NewOrchestrator(0, history, nil)

	pub := &scriptedPublisher{platform: domain.PlatformInstagram, ids: []string{"ig-1"}}
	report := o.PublishAll(context.Background(), artifactsNamed("a"), []ports.Publisher{pub})

	assert.True(t, report.Success)
}

func TestPublishAllEmptyInputIsFailure(t *testing.T) {
	o := NewOrchestrator(0, nil, nil)
	report := o.PublishAll(context.Background(), nil, nil)

	assert.False(t, report.Success)
	assert.Empty(t, report.Outcomes)
}
