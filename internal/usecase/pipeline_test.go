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

type fakeSource struct {
	candidates []domain.ContentCandidate
	err        error
}

func (f *fakeSource) Fetch(context.Context) ([]domain.ContentCandidate, error) {
	return f.candidates, f.err
}

type memoryStore struct {
	used  map[string]bool
	added []string
}

func newMemoryStore(used ...string) *memoryStore {
	m := &memoryStore{used: map[string]bool{}}
	for _, u := range used {
		m.used[u] = true
	}
	return m
}

func (m *memoryStore) Contains(_ context.Context, fingerprint string) bool {
	return m.used[fingerprint]
}

func (m *memoryStore) AddAll(_ context.Context, fingerprints []string) {
	m.added = append(m.added, fingerprints...)
	for _, f := range fingerprints {
		m.used[f] = true
	}
}

type fakeSelector struct {
	got   []domain.ContentCandidate
	items []domain.SelectedItem
	err   error
	calls int
}

func (f *fakeSelector) Select(_ context.Context, candidates []domain.ContentCandidate, _ int) ([]domain.SelectedItem, error) {
	f.calls++
	f.got = candidates
	return f.items, f.err
}

type fakeRenderer struct {
	img []byte
	err error
}

func (f *fakeRenderer) RenderCard(context.Context, string, string, string) ([]byte, error) {
	return f.img, f.err
}

type fakeUploader struct {
	url     string
	err     error
	objects []domain.StoredObject
	listErr error
	uploads int
}

func (f *fakeUploader) Upload(context.Context, string, []byte, string) (string, error) {
	f.uploads++
	return f.url, f.err
}

func (f *fakeUploader) List(context.Context, string) ([]domain.StoredObject, error) {
	return f.objects, f.listErr
}

func (f *fakeUploader) PublicURL(name string) string {
	return "https://cdn.example/" + name
}

func placeholderProducer() *Producer {
	// A failing renderer forces the placeholder path, which needs no HTTP.
	return NewProducer(&fakeRenderer{err: errors.New("render down")}, &fakeUploader{}, "https://cdn.example/fallback.png", "#news", nil)
}

func newTestPipeline(source *fakeSource, store *memoryStore, selector *fakeSelector, producer *Producer) *Pipeline {
	return NewPipeline(PipelineDeps{
		Source:       source,
		Store:        store,
		Selector:     selector,
		Producer:     producer,
		Orchestrator: NewOrchestrator(0, nil, nil),
		MaxPosts:     3,
	})
}

func TestPipelineRunCommitsFingerprintsAfterPublish(t *testing.T) {
	source := &fakeSource{candidates: []domain.ContentCandidate{
		{SourceID: "1", Title: "Go 1.25 released"},
		{SourceID: "2", Title: "Old story"},
	}}
	store := newMemoryStore("Old story")
	selector := &fakeSelector{items: []domain.SelectedItem{{
		Candidate:      domain.ContentCandidate{SourceID: "1", Title: "Go 1.25 released"},
		RewrittenTitle: "Go 1.25 is out",
		CaptionText:    "Highlights inside.",
	}}}

	p := newTestPipeline(source, store, selector, placeholderProducer())
	pub := &scriptedPublisher{platform: domain.PlatformInstagram, ids: []string{"ig-1"}}

	report, err := p.Run(context.Background(), []ports.Publisher{pub})
	require.NoError(t, err)

	assert.True(t, report.Success)
	require.Len(t, selector.got, 1, "used candidate filtered out before selection")
	assert.Equal(t, "1", selector.got[0].SourceID)
	assert.Equal(t, []string{"Go 1.25 released"}, store.added)
}

func TestPipelineRunAllDuplicates(t *testing.T) {
	source := &fakeSource{candidates: []domain.ContentCandidate{
		{SourceID: "1", Title: "Seen before"},
	}}
	store := newMemoryStore("Seen before")
	selector := &fakeSelector{}

	p := newTestPipeline(source, store, selector, placeholderProducer())

	_, err := p.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoNewContent)
	assert.Zero(t, selector.calls, "selection skipped when nothing is fresh")
	assert.Empty(t, store.added)
}

func TestPipelineRunFetchErrorPropagates(t *testing.T) {
	source := &fakeSource{err: errors.New("all feeds unreachable")}
	p := newTestPipeline(source, newMemoryStore(), &fakeSelector{}, placeholderProducer())

	_, err := p.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all feeds unreachable")
}

func TestPipelineRunSelectionErrorPropagates(t *testing.T) {
	source := &fakeSource{candidates: []domain.ContentCandidate{{SourceID: "1", Title: "Fresh"}}}
	selector := &fakeSelector{err: errors.New("model returned garbage")}
	store := newMemoryStore()

	p := newTestPipeline(source, store, selector, placeholderProducer())

	_, err := p.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model returned garbage")
	assert.Empty(t, store.added)
}

func TestPipelineRunNothingProduced(t *testing.T) {
	source := &fakeSource{candidates: []domain.ContentCandidate{{SourceID: "1", Title: "Fresh"}}}
	store := newMemoryStore()
	selector := &fakeSelector{items: []domain.SelectedItem{{
		Candidate:      domain.ContentCandidate{SourceID: "1", Title: "Fresh"},
		RewrittenTitle: "Fresh",
	}}}

	// Render succeeds but every upload attempt fails, so production is fatal
	// for the item and nothing remains to publish.
	uploader := &fakeUploader{err: errors.New("storage down")}
	producer := NewProducer(&fakeRenderer{img: []byte("png")}, uploader, "https://cdn.example/fallback.png", "#news", nil)
	producer.sleep = func(time.Duration) {}

	p := newTestPipeline(source, store, selector, producer)

	_, err := p.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNothingProduced)
	assert.Empty(t, store.added, "fingerprints are not committed when nothing was published")
	assert.Equal(t, uploadMaxAttempts, uploader.uploads)
}

func TestPipelineFetchOnlyFiltersUsed(t *testing.T) {
	source := &fakeSource{candidates: []domain.ContentCandidate{
		{SourceID: "1", Title: "New"},
		{SourceID: "2", Title: "Used"},
	}}
	store := newMemoryStore("Used")

	p := newTestPipeline(source, store, &fakeSelector{}, placeholderProducer())

	fresh, err := p.FetchOnly(context.Background())
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "New", fresh[0].Title)
}
