package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SocialPoster/internal/domain"
)

func selectedItem() domain.SelectedItem {
	return domain.SelectedItem{
		Candidate:      domain.ContentCandidate{SourceID: "1", Title: "Go 1.25 released"},
		RewrittenTitle: "Go 1.25 is out",
		CaptionText:    "Highlights inside.",
	}
}

func TestProduceUploadsRenderedImage(t *testing.T) {
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer cdn.Close()

	uploader := &fakeUploader{url: cdn.URL + "/posts/x.png"}
	p := NewProducer(&fakeRenderer{img: []byte("png-bytes")}, uploader, "https://cdn.example/fallback.png", "#golang #news", nil)

	artifact, err := p.Produce(context.Background(), selectedItem())
	require.NoError(t, err)

	assert.Equal(t, cdn.URL+"/posts/x.png", artifact.ImageURL)
	assert.False(t, artifact.Placeholder)
	assert.Equal(t, "Go 1.25 is out\n\nHighlights inside.", artifact.Caption)
	assert.Equal(t, "#golang #news", artifact.TagBlock)
	assert.Equal(t, 1, uploader.uploads)
}

func TestProduceRenderFailureDegradesToPlaceholder(t *testing.T) {
	uploader := &fakeUploader{}
	p := NewProducer(&fakeRenderer{err: errors.New("render service down")}, uploader, "https://cdn.example/fallback.png", "#news", nil)

	artifact, err := p.Produce(context.Background(), selectedItem())
	require.NoError(t, err, "a missing image is degraded, not fatal")

	assert.True(t, artifact.Placeholder)
	assert.Equal(t, "https://cdn.example/fallback.png", artifact.ImageURL)
	assert.Zero(t, uploader.uploads, "nothing to upload without a rendered image")
}

func TestProduceRetriesUploadThenSucceeds(t *testing.T) {
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer cdn.Close()

	uploader := &flakyUploader{failures: 2, url: cdn.URL + "/posts/x.png"}
	p := NewProducer(&fakeRenderer{img: []byte("png")}, uploader, "https://cdn.example/fallback.png", "#news", nil)
	p.sleep = func(time.Duration) {}

	artifact, err := p.Produce(context.Background(), selectedItem())
	require.NoError(t, err)
	assert.False(t, artifact.Placeholder)
	assert.Equal(t, 3, uploader.calls)
}

func TestProduceUploadExhaustionIsFatal(t *testing.T) {
	uploader := &fakeUploader{err: errors.New("storage down")}
	p := NewProducer(&fakeRenderer{img: []byte("png")}, uploader, "https://cdn.example/fallback.png", "#news", nil)
	p.sleep = func(time.Duration) {}

	_, err := p.Produce(context.Background(), selectedItem())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gave up after 3 attempts")
	assert.Equal(t, uploadMaxAttempts, uploader.uploads)
}

func TestProduceUnreachableURLDegradesToPlaceholder(t *testing.T) {
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer cdn.Close()

	uploader := &fakeUploader{url: cdn.URL + "/posts/missing.png"}
	p := NewProducer(&fakeRenderer{img: []byte("png")}, uploader, "https://cdn.example/fallback.png", "#news", nil)

	artifact, err := p.Produce(context.Background(), selectedItem())
	require.NoError(t, err)
	assert.True(t, artifact.Placeholder)
	assert.Equal(t, "https://cdn.example/fallback.png", artifact.ImageURL)
}

func TestFromLibraryPicksOldestObject(t *testing.T) {
	now := time.Now()
	uploader := &fakeUploader{objects: []domain.StoredObject{
		{Name: "posts/newer.png", UpdatedAt: now},
		{Name: "posts/oldest.png", UpdatedAt: now.Add(-48 * time.Hour)},
		{Name: "posts/middle.png", UpdatedAt: now.Add(-24 * time.Hour)},
	}}
	p := NewProducer(&fakeRenderer{}, uploader, "https://cdn.example/fallback.png", "#news", nil)

	artifact, err := p.FromLibrary(context.Background(), "Throwback post")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(artifact.ImageURL, "posts/oldest.png"))
	assert.Equal(t, "Throwback post", artifact.Caption)
	assert.Equal(t, "#news", artifact.TagBlock)
}

func TestFromLibraryEmpty(t *testing.T) {
	p := NewProducer(&fakeRenderer{}, &fakeUploader{}, "https://cdn.example/fallback.png", "#news", nil)

	_, err := p.FromLibrary(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

type flakyUploader struct {
	failures int
	url      string
	calls    int
}

func (f *flakyUploader) Upload(context.Context, string, []byte, string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("transient storage error")
	}
	return f.url, nil
}

func (f *flakyUploader) List(context.Context, string) ([]domain.StoredObject, error) {
	return nil, nil
}

func (f *flakyUploader) PublicURL(name string) string {
	return "https://cdn.example/" + name
}
