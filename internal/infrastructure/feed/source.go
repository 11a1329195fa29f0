package feed

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"SocialPoster/internal/config"
	"SocialPoster/internal/domain"
	"SocialPoster/internal/ports"
)

const defaultMaxItems = 10

// Source fetches candidates from the configured RSS feeds. Feeds are fetched
// concurrently; a feed that fails or times out contributes zero candidates
// without failing the others.
type Source struct {
	feeds      []config.FeedConfig
	timeout    time.Duration
	logger     *slog.Logger
	httpClient *http.Client
}

var _ ports.CandidateSource = (*Source)(nil)

// NewSource wires the configured feeds with a per-feed timeout.
func NewSource(feeds []config.FeedConfig, timeout time.Duration, logger *slog.Logger) *Source {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Source{feeds: feeds, timeout: timeout, logger: logger}
}

// Fetch pulls every feed and returns the normalized candidates in feed order.
func (s *Source) Fetch(ctx context.Context) ([]domain.ContentCandidate, error) {
	perFeed := make([][]domain.ContentCandidate, len(s.feeds))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, fc := range s.feeds {
		i, fc := i, fc
		g.Go(func() error {
			candidates, err := s.fetchOne(gctx, fc)
			if err != nil {
				s.warn("feed fetch failed", "feed", fc.Name, "url", fc.URL, "error", err)
				return nil
			}
			mu.Lock()
			perFeed[i] = candidates
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []domain.ContentCandidate
	for _, batch := range perFeed {
		all = append(all, batch...)
	}
	s.debug("fetch done", "feeds", len(s.feeds), "candidates", len(all))
	return all, nil
}

func (s *Source) fetchOne(ctx context.Context, fc config.FeedConfig) ([]domain.ContentCandidate, error) {
	fctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.UserAgent = "SocialPoster/1.0"
	if s.httpClient != nil {
		parser.Client = s.httpClient
	}

	parsed, err := parser.ParseURLWithContext(fc.URL, fctx)
	if err != nil {
		return nil, err
	}

	limit := fc.MaxItems
	if limit <= 0 {
		limit = defaultMaxItems
	}

	candidates := make([]domain.ContentCandidate, 0, limit)
	for _, item := range parsed.Items {
		if len(candidates) >= limit {
			break
		}
		candidate := normalize(item, fc.Name)
		if candidate.Title == "" {
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

func normalize(item *gofeed.Item, feedName string) domain.ContentCandidate {
	sourceID := strings.TrimSpace(item.GUID)
	if sourceID == "" {
		sourceID = strings.TrimSpace(item.Link)
	}
	if sourceID == "" {
		sourceID = strings.TrimSpace(item.Title)
	}

	return domain.ContentCandidate{
		SourceID:     sourceID,
		Title:        strings.TrimSpace(item.Title),
		Description:  strings.TrimSpace(stripHTML(item.Description)),
		ImageHint:    thumbnailURL(item),
		ExternalLink: strings.TrimSpace(item.Link),
		FeedName:     feedName,
	}
}

// thumbnailURL prefers the feed's declared image and falls back to the first
// <img> inside the item description HTML.
func thumbnailURL(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.Description))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return src
}

func stripHTML(raw string) string {
	if !strings.Contains(raw, "<") {
		return raw
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	return doc.Text()
}

// FilterUnused drops candidates whose fingerprint is already in the store.
func FilterUnused(ctx context.Context, candidates []domain.ContentCandidate, store ports.FingerprintStore) []domain.ContentCandidate {
	fresh := make([]domain.ContentCandidate, 0, len(candidates))
	for _, c := range candidates {
		if store != nil && store.Contains(ctx, c.Fingerprint()) {
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh
}

func (s *Source) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Source) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
