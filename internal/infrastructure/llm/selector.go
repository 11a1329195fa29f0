package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"SocialPoster/internal/config"
	"SocialPoster/internal/domain"
	"SocialPoster/internal/ports"
)

const maxParseAttempts = 3

const selectionSystemPrompt = `You are a social media editor for an entertainment news account.
From the candidate headlines you receive, pick the most engaging ones and rewrite them.
Respond with a JSON array only, no prose, no markdown. Each element:
{"id": "<sourceId of the candidate>", "title": "<rewritten punchy title>", "caption": "<1-2 sentence caption>"}`

// Client implements selection and quiz generation against an OpenAI-style
// chat-completions API. Model output is treated as untrusted input: it is
// stripped of code fences, parsed strictly, and validated field by field.
type Client struct {
	api    *openai.Client
	model  string
	logger *slog.Logger
}

var _ ports.Selector = (*Client)(nil)
var _ ports.QuizGenerator = (*Client)(nil)

// NewClient builds a client from configuration. BaseURL is overridable so
// tests can point it at a local fake.
func NewClient(cfg config.OpenAIConfig, logger *slog.Logger) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		model:  cfg.Model,
		logger: logger,
	}
}

type selectionRow struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Caption string `json:"caption"`
}

// Select asks the model to pick at most maxCount candidates and rewrite
// their metadata. The whole call is retried on malformed output up to
// maxParseAttempts; there is no deterministic fallback for this stage.
func (c *Client) Select(ctx context.Context, candidates []domain.ContentCandidate, maxCount int) ([]domain.SelectedItem, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates to select from")
	}
	if maxCount < 1 {
		maxCount = 1
	}

	payload, err := candidatePayload(candidates)
	if err != nil {
		return nil, fmt.Errorf("marshal candidates: %w", err)
	}
	userPrompt := fmt.Sprintf("Pick up to %d items from these candidates:\n%s", maxCount, payload)

	byID := make(map[string]domain.ContentCandidate, len(candidates))
	for _, cand := range candidates {
		byID[cand.SourceID] = cand
	}

	var lastErr error
	for attempt := 1; attempt <= maxParseAttempts; attempt++ {
		raw, err := c.complete(ctx, selectionSystemPrompt, userPrompt)
		if err != nil {
			return nil, fmt.Errorf("selection request: %w", err)
		}

		items, err := parseSelection(raw, byID, maxCount)
		if err == nil {
			return items, nil
		}
		lastErr = err
		c.warn("selection output rejected", "attempt", attempt, "error", err)
	}

	return nil, fmt.Errorf("selection failed after %d attempts: %w", maxParseAttempts, lastErr)
}

func parseSelection(raw string, byID map[string]domain.ContentCandidate, maxCount int) ([]domain.SelectedItem, error) {
	var rows []selectionRow
	if err := json.Unmarshal([]byte(StripFences(raw)), &rows); err != nil {
		return nil, fmt.Errorf("unparsable selection JSON: %w", err)
	}

	seenTitles := map[string]bool{}
	items := make([]domain.SelectedItem, 0, maxCount)
	for _, row := range rows {
		if row.ID == "" || row.Title == "" || row.Caption == "" {
			continue
		}
		candidate, ok := byID[row.ID]
		if !ok {
			// Fabricated source id: drop the item, keep the rest.
			continue
		}
		titleKey := strings.ToLower(strings.TrimSpace(row.Title))
		if seenTitles[titleKey] {
			continue
		}
		seenTitles[titleKey] = true

		items = append(items, domain.SelectedItem{
			Candidate:      candidate,
			RewrittenTitle: strings.TrimSpace(row.Title),
			CaptionText:    strings.TrimSpace(row.Caption),
		})
		if len(items) == maxCount {
			break
		}
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("selection contained no valid items")
	}
	return items, nil
}

func candidatePayload(candidates []domain.ContentCandidate) (string, error) {
	type row struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	rows := make([]row, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, row{ID: c.SourceID, Title: c.Title, Description: c.Description})
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// StripFences removes surrounding markdown code-fence markup that chat
// models like to wrap JSON in.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func (c *Client) warn(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
