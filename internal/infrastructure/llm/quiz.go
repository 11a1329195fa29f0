package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"SocialPoster/internal/domain"
)

const quizSystemPrompt = `You write programming trivia quizzes.
Respond with a JSON array only, no prose, no markdown. Each element:
{"question": "<question text>", "options": ["a", "b", "c", "d"], "answer": "<the correct option verbatim>"}`

type quizRow struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// GenerateQuiz asks the model for count trivia questions about the given
// programming language. Same untrusted-output discipline as Select.
func (c *Client) GenerateQuiz(ctx context.Context, language string, count int) ([]domain.QuizItem, error) {
	if language == "" {
		return nil, fmt.Errorf("quiz language is required")
	}
	if count < 1 {
		count = 1
	}
	userPrompt := fmt.Sprintf("Write %d multiple-choice quiz questions about the %s programming language.", count, language)

	var lastErr error
	for attempt := 1; attempt <= maxParseAttempts; attempt++ {
		raw, err := c.complete(ctx, quizSystemPrompt, userPrompt)
		if err != nil {
			return nil, fmt.Errorf("quiz request: %w", err)
		}

		items, err := parseQuiz(raw, language, count)
		if err == nil {
			return items, nil
		}
		lastErr = err
		c.warn("quiz output rejected", "attempt", attempt, "error", err)
	}

	return nil, fmt.Errorf("quiz generation failed after %d attempts: %w", maxParseAttempts, lastErr)
}

func parseQuiz(raw, language string, count int) ([]domain.QuizItem, error) {
	var rows []quizRow
	if err := json.Unmarshal([]byte(StripFences(raw)), &rows); err != nil {
		return nil, fmt.Errorf("unparsable quiz JSON: %w", err)
	}

	items := make([]domain.QuizItem, 0, count)
	for _, row := range rows {
		question := strings.TrimSpace(row.Question)
		answer := strings.TrimSpace(row.Answer)
		if question == "" || answer == "" || len(row.Options) < 2 {
			continue
		}
		if !containsOption(row.Options, answer) {
			continue
		}
		items = append(items, domain.QuizItem{
			Language: language,
			Question: question,
			Options:  row.Options,
			Answer:   answer,
		})
		if len(items) == count {
			break
		}
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("quiz contained no valid items")
	}
	return items, nil
}

func containsOption(options []string, answer string) bool {
	for _, opt := range options {
		if strings.TrimSpace(opt) == answer {
			return true
		}
	}
	return false
}
