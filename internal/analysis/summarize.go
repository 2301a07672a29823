package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"chronicle/internal/services/llm"
)

// TextCompleter is the subset of the LLM client used for summaries.
type TextCompleter interface {
	Complete(ctx context.Context, userPrompt string) (string, error)
}

// Summarizer shortens long story beat texts before they go into the scene
// prompt. Each story beat is summarized at most once per batch; concurrent
// requests for the same beat share one call.
type Summarizer struct {
	client    TextCompleter
	threshold int

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]string
}

// NewSummarizer builds a summarizer. Texts shorter than threshold characters
// are returned unchanged.
func NewSummarizer(client TextCompleter, threshold int) *Summarizer {
	return &Summarizer{client: client, threshold: threshold, cache: map[string]string{}}
}

// Summarize returns the text to use for story beat id. On failure it returns
// the full text together with the error so callers can report it; the full
// text is then reused for the rest of the batch.
func (s *Summarizer) Summarize(ctx context.Context, id, text string) (string, error) {
	text = strings.TrimSpace(text)
	if s == nil || s.client == nil || len([]rune(text)) < s.threshold {
		return text, nil
	}
	key := id + "\x00" + text

	if cached, ok := s.lookup(key); ok {
		return cached, nil
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		if cached, ok := s.lookup(key); ok {
			return cached, nil
		}
		summary, err := s.client.Complete(ctx, BuildSummaryPrompt(text))
		if err != nil {
			if ctx.Err() == nil {
				s.remember(key, text)
			}
			return text, fmt.Errorf("summarize story beat %s: %w", id, err)
		}
		summary = llm.TrimQuotes(strings.TrimSpace(summary))
		if summary == "" {
			summary = text
		}
		s.remember(key, summary)
		return summary, nil
	})
	summary, _ := value.(string)
	if summary == "" {
		summary = text
	}
	return summary, err
}

func (s *Summarizer) remember(key, value string) {
	s.mu.Lock()
	s.cache[key] = value
	s.mu.Unlock()
}

func (s *Summarizer) lookup(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.cache[key]
	return value, ok
}
