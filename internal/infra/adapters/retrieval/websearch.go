// File: internal/infra/adapters/retrieval/websearch.go
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"personal-ai-assistant/internal/domain/ports/adapter"
	"personal-ai-assistant/internal/infra/metrics"
)

var _ adapter.WebSearcher = (*DuckDuckGoSearcher)(nil)

// DuckDuckGoSearcher queries the DuckDuckGo Instant Answer API. No key is
// required; results come back in relevance order.
type DuckDuckGoSearcher struct {
	base   string
	client *http.Client
}

func NewDuckDuckGoSearcher() *DuckDuckGoSearcher {
	return &DuckDuckGoSearcher{
		base:   "https://api.duckduckgo.com",
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

func (s *DuckDuckGoSearcher) Search(ctx context.Context, query string, maxResults int) ([]adapter.WebResult, error) {
	start := time.Now()
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("no_redirect", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		metrics.IncRetrieval("web", "failed")
		return nil, fmt.Errorf("web search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		metrics.IncRetrieval("web", "failed")
		return nil, fmt.Errorf("web search http %d", resp.StatusCode)
	}

	var payload struct {
		Heading       string     `json:"Heading"`
		AbstractText  string     `json:"AbstractText"`
		AbstractURL   string     `json:"AbstractURL"`
		RelatedTopics []ddgTopic `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.IncRetrieval("web", "failed")
		return nil, fmt.Errorf("decode web search: %w", err)
	}

	var out []adapter.WebResult
	if payload.AbstractText != "" {
		out = append(out, adapter.WebResult{
			Title:   payload.Heading,
			URL:     payload.AbstractURL,
			Snippet: payload.AbstractText,
		})
	}
	out = appendTopics(out, payload.RelatedTopics, maxResults)
	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}

	metrics.IncRetrieval("web", "ok")
	metrics.ObserveRetrievalLatency("web", int(time.Since(start).Milliseconds()))
	return out, nil
}

// appendTopics flattens the topic tree in order; categories nest one level.
func appendTopics(out []adapter.WebResult, topics []ddgTopic, max int) []adapter.WebResult {
	for _, t := range topics {
		if max > 0 && len(out) >= max {
			return out
		}
		if len(t.Topics) > 0 {
			out = appendTopics(out, t.Topics, max)
			continue
		}
		if t.FirstURL == "" || t.Text == "" {
			continue
		}
		out = append(out, adapter.WebResult{Title: t.Text, URL: t.FirstURL, Snippet: t.Text})
	}
	return out
}
