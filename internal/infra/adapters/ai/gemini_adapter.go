// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"personal-ai-assistant/internal/domain/ports/adapter"
	"personal-ai-assistant/internal/infra/metrics"
)

var _ adapter.ModelBackend = (*GeminiAdapter)(nil)

// GeminiAdapter implements the backend port via the official SDK. Gemini
// surfaces reasoning as thought parts when thinking is requested.
type GeminiAdapter struct {
	client     *genai.Client
	embedModel string
}

func NewGeminiAdapter(ctx context.Context, apiKey, embedModel string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if embedModel == "" {
		embedModel = "text-embedding-004"
	}
	return &GeminiAdapter{client: c, embedModel: embedModel}, nil
}

func (g *GeminiAdapter) ListModels(ctx context.Context) ([]string, error) {
	var out []string
	for m, err := range g.client.Models.All(ctx) {
		if err != nil {
			return nil, err
		}
		if m.Name != "" {
			out = append(out, m.Name)
		}
	}
	return out, nil
}

func (g *GeminiAdapter) ChatStream(ctx context.Context, model string, messages []adapter.Message, think bool) (<-chan adapter.Fragment, <-chan error) {
	frags := make(chan adapter.Fragment)
	errs := make(chan error, 1)

	go func() {
		defer close(frags)
		defer close(errs)

		config := &genai.GenerateContentConfig{}
		if think {
			config.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
		}
		contents := toGenAIContents(messages, config)

		start := time.Now()
		first := true
		for resp, err := range g.client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				metrics.IncStream("gemini", model, "failed")
				errs <- fmt.Errorf("gemini streaming error: %w", err)
				return
			}
			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, p := range cand.Content.Parts {
					if p.Text == "" {
						continue
					}
					if first {
						metrics.ObserveFirstFragment("gemini", model, int(time.Since(start).Milliseconds()))
						first = false
					}
					kind := adapter.FragmentContent
					if p.Thought {
						kind = adapter.FragmentReasoning
					}
					if !send(ctx, frags, adapter.Fragment{Kind: kind, Text: p.Text}) {
						errs <- ctx.Err()
						return
					}
				}
			}
		}
		metrics.IncStream("gemini", model, "completed")
	}()

	return frags, errs
}

func (g *GeminiAdapter) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if model == "" {
		model = g.embedModel
	}
	contents := make([]*genai.Content, 0, len(inputs))
	for _, in := range inputs {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: in}}})
	}
	resp, err := g.client.Models.EmbedContent(ctx, model, contents, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("embed: got %d vectors for %d inputs", len(resp.Embeddings), len(inputs))
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

// toGenAIContents maps messages to Gemini roles; system messages become the
// system instruction on config rather than history entries.
func toGenAIContents(messages []adapter.Message, config *genai.GenerateContentConfig) []*genai.Content {
	var out []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case "system":
			if config.SystemInstruction == nil {
				config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
			} else {
				config.SystemInstruction.Parts = append(config.SystemInstruction.Parts, &genai.Part{Text: m.Content})
			}
		case "assistant":
			out = append(out, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: m.Content}}})
		default:
			out = append(out, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	return out
}
