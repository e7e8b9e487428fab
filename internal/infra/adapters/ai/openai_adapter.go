// File: internal/infra/adapters/ai/openai_adapter.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"personal-ai-assistant/internal/domain/ports/adapter"
	"personal-ai-assistant/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ModelBackend = (*OpenAIAdapter)(nil)

const defaultEmbedModel = "text-embedding-3-small"

// OpenAIAdapter implements the backend port via the Chat Completions API.
// OpenAI models expose no separate reasoning channel here, so every delta is
// emitted as answer content.
type OpenAIAdapter struct {
	client openai.Client
}

func NewOpenAIAdapter(apiKey string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	return &OpenAIAdapter{client: openai.NewClient(option.WithAPIKey(apiKey))}, nil
}

func (o *OpenAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	page, err := o.client.Models.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		out = append(out, m.ID)
	}
	return out, nil
}

func (o *OpenAIAdapter) ChatStream(ctx context.Context, model string, messages []adapter.Message, think bool) (<-chan adapter.Fragment, <-chan error) {
	frags := make(chan adapter.Fragment)
	errs := make(chan error, 1)

	go func() {
		defer close(frags)
		defer close(errs)

		params := openai.ChatCompletionNewParams{
			Model:    model,
			Messages: toOpenAIMessages(messages),
		}

		start := time.Now()
		first := true
		stream := o.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			ck := stream.Current()
			for _, ch := range ck.Choices {
				if ch.Delta.Content == "" {
					continue
				}
				if first {
					metrics.ObserveFirstFragment("openai", model, int(time.Since(start).Milliseconds()))
					first = false
				}
				if !send(ctx, frags, adapter.Fragment{Kind: adapter.FragmentContent, Text: ch.Delta.Content}) {
					errs <- ctx.Err()
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			metrics.IncStream("openai", model, "failed")
			errs <- fmt.Errorf("openai streaming error: %w", err)
			return
		}
		metrics.IncStream("openai", model, "completed")
	}()

	return frags, errs
}

func (o *OpenAIAdapter) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if model == "" {
		model = defaultEmbedModel
	}
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: model,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("embed: got %d vectors for %d inputs", len(resp.Data), len(inputs))
	}
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

func toOpenAIMessages(messages []adapter.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
