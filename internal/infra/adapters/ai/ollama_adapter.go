// File: internal/infra/adapters/ai/ollama_adapter.go
package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/ports/adapter"
	"personal-ai-assistant/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ModelBackend = (*OllamaAdapter)(nil)

// scanBufSize bounds a single NDJSON line from the daemon.
const scanBufSize = 1 << 20

// OllamaAdapter talks to a local Ollama daemon over its native JSON API.
// Chat responses stream as newline-delimited JSON; reasoning text arrives in
// a separate "thinking" field when the model supports it.
type OllamaAdapter struct {
	base   string // e.g., http://localhost:11434
	client *http.Client
}

func NewOllamaAdapter(baseURL string) *OllamaAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaAdapter{
		base: baseURL,
		// No client timeout: streams are long-lived, ctx bounds them.
		client: &http.Client{},
	}
}

func (o *OllamaAdapter) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.base+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ollama http %d", resp.StatusCode)
	}

	var payload struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(payload.Models))
	for _, m := range payload.Models {
		out = append(out, m.Name)
	}
	return out, nil
}

func (o *OllamaAdapter) ChatStream(ctx context.Context, model string, messages []adapter.Message, think bool) (<-chan adapter.Fragment, <-chan error) {
	frags := make(chan adapter.Fragment)
	errs := make(chan error, 1)

	go func() {
		defer close(frags)
		defer close(errs)

		start := time.Now()
		first := true

		body := struct {
			Model    string            `json:"model"`
			Messages []adapter.Message `json:"messages"`
			Stream   bool              `json:"stream"`
			Think    bool              `json:"think,omitempty"`
		}{Model: model, Messages: messages, Stream: true, Think: think}

		b, _ := json.Marshal(body)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/api/chat", bytes.NewReader(b))
		if err != nil {
			errs <- err
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := o.client.Do(req)
		if err != nil {
			metrics.IncStream("ollama", model, "failed")
			errs <- fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			metrics.IncStream("ollama", model, "failed")
			errs <- decodeOllamaError(resp)
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), scanBufSize)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk struct {
				Message struct {
					Content  string `json:"content"`
					Thinking string `json:"thinking"`
				} `json:"message"`
				Done  bool   `json:"done"`
				Error string `json:"error"`
			}
			if err := json.Unmarshal(line, &chunk); err != nil {
				metrics.IncStream("ollama", model, "failed")
				errs <- fmt.Errorf("decode chunk: %w", err)
				return
			}
			if chunk.Error != "" {
				metrics.IncStream("ollama", model, "failed")
				errs <- errors.New(chunk.Error)
				return
			}
			if first && (chunk.Message.Thinking != "" || chunk.Message.Content != "") {
				metrics.ObserveFirstFragment("ollama", model, int(time.Since(start).Milliseconds()))
				first = false
			}
			if chunk.Message.Thinking != "" {
				if !send(ctx, frags, adapter.Fragment{Kind: adapter.FragmentReasoning, Text: chunk.Message.Thinking}) {
					errs <- ctx.Err()
					return
				}
			}
			if chunk.Message.Content != "" {
				if !send(ctx, frags, adapter.Fragment{Kind: adapter.FragmentContent, Text: chunk.Message.Content}) {
					errs <- ctx.Err()
					return
				}
			}
			if chunk.Done {
				metrics.IncStream("ollama", model, "completed")
				return
			}
		}
		if err := scanner.Err(); err != nil {
			metrics.IncStream("ollama", model, "failed")
			errs <- fmt.Errorf("read stream: %w", err)
			return
		}
		// EOF without a done marker: the daemon dropped the connection.
		metrics.IncStream("ollama", model, "failed")
		errs <- errors.New("stream ended without completion")
	}()

	return frags, errs
}

func (o *OllamaAdapter) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	body := struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}{Model: model, Input: inputs}

	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/api/embed", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, decodeOllamaError(resp)
	}

	var payload struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("embed: got %d vectors for %d inputs", len(payload.Embeddings), len(inputs))
	}
	return payload.Embeddings, nil
}

func send(ctx context.Context, out chan<- adapter.Fragment, f adapter.Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

func decodeOllamaError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(b, &payload) == nil && payload.Error != "" {
		return fmt.Errorf("ollama: %s", payload.Error)
	}
	return fmt.Errorf("ollama http %d", resp.StatusCode)
}
