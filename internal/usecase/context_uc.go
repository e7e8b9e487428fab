// File: internal/usecase/context_uc.go
package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/ports/adapter"
)

// Compile-time check
var _ ContextUseCase = (*contextUC)(nil)

// snippet length cap for the source listing; the context text injected into
// the prompt is never truncated.
const sourceSnippetLen = 200

type ContextOptions struct {
	UseDocuments  bool
	UseWeb        bool
	TopK          int
	MaxWebResults int
}

func (o ContextOptions) empty() bool { return !o.UseDocuments && !o.UseWeb }

// ContextUseCase assembles the ephemeral context block injected ahead of a
// prompt, plus the source listing surfaced to the caller.
type ContextUseCase interface {
	Assemble(ctx context.Context, prompt string, opts ContextOptions) (string, []Source, error)
}

type contextUC struct {
	docs adapter.DocumentRetriever
	web  adapter.WebSearcher
	log  *zerolog.Logger
}

func NewContextUseCase(docs adapter.DocumentRetriever, web adapter.WebSearcher, logger *zerolog.Logger) *contextUC {
	return &contextUC{docs: docs, web: web, log: logger}
}

// Assemble fetches context from the requested retrieval backends. The document
// block always precedes the web block; within each block the backend's
// relevance order is kept. Any retrieval failure is reported before a single
// model byte is sent.
func (c *contextUC) Assemble(ctx context.Context, prompt string, opts ContextOptions) (string, []Source, error) {
	if opts.empty() {
		return "", nil, nil
	}

	// Fail fast on an unloaded index so the caller never sees a stream start
	// and then error.
	if opts.UseDocuments && (c.docs == nil || !c.docs.Ready()) {
		return "", nil, domain.ErrNotReady
	}

	var blocks []string
	var sources []Source

	if opts.UseDocuments {
		topK := opts.TopK
		if topK <= 0 {
			topK = 3
		}
		chunks, err := c.docs.Retrieve(ctx, prompt, topK)
		if err != nil {
			return "", nil, fmt.Errorf("%w: document retrieval: %v", domain.ErrRetrievalFailure, err)
		}
		var b strings.Builder
		for i, ch := range chunks {
			fmt.Fprintf(&b, "[Source %d]\n%s\n", i+1, ch.Text)
			sources = append(sources, Source{
				ID:      strconv.Itoa(i + 1),
				Kind:    "document",
				Locator: ch.Source,
				Snippet: truncateSnippet(ch.Text),
				Score:   ch.Score,
			})
		}
		if b.Len() > 0 {
			blocks = append(blocks, strings.TrimRight(b.String(), "\n"))
		}
	}

	if opts.UseWeb {
		max := opts.MaxWebResults
		if max <= 0 {
			max = 5
		}
		results, err := c.web.Search(ctx, prompt, max)
		if err != nil {
			return "", nil, fmt.Errorf("%w: web search: %v", domain.ErrRetrievalFailure, err)
		}
		var b strings.Builder
		for i, r := range results {
			fmt.Fprintf(&b, "[Web Source %d]\nTitle: %s\nURL: %s\nSnippet: %s\n", i+1, r.Title, r.URL, r.Snippet)
			sources = append(sources, Source{
				ID:      fmt.Sprintf("web-%d", i+1),
				Kind:    "web",
				Title:   r.Title,
				Locator: r.URL,
				Snippet: truncateSnippet(r.Snippet),
			})
		}
		if b.Len() > 0 {
			blocks = append(blocks, strings.TrimRight(b.String(), "\n"))
		}
	}

	if len(blocks) == 0 {
		c.log.Debug().Str("prompt", prompt).Msg("context aggregation produced no results")
		return "", nil, nil
	}
	return strings.Join(blocks, "\n\n"), sources, nil
}

func truncateSnippet(s string) string {
	if utf8.RuneCountInString(s) <= sourceSnippetLen {
		return s
	}
	return string([]rune(s)[:sourceSnippetLen]) + "..."
}
