// File: internal/usecase/context_uc_test.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/ports/adapter"
)

func TestContextUseCase(t *testing.T) {
	ctx := context.Background()
	testLogger := newTestLogger()

	t.Run("should place the document block before the web block", func(t *testing.T) {
		// --- Arrange ---
		docs := &fakeRetriever{ready: true, chunks: []adapter.ScoredChunk{
			{Text: "alpha facts", Score: 0.9, Source: "notes/a.md"},
			{Text: "beta facts", Score: 0.7, Source: "notes/b.md"},
		}}
		web := &fakeSearcher{results: []adapter.WebResult{
			{Title: "Gamma", URL: "https://example.com/g", Snippet: "gamma snippet"},
		}}
		uc := NewContextUseCase(docs, web, testLogger)

		// --- Act ---
		text, sources, err := uc.Assemble(ctx, "what about alpha?", ContextOptions{UseDocuments: true, UseWeb: true})

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		docIdx := strings.Index(text, "[Source 1]")
		webIdx := strings.Index(text, "[Web Source 1]")
		if docIdx < 0 || webIdx < 0 {
			t.Fatalf("missing block labels in context:\n%s", text)
		}
		if docIdx > webIdx {
			t.Error("document block must precede the web block")
		}
		if !strings.Contains(text, "[Source 2]\nbeta facts") {
			t.Error("second chunk should keep relevance order with its label")
		}
		if len(sources) != 3 {
			t.Fatalf("expected 3 sources, got %d", len(sources))
		}
		if sources[0].ID != "1" || sources[0].Kind != "document" {
			t.Errorf("unexpected first source: %+v", sources[0])
		}
		if sources[2].ID != "web-1" || sources[2].Kind != "web" || sources[2].Locator != "https://example.com/g" {
			t.Errorf("unexpected web source: %+v", sources[2])
		}
	})

	t.Run("should fail fast when documents are requested but no collection is loaded", func(t *testing.T) {
		// --- Arrange ---
		uc := NewContextUseCase(&fakeRetriever{ready: false}, &fakeSearcher{}, testLogger)

		// --- Act ---
		_, _, err := uc.Assemble(ctx, "anything", ContextOptions{UseDocuments: true})

		// --- Assert ---
		if !errors.Is(err, domain.ErrNotReady) {
			t.Fatalf("expected ErrNotReady, got: %v", err)
		}
	})

	t.Run("should wrap retrieval failures", func(t *testing.T) {
		// --- Arrange ---
		docs := &fakeRetriever{ready: true, err: errors.New("index corrupt")}
		uc := NewContextUseCase(docs, &fakeSearcher{}, testLogger)

		// --- Act ---
		_, _, err := uc.Assemble(ctx, "q", ContextOptions{UseDocuments: true})

		// --- Assert ---
		if !errors.Is(err, domain.ErrRetrievalFailure) {
			t.Fatalf("expected ErrRetrievalFailure, got: %v", err)
		}
	})

	t.Run("should wrap web search failures", func(t *testing.T) {
		// --- Arrange ---
		web := &fakeSearcher{err: errors.New("rate limited")}
		uc := NewContextUseCase(&fakeRetriever{}, web, testLogger)

		// --- Act ---
		_, _, err := uc.Assemble(ctx, "q", ContextOptions{UseWeb: true})

		// --- Assert ---
		if !errors.Is(err, domain.ErrRetrievalFailure) {
			t.Fatalf("expected ErrRetrievalFailure, got: %v", err)
		}
	})

	t.Run("should truncate source snippets but never the context text", func(t *testing.T) {
		// --- Arrange ---
		long := strings.Repeat("x", 500)
		docs := &fakeRetriever{ready: true, chunks: []adapter.ScoredChunk{{Text: long, Score: 1}}}
		uc := NewContextUseCase(docs, &fakeSearcher{}, testLogger)

		// --- Act ---
		text, sources, err := uc.Assemble(ctx, "q", ContextOptions{UseDocuments: true})

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if !strings.Contains(text, long) {
			t.Error("context text must carry the full chunk")
		}
		if got := sources[0].Snippet; len(got) != sourceSnippetLen+3 || !strings.HasSuffix(got, "...") {
			t.Errorf("snippet should be truncated to %d chars plus ellipsis, got len %d", sourceSnippetLen, len(got))
		}
	})

	t.Run("should truncate multibyte snippets on rune boundaries", func(t *testing.T) {
		// --- Arrange ---
		long := strings.Repeat("é", 500)
		docs := &fakeRetriever{ready: true, chunks: []adapter.ScoredChunk{{Text: long, Score: 1}}}
		uc := NewContextUseCase(docs, &fakeSearcher{}, testLogger)

		// --- Act ---
		_, sources, err := uc.Assemble(ctx, "q", ContextOptions{UseDocuments: true})

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		got := sources[0].Snippet
		if !utf8.ValidString(got) {
			t.Fatalf("snippet is not valid UTF-8: %q", got)
		}
		if n := utf8.RuneCountInString(got); n != sourceSnippetLen+3 {
			t.Errorf("expected %d runes plus ellipsis, got %d", sourceSnippetLen, n)
		}
	})

	t.Run("should return nothing when no context is requested", func(t *testing.T) {
		// --- Arrange ---
		uc := NewContextUseCase(&fakeRetriever{}, &fakeSearcher{}, testLogger)

		// --- Act ---
		text, sources, err := uc.Assemble(ctx, "q", ContextOptions{})

		// --- Assert ---
		if err != nil || text != "" || sources != nil {
			t.Fatalf("expected empty result, got text=%q sources=%v err=%v", text, sources, err)
		}
	})

	t.Run("should cap results at the requested limits", func(t *testing.T) {
		// --- Arrange ---
		docs := &fakeRetriever{ready: true, chunks: []adapter.ScoredChunk{
			{Text: "one"}, {Text: "two"}, {Text: "three"},
		}}
		uc := NewContextUseCase(docs, &fakeSearcher{}, testLogger)

		// --- Act ---
		_, sources, err := uc.Assemble(ctx, "q", ContextOptions{UseDocuments: true, TopK: 2})

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if len(sources) != 2 {
			t.Errorf("expected 2 sources, got %d", len(sources))
		}
	})
}
