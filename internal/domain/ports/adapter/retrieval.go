package adapter

import "context"

// ScoredChunk is one document-retrieval hit, highest relevance first.
type ScoredChunk struct {
	Text   string
	Score  float32
	Source string
}

// DocumentRetriever is the document-index port. Retrieve fails with
// domain.ErrNotReady when no collection has been loaded.
type DocumentRetriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]ScoredChunk, error)
	Ready() bool
}

// WebResult is one web-search hit in backend relevance order.
type WebResult struct {
	Title   string
	URL     string
	Snippet string
}

type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]WebResult, error)
}

// DocumentIndex is the full document-index surface: retrieval plus collection
// management. The aggregator only sees the DocumentRetriever subset.
type DocumentIndex interface {
	DocumentRetriever
	// Load switches the index to an existing collection. Fails with
	// domain.ErrNotFound when the collection has no chunks.
	Load(ctx context.Context, collection string) error
	// Status reports the loaded collection name, or loaded=false.
	Status() (collection string, loaded bool)
}
