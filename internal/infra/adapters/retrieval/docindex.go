// File: internal/infra/adapters/retrieval/docindex.go
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/model"
	"personal-ai-assistant/internal/domain/ports/adapter"
	"personal-ai-assistant/internal/domain/ports/repository"
	"personal-ai-assistant/internal/infra/metrics"
)

var _ adapter.DocumentIndex = (*DocIndex)(nil)

// similarityThreshold filters out chunks with no real relation to the query.
const similarityThreshold = 0.3

// DocIndex holds one collection's chunks in memory and scores them against
// query embeddings with cosine similarity. Collections are small enough that
// a linear scan beats operating a vector store.
type DocIndex struct {
	chunks     repository.DocumentChunkRepository
	ai         adapter.ModelBackend
	embedModel string
	log        *zerolog.Logger

	mu         sync.RWMutex
	collection string
	loaded     []model.DocumentChunk
}

func NewDocIndex(chunks repository.DocumentChunkRepository, ai adapter.ModelBackend, embedModel string, logger *zerolog.Logger) *DocIndex {
	compLog := logger.With().Str("component", "DocIndex").Logger()
	return &DocIndex{chunks: chunks, ai: ai, embedModel: embedModel, log: &compLog}
}

func (d *DocIndex) Load(ctx context.Context, collection string) error {
	loaded, err := d.chunks.FindByCollection(ctx, repository.NoTX, collection)
	if err != nil {
		return fmt.Errorf("load collection %q: %w", collection, err)
	}
	if len(loaded) == 0 {
		return fmt.Errorf("%w: collection %q has no chunks", domain.ErrNotFound, collection)
	}

	d.mu.Lock()
	d.collection = collection
	d.loaded = loaded
	d.mu.Unlock()

	metrics.SetIndexedChunks(collection, len(loaded))
	d.log.Info().Str("collection", collection).Int("chunks", len(loaded)).Msg("collection loaded")
	return nil
}

func (d *DocIndex) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.loaded) > 0
}

func (d *DocIndex) Status() (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.collection, len(d.loaded) > 0
}

func (d *DocIndex) Retrieve(ctx context.Context, query string, topK int) ([]adapter.ScoredChunk, error) {
	d.mu.RLock()
	chunks := d.loaded
	d.mu.RUnlock()
	if len(chunks) == 0 {
		return nil, domain.ErrNotReady
	}

	start := time.Now()
	vectors, err := d.ai.Embed(ctx, d.embedModel, []string{query})
	if err != nil {
		metrics.IncRetrieval("documents", "failed")
		return nil, fmt.Errorf("query embedding: %w", err)
	}
	queryVec := vectors[0]

	scored := make([]adapter.ScoredChunk, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if len(c.Embedding) == 0 {
			continue
		}
		score, err := cosineSimilarity(queryVec, c.Embedding)
		if err != nil {
			d.log.Warn().Err(err).Int64("chunk_id", c.ID).Msg("skipping chunk with bad embedding")
			continue
		}
		if score < similarityThreshold {
			continue
		}
		scored = append(scored, adapter.ScoredChunk{Text: c.Content, Score: score, Source: c.Source})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}

	metrics.IncRetrieval("documents", "ok")
	metrics.ObserveRetrievalLatency("documents", int(time.Since(start).Milliseconds()))
	return scored, nil
}

func dotProduct(vec1, vec2 []float32) (float32, error) {
	if len(vec1) != len(vec2) {
		return 0, fmt.Errorf("vectors must have the same dimension")
	}
	var product float32
	for i := range vec1 {
		product += vec1[i] * vec2[i]
	}
	return product, nil
}

func magnitude(vec []float32) float32 {
	var sumOfSquares float32
	for _, val := range vec {
		sumOfSquares += val * val
	}
	return float32(math.Sqrt(float64(sumOfSquares)))
}

func cosineSimilarity(vec1, vec2 []float32) (float32, error) {
	if len(vec1) == 0 || len(vec2) == 0 {
		return 0, fmt.Errorf("vectors cannot be empty")
	}
	product, err := dotProduct(vec1, vec2)
	if err != nil {
		return 0, err
	}
	mag1 := magnitude(vec1)
	mag2 := magnitude(vec2)
	if mag1 == 0 || mag2 == 0 {
		return 0, nil
	}
	return product / (mag1 * mag2), nil
}
