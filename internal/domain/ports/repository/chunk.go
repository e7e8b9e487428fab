package repository

import (
	"context"

	"personal-ai-assistant/internal/domain/model"
)

// DocumentChunkRepository persists embedded document chunks per collection.
// Similarity scoring happens in the retrieval adapter; storage only needs to
// hand back the chunks of one collection.
type DocumentChunkRepository interface {
	SaveBatch(ctx context.Context, qx Tx, chunks []model.DocumentChunk) error
	FindByCollection(ctx context.Context, qx Tx, collection string) ([]model.DocumentChunk, error)
	DeleteCollection(ctx context.Context, qx Tx, collection string) error
	// Collections returns collection names with their chunk counts.
	Collections(ctx context.Context, qx Tx) (map[string]int, error)
}
