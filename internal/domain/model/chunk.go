package model

import "time"

// DocumentChunk is one embedded slice of an ingested document.
type DocumentChunk struct {
	ID         int64
	Collection string
	Source     string
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}
