// File: internal/infra/db/postgres/postgres_chunk_repo.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"personal-ai-assistant/internal/domain/model"
	"personal-ai-assistant/internal/domain/ports/repository"
)

var _ repository.DocumentChunkRepository = (*PostgresChunkRepo)(nil)

// PostgresChunkRepo stores embedded chunks with their vectors as float4[].
// Similarity search runs in the in-memory index, not in SQL.
type PostgresChunkRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresChunkRepo(pool *pgxpool.Pool) *PostgresChunkRepo {
	return &PostgresChunkRepo{pool: pool}
}

func (r *PostgresChunkRepo) SaveBatch(ctx context.Context, qx repository.Tx, chunks []model.DocumentChunk) error {
	const q = `
INSERT INTO document_chunks (collection, source, content, embedding, created_at)
VALUES ($1,$2,$3,$4,COALESCE($5,NOW()));`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	for i := range chunks {
		c := &chunks[i]
		if _, err := ex.Exec(ctx, q, c.Collection, c.Source, c.Content, c.Embedding, c.CreatedAt); err != nil {
			return fmt.Errorf("save chunk %d: %w", i, err)
		}
	}
	return nil
}

func (r *PostgresChunkRepo) FindByCollection(ctx context.Context, qx repository.Tx, collection string) ([]model.DocumentChunk, error) {
	const q = `
SELECT id, collection, source, content, embedding, created_at
  FROM document_chunks WHERE collection=$1 ORDER BY id ASC;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.DocumentChunk
	for rows.Next() {
		var c model.DocumentChunk
		if err := rows.Scan(&c.ID, &c.Collection, &c.Source, &c.Content, &c.Embedding, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresChunkRepo) DeleteCollection(ctx context.Context, qx repository.Tx, collection string) error {
	const q = `DELETE FROM document_chunks WHERE collection=$1;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, collection)
	return err
}

func (r *PostgresChunkRepo) Collections(ctx context.Context, qx repository.Tx) (map[string]int, error) {
	const q = `SELECT collection, COUNT(*) FROM document_chunks GROUP BY collection;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var name string
		var cnt int
		if err := rows.Scan(&name, &cnt); err != nil {
			return nil, err
		}
		out[name] = cnt
	}
	return out, rows.Err()
}
