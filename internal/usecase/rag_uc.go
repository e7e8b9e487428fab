// File: internal/usecase/rag_uc.go
package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/model"
	"personal-ai-assistant/internal/domain/ports/adapter"
	"personal-ai-assistant/internal/domain/ports/repository"
	"personal-ai-assistant/internal/infra/metrics"
)

// Compile-time check
var _ RagUseCase = (*ragUC)(nil)

// chunkSize is the target chunk length in bytes; paragraphs are packed until
// the budget is exceeded.
const chunkSize = 1200

const embedBatchSize = 16

// JobRunner runs long work off the request path. Implemented by the worker
// pool.
type JobRunner interface {
	Submit(task func(ctx context.Context) error) error
}

type RagStatus struct {
	Collection string `json:"collection"`
	Loaded     bool   `json:"loaded"`
}

type RagUseCase interface {
	// IndexFolder chunks and embeds every supported document under folder
	// into the named collection. The embedding work runs on the job pool;
	// completion or failure is surfaced as a system notification.
	IndexFolder(ctx context.Context, userID, folder, collection string) error
	Load(ctx context.Context, collection string) error
	Collections(ctx context.Context) (map[string]int, error)
	Status(ctx context.Context) RagStatus
}

type ragUC struct {
	chunks     repository.DocumentChunkRepository
	index      adapter.DocumentIndex
	ai         adapter.ModelBackend
	jobs       JobRunner
	notifs     repository.NotificationRepository
	tm         repository.TransactionManager
	embedModel string
	log        *zerolog.Logger
}

func NewRagUseCase(
	chunks repository.DocumentChunkRepository,
	index adapter.DocumentIndex,
	ai adapter.ModelBackend,
	jobs JobRunner,
	notifs repository.NotificationRepository,
	tm repository.TransactionManager,
	embedModel string,
	logger *zerolog.Logger,
) *ragUC {
	return &ragUC{chunks: chunks, index: index, ai: ai, jobs: jobs, notifs: notifs, tm: tm, embedModel: embedModel, log: logger}
}

func (r *ragUC) IndexFolder(ctx context.Context, userID, folder, collection string) error {
	if strings.TrimSpace(folder) == "" || strings.TrimSpace(collection) == "" {
		return domain.ErrInvalidArgument
	}
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: folder does not exist: %s", domain.ErrInvalidArgument, folder)
	}

	docs, err := readDocuments(folder)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("%w: no supported documents in %s", domain.ErrValidation, folder)
	}

	job := func(jobCtx context.Context) error {
		if err := r.ingest(jobCtx, docs, collection); err != nil {
			metrics.IncIngestJob("failed")
			r.log.Error().Err(err).Str("collection", collection).Msg("document ingestion failed")
			r.notify(jobCtx, userID, "Indexing failed",
				fmt.Sprintf("Indexing collection %q failed: %v", collection, err))
			return err
		}
		metrics.IncIngestJob("completed")
		r.notify(jobCtx, userID, "Indexing complete",
			fmt.Sprintf("Collection %q is indexed and loaded.", collection))
		return nil
	}
	if err := r.jobs.Submit(job); err != nil {
		return fmt.Errorf("queue indexing job: %w", err)
	}
	return nil
}

func (r *ragUC) ingest(ctx context.Context, docs []sourceDoc, collection string) error {
	var all []model.DocumentChunk
	for _, doc := range docs {
		for _, piece := range splitChunks(doc.content) {
			all = append(all, model.DocumentChunk{
				Collection: collection,
				Source:     doc.path,
				Content:    piece,
				CreatedAt:  time.Now(),
			})
		}
	}

	for start := 0; start < len(all); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(all) {
			end = len(all)
		}
		inputs := make([]string, 0, end-start)
		for _, c := range all[start:end] {
			inputs = append(inputs, c.Content)
		}
		vectors, err := r.ai.Embed(ctx, r.embedModel, inputs)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		if len(vectors) != len(inputs) {
			return fmt.Errorf("embed batch: got %d vectors for %d inputs", len(vectors), len(inputs))
		}
		for i := range vectors {
			all[start+i].Embedding = vectors[i]
		}
	}

	// Re-indexing replaces the collection wholesale. One transaction keeps the
	// previous chunks alive until the new batch is fully stored.
	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := r.chunks.DeleteCollection(ctx, tx, collection); err != nil {
			return fmt.Errorf("clear collection: %w", err)
		}
		if err := r.chunks.SaveBatch(ctx, tx, all); err != nil {
			return fmt.Errorf("store chunks: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := r.index.Load(ctx, collection); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	r.log.Info().Str("collection", collection).Int("chunks", len(all)).Msg("collection indexed")
	return nil
}

func (r *ragUC) Load(ctx context.Context, collection string) error {
	if strings.TrimSpace(collection) == "" {
		return domain.ErrInvalidArgument
	}
	return r.index.Load(ctx, collection)
}

func (r *ragUC) Collections(ctx context.Context) (map[string]int, error) {
	return r.chunks.Collections(ctx, repository.NoTX)
}

func (r *ragUC) Status(ctx context.Context) RagStatus {
	name, loaded := r.index.Status()
	return RagStatus{Collection: name, Loaded: loaded}
}

func (r *ragUC) notify(ctx context.Context, userID, title, message string) {
	n := model.NewNotification(uuid.NewString(), userID, title, message, model.NotificationSystem)
	if err := r.notifs.Save(ctx, repository.NoTX, n); err != nil {
		r.log.Warn().Err(err).Msg("indexing notification not saved")
	}
}

type sourceDoc struct {
	path    string
	content string
}

func readDocuments(folder string) ([]sourceDoc, error) {
	var docs []sourceDoc
	err := filepath.WalkDir(folder, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
		default:
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if text := strings.TrimSpace(string(b)); text != "" {
			docs = append(docs, sourceDoc{path: path, content: text})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan folder: %w", err)
	}
	return docs, nil
}

// splitChunks packs paragraphs into chunks of roughly chunkSize bytes.
// Oversized single paragraphs are split hard, on a rune boundary.
func splitChunks(text string) []string {
	paras := strings.Split(text, "\n\n")
	var chunks []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}
	for _, p := range paras {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		for len(p) > chunkSize {
			cut := chunkSize
			for cut > 0 && !utf8.RuneStart(p[cut]) {
				cut--
			}
			flush()
			chunks = append(chunks, p[:cut])
			p = p[cut:]
		}
		if cur.Len() > 0 && cur.Len()+len(p) > chunkSize {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(p)
	}
	flush()
	return chunks
}
