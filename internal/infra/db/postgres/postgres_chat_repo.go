// File: internal/infra/db/postgres/postgres_chat_repo.go
package postgres

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/model"
	"personal-ai-assistant/internal/domain/ports/repository"
	"personal-ai-assistant/internal/infra/redis"
)

var _ repository.ChatRepository = (*PostgresChatRepo)(nil)

// searchSnippetLen caps message content returned by SearchByContent.
const searchSnippetLen = 200

// PostgresChatRepo persists chats and their messages. Message IDs are
// monotonic ULIDs so the (created_at, id) ordering key resolves same-instant
// inserts in generation order. A redis-backed history cache fronts the hot
// FindMessages path.
type PostgresChatRepo struct {
	pool  *pgxpool.Pool
	cache *redis.HistoryCache

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewPostgresChatRepo(pool *pgxpool.Pool, cache *redis.HistoryCache) *PostgresChatRepo {
	return &PostgresChatRepo{
		pool:    pool,
		cache:   cache,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (r *PostgresChatRepo) nextMessageID(at time.Time) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), r.entropy).String()
}

func (r *PostgresChatRepo) Save(ctx context.Context, qx repository.Tx, chat *model.Chat) error {
	const q = `
INSERT INTO chats (id, user_id, title, model, created_at, updated_at)
VALUES ($1,$2,$3,$4,COALESCE($5,NOW()),COALESCE($6,NOW()))
ON CONFLICT (id) DO UPDATE SET
  title=$3, model=$4, updated_at=$6;
`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, chat.ID, chat.UserID, chat.Title, chat.Model, chat.CreatedAt, chat.UpdatedAt); err != nil {
		return fmt.Errorf("save chat: %w", err)
	}
	return nil
}

func (r *PostgresChatRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Chat, error) {
	const q = `SELECT id, user_id, title, model, created_at, updated_at FROM chats WHERE id=$1;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	var c model.Chat
	if err := ex.QueryRow(ctx, q, id).Scan(&c.ID, &c.UserID, &c.Title, &c.Model, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PostgresChatRepo) FindAllByUser(ctx context.Context, qx repository.Tx, userID string) ([]*model.Chat, error) {
	const q = `
SELECT id, user_id, title, model, created_at, updated_at
  FROM chats WHERE user_id=$1 ORDER BY updated_at DESC;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Chat
	for rows.Next() {
		var c model.Chat
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Model, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *PostgresChatRepo) Delete(ctx context.Context, qx repository.Tx, id string) error {
	// messages go via ON DELETE CASCADE
	const q = `DELETE FROM chats WHERE id=$1;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *PostgresChatRepo) AppendMessage(ctx context.Context, qx repository.Tx, m *model.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if m.ID == "" {
		m.ID = r.nextMessageID(m.CreatedAt)
	}
	const q = `
INSERT INTO messages (id, chat_id, role, content, thinking, tokens, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, m.ID, m.ChatID, string(m.Role), m.Content, m.Thinking, m.Tokens, m.CreatedAt); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	r.invalidate(ctx, m.ChatID)
	return nil
}

func (r *PostgresChatRepo) FindMessages(ctx context.Context, qx repository.Tx, chatID string) ([]model.Message, error) {
	if r.cache != nil && qx == nil {
		if msgs, ok := r.cache.Get(ctx, chatID); ok {
			return msgs, nil
		}
	}
	const q = `
SELECT id, chat_id, role, content, thinking, tokens, created_at
  FROM messages WHERE chat_id=$1 ORDER BY created_at ASC, id ASC;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Message
	for rows.Next() {
		var m model.Message
		var role string
		if err := rows.Scan(&m.ID, &m.ChatID, &role, &m.Content, &m.Thinking, &m.Tokens, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = model.MessageRole(role)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if r.cache != nil && qx == nil {
		_ = r.cache.Store(ctx, chatID, out)
	}
	return out, nil
}

func (r *PostgresChatRepo) SearchByContent(ctx context.Context, qx repository.Tx, userID, query string) ([]repository.ChatMatch, error) {
	const q = `
SELECT c.id, c.user_id, c.title, c.model, c.created_at, c.updated_at,
       m.id, m.role, LEFT(m.content, $3), m.created_at
  FROM chats c
  JOIN messages m ON m.chat_id = c.id
 WHERE c.user_id = $1 AND m.content ILIKE '%' || $2 || '%'
 ORDER BY c.updated_at DESC, m.created_at ASC, m.id ASC;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, userID, query, searchSnippetLen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.ChatMatch
	index := make(map[string]int)
	for rows.Next() {
		var c model.Chat
		var m model.Message
		var role string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Model, &c.CreatedAt, &c.UpdatedAt,
			&m.ID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.ChatID = c.ID
		m.Role = model.MessageRole(role)
		i, ok := index[c.ID]
		if !ok {
			out = append(out, repository.ChatMatch{Chat: c})
			i = len(out) - 1
			index[c.ID] = i
		}
		out[i].Messages = append(out[i].Messages, m)
	}
	return out, rows.Err()
}

func (r *PostgresChatRepo) invalidate(ctx context.Context, chatID string) {
	if r.cache != nil {
		_ = r.cache.Invalidate(ctx, chatID)
	}
}
