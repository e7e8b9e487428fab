// File: internal/infra/redis/history_cache.go
package redis

import (
	"context"
	"encoding/json"
	"time"

	"personal-ai-assistant/internal/domain/model"
)

// HistoryCache keeps a chat's message list hot between turns. Entries are
// invalidated on every append so readers never see a stale history.
type HistoryCache struct {
	client *Client
	ttl    time.Duration
}

func NewHistoryCache(client *Client, ttl time.Duration) *HistoryCache {
	return &HistoryCache{client: client, ttl: ttl}
}

func historyKey(chatID string) string { return "chat_history:" + chatID }

func (c *HistoryCache) Store(ctx context.Context, chatID string, msgs []model.Message) error {
	data, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, historyKey(chatID), data, c.ttl)
}

func (c *HistoryCache) Get(ctx context.Context, chatID string) ([]model.Message, bool) {
	data, err := c.client.Get(ctx, historyKey(chatID))
	if err != nil {
		return nil, false
	}
	var msgs []model.Message
	if err := json.Unmarshal([]byte(data), &msgs); err != nil {
		return nil, false
	}
	return msgs, true
}

func (c *HistoryCache) Invalidate(ctx context.Context, chatID string) error {
	return c.client.Del(ctx, historyKey(chatID))
}
