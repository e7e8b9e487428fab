package repository

import (
	"context"

	"personal-ai-assistant/internal/domain/model"
)

// ChatMatch pairs a chat with the messages that matched a content search.
// Match snippets are truncated by the repository to 200 characters.
type ChatMatch struct {
	Chat     model.Chat
	Messages []model.Message
}

// ChatRepository is the durable-store contract the streaming core relies on:
// append-message, ordered get-history, get/create/update chat. Everything else
// is listing plumbing for the HTTP surface.
type ChatRepository interface {
	Save(ctx context.Context, qx Tx, chat *model.Chat) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Chat, error)
	FindAllByUser(ctx context.Context, qx Tx, userID string) ([]*model.Chat, error)
	// Delete removes the chat and all its messages in one statement batch.
	Delete(ctx context.Context, qx Tx, id string) error

	// AppendMessage stores one message and returns it with ID and CreatedAt
	// filled in.
	AppendMessage(ctx context.Context, qx Tx, m *model.Message) error
	// FindMessages returns all messages for a chat in creation order.
	FindMessages(ctx context.Context, qx Tx, chatID string) ([]model.Message, error)

	SearchByContent(ctx context.Context, qx Tx, userID, query string) ([]ChatMatch, error)
}
