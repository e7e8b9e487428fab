package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultChatTitle is the placeholder a chat carries until the first user
// message derives a real title.
const DefaultChatTitle = "New Chat"

const titleMaxLen = 80

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Chat is the aggregate root for one conversation with a model.
// Messages are persisted separately and ordered by creation time.
type Chat struct {
	ID        string
	UserID    string
	Title     string
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewChat(id, userID, model string) *Chat {
	now := time.Now()
	return &Chat{
		ID:        id,
		UserID:    userID,
		Title:     DefaultChatTitle,
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DeriveTitle applies the auto-title rule: the first user message becomes the
// title, truncated to 80 characters, but only while the title is still the
// default placeholder.
func (c *Chat) DeriveTitle(firstUserMessage string) {
	if c.Title != DefaultChatTitle {
		return
	}
	t := strings.TrimSpace(firstUserMessage)
	if t == "" {
		return
	}
	if utf8.RuneCountInString(t) > titleMaxLen {
		t = string([]rune(t)[:titleMaxLen]) + "..."
	}
	c.Title = t
}

// Message is one persisted chat message. Thinking is assistant-only and
// optional. The ordering key within a chat is (CreatedAt, ID); IDs are ULIDs
// so ties resolve in generation order.
type Message struct {
	ID        string
	ChatID    string
	Role      MessageRole
	Content   string
	Thinking  string
	Tokens    int
	CreatedAt time.Time
}

// Turn is one prior exchange entry as seen by the model: role plus text.
type Turn struct {
	Role MessageRole
	Text string
}

// Conversation owns the in-memory ordered history for one chat during a single
// request. It is a snapshot hydrated from storage at session start; system and
// context messages are injected at stream time and never enter History.
type Conversation struct {
	ChatID       string
	Model        string
	SystemPrompt string
	ContextBlock string
	History      []Turn
}

// Hydrate replaces History with the user/assistant projection of persisted
// messages. System messages and reasoning text are excluded.
func (c *Conversation) Hydrate(msgs []Message) {
	c.History = c.History[:0]
	for _, m := range msgs {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		c.History = append(c.History, Turn{Role: m.Role, Text: m.Content})
	}
}

// AppendTurn records one completed exchange, user before assistant. Callers
// invoke it exactly once per finished stream.
func (c *Conversation) AppendTurn(userText, assistantText string) {
	c.History = append(c.History,
		Turn{Role: RoleUser, Text: userText},
		Turn{Role: RoleAssistant, Text: assistantText},
	)
}

// Outbound builds the message list submitted to the backend: system prompt,
// optional context block as a second system message, full history, then the
// new user prompt. The list is reconstructed fresh per call and never stored.
func (c *Conversation) Outbound(prompt string) []Turn {
	out := make([]Turn, 0, len(c.History)+3)
	if c.SystemPrompt != "" {
		out = append(out, Turn{Role: RoleSystem, Text: c.SystemPrompt})
	}
	if c.ContextBlock != "" {
		out = append(out, Turn{Role: RoleSystem, Text: c.ContextBlock})
	}
	out = append(out, c.History...)
	out = append(out, Turn{Role: RoleUser, Text: prompt})
	return out
}
