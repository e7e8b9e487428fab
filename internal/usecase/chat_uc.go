// File: internal/usecase/chat_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/model"
	"personal-ai-assistant/internal/domain/ports/adapter"
	"personal-ai-assistant/internal/domain/ports/repository"
	"personal-ai-assistant/internal/infra/logging"
	"personal-ai-assistant/internal/infra/metrics"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

const turnLockTTL = 5 * time.Minute

// Locker serializes turns per chat. Implemented by the redis locker.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// TokenCounter reports prompt tokens for bookkeeping; best-effort.
type TokenCounter interface {
	Count(model, text string) int
}

// Exporter writes a chat transcript to a file and returns its path.
type Exporter interface {
	Export(chat *model.Chat, msgs []model.Message, format string) (string, error)
}

// StreamRequest describes one inbound prompt.
type StreamRequest struct {
	UserID  string
	ChatID  string         // empty means create a new chat
	Prompt  string
	Model   string         // optional override
	Think   bool
	Context ContextOptions
}

// TurnStream is the live result of StreamPrompt. Events closes after the
// terminal done event; if the turn aborts instead, Errs delivers the cause.
type TurnStream struct {
	ChatID  string
	Created bool
	Events  <-chan StreamEvent
	Errs    <-chan error
}

type ChatUseCase interface {
	// StreamPrompt resolves or creates the chat, persists the user message,
	// drives the model backend and emits ordered stream events. All
	// pre-stream failures are returned synchronously; the caller never sees
	// a half-started stream.
	StreamPrompt(ctx context.Context, req StreamRequest) (*TurnStream, error)

	Create(ctx context.Context, userID, modelName string) (*model.Chat, error)
	List(ctx context.Context, userID string) ([]*model.Chat, error)
	Get(ctx context.Context, userID, chatID string) (*model.Chat, []model.Message, error)
	Rename(ctx context.Context, userID, chatID, title string) (*model.Chat, error)
	Delete(ctx context.Context, userID, chatID string) error
	Search(ctx context.Context, userID, query string) ([]repository.ChatMatch, error)
	Export(ctx context.Context, userID, chatID, format string) (string, error)

	ListModels(ctx context.Context) ([]string, error)
	DefaultModel(ctx context.Context) string
	// SetDefaultModel changes the model used for new chats. The name must be
	// one the backend currently reports.
	SetDefaultModel(ctx context.Context, name string) error
}

type chatUC struct {
	chats        repository.ChatRepository
	ai           adapter.ModelBackend
	contextUC    ContextUseCase
	locker       Locker
	tokens       TokenCounter
	exporter     Exporter
	provider     string
	systemPrompt string
	log          *zerolog.Logger

	mu           sync.RWMutex
	defaultModel string
}

func NewChatUseCase(
	chats repository.ChatRepository,
	ai adapter.ModelBackend,
	contextUC ContextUseCase,
	locker Locker,
	tokens TokenCounter,
	exporter Exporter,
	provider, systemPrompt, defaultModel string,
	logger *zerolog.Logger,
) *chatUC {
	return &chatUC{
		chats:        chats,
		ai:           ai,
		contextUC:    contextUC,
		locker:       locker,
		tokens:       tokens,
		exporter:     exporter,
		provider:     provider,
		systemPrompt: systemPrompt,
		defaultModel: defaultModel,
		log:          logger,
	}
}

func turnLockKey(chatID string) string { return "chat_turn:" + chatID }

func (c *chatUC) StreamPrompt(ctx context.Context, req StreamRequest) (*TurnStream, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, domain.ErrInvalidArgument
	}

	chat, created, err := c.resolveChat(ctx, req)
	if err != nil {
		return nil, err
	}

	log := logging.With(logging.WithChatID(ctx, chat.ID), c.log)
	log.Debug().Str("prompt", logging.Redact(prompt)).Bool("created", created).Msg("turn starting")

	lockToken, err := c.locker.TryLock(ctx, turnLockKey(chat.ID), turnLockTTL)
	if err != nil {
		return nil, domain.ErrChatBusy
	}
	unlock := func() {
		if err := c.locker.Unlock(context.Background(), turnLockKey(chat.ID), lockToken); err != nil {
			log.Warn().Err(err).Msg("turn unlock failed")
		}
	}

	persisted, err := c.chats.FindMessages(ctx, repository.NoTX, chat.ID)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("load history: %w", err)
	}
	conv := &model.Conversation{ChatID: chat.ID, Model: chat.Model, SystemPrompt: c.systemPrompt}
	conv.Hydrate(persisted)

	var sources []Source
	if !req.Context.empty() {
		ctxText, srcs, err := c.contextUC.Assemble(ctx, prompt, req.Context)
		if err != nil {
			unlock()
			return nil, err
		}
		conv.ContextBlock = ctxText
		sources = srcs
	}

	// The user message goes to storage before the model call so a crash
	// mid-stream still leaves a durable record of what was asked.
	userMsg := &model.Message{
		ChatID:  chat.ID,
		Role:    model.RoleUser,
		Content: prompt,
		Tokens:  c.countTokens(chat.Model, prompt),
	}
	if err := c.chats.AppendMessage(ctx, repository.NoTX, userMsg); err != nil {
		unlock()
		return nil, fmt.Errorf("persist user message: %w", err)
	}
	chat.DeriveTitle(prompt)
	chat.UpdatedAt = time.Now()
	if err := c.chats.Save(ctx, repository.NoTX, chat); err != nil {
		log.Warn().Err(err).Msg("chat metadata update failed")
	}

	session := NewStreamingSession(conv, c.ai)
	out := make(chan StreamEvent)
	errs := make(chan error, 1)
	start := time.Now()

	go func() {
		defer close(out)
		defer close(errs)
		defer unlock()
		defer logging.TraceDuration(log, "ChatUC.StreamPrompt")()

		if !c.emit(ctx, out, ChatRefEvent(chat.ID)) {
			errs <- domain.ErrStreamAborted
			return
		}
		if len(sources) > 0 {
			if !c.emit(ctx, out, SourcesEvent(sources)) {
				errs <- domain.ErrStreamAborted
				return
			}
		}

		events, sessionErrs := session.Stream(ctx, prompt, req.Think)
		for ev := range events {
			if ev.Type == EventDone {
				outTokens, err := c.completeTurn(chat, session)
				if err != nil {
					errs <- fmt.Errorf("persist assistant message: %w", err)
					return
				}
				metrics.ObserveStreamUsage(c.provider, chat.Model, userMsg.Tokens, outTokens,
					int(time.Since(start).Milliseconds()), true)
			}
			if !c.emit(ctx, out, ev) {
				errs <- domain.ErrStreamAborted
				return
			}
		}
		if err := <-sessionErrs; err != nil {
			// Turn discarded: the user message stays, no assistant message is
			// written.
			metrics.ObserveStreamUsage(c.provider, chat.Model, userMsg.Tokens, 0,
				int(time.Since(start).Milliseconds()), false)
			log.Warn().Err(err).Msg("stream failed mid-flight")
			errs <- err
		}
	}()

	return &TurnStream{ChatID: chat.ID, Created: created, Events: out, Errs: errs}, nil
}

func (c *chatUC) resolveChat(ctx context.Context, req StreamRequest) (*model.Chat, bool, error) {
	if req.ChatID != "" {
		chat, err := c.chats.FindByID(ctx, repository.NoTX, req.ChatID)
		if err != nil {
			return nil, false, err
		}
		if chat.UserID != req.UserID {
			return nil, false, domain.ErrNotFound
		}
		if req.Model != "" {
			// Model is immutable per session, mutable between sessions.
			chat.Model = req.Model
		}
		if chat.Model == "" {
			chat.Model = c.DefaultModel(ctx)
		}
		return chat, false, nil
	}

	modelName := req.Model
	if modelName == "" {
		modelName = c.DefaultModel(ctx)
	}
	chat := model.NewChat(uuid.NewString(), req.UserID, modelName)
	if err := c.chats.Save(ctx, repository.NoTX, chat); err != nil {
		return nil, false, fmt.Errorf("create chat: %w", err)
	}
	return chat, true, nil
}

// completeTurn persists the assistant message (with optional reasoning text)
// and bumps the chat, returning the reply's token count. Runs once per stream,
// only after done is observed. A fresh context is used so a disconnecting
// client cannot cancel persistence of a fully received reply.
func (c *chatUC) completeTurn(chat *model.Chat, session *StreamingSession) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := &model.Message{
		ChatID:   chat.ID,
		Role:     model.RoleAssistant,
		Content:  session.Reply(),
		Thinking: session.Thinking(),
		Tokens:   c.countTokens(chat.Model, session.Reply()),
	}
	if err := c.chats.AppendMessage(ctx, repository.NoTX, msg); err != nil {
		return 0, err
	}
	chat.UpdatedAt = time.Now()
	return msg.Tokens, c.chats.Save(ctx, repository.NoTX, chat)
}

func (c *chatUC) emit(ctx context.Context, out chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *chatUC) countTokens(modelName, text string) int {
	if c.tokens == nil {
		return 0
	}
	return c.tokens.Count(modelName, text)
}

func (c *chatUC) Create(ctx context.Context, userID, modelName string) (*model.Chat, error) {
	if modelName == "" {
		modelName = c.DefaultModel(ctx)
	}
	chat := model.NewChat(uuid.NewString(), userID, modelName)
	if err := c.chats.Save(ctx, repository.NoTX, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (c *chatUC) List(ctx context.Context, userID string) ([]*model.Chat, error) {
	return c.chats.FindAllByUser(ctx, repository.NoTX, userID)
}

func (c *chatUC) Get(ctx context.Context, userID, chatID string) (*model.Chat, []model.Message, error) {
	chat, err := c.ownedChat(ctx, userID, chatID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := c.chats.FindMessages(ctx, repository.NoTX, chatID)
	if err != nil {
		return nil, nil, err
	}
	return chat, msgs, nil
}

func (c *chatUC) Rename(ctx context.Context, userID, chatID, title string) (*model.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.ErrInvalidArgument
	}
	chat, err := c.ownedChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	chat.Title = title
	chat.UpdatedAt = time.Now()
	if err := c.chats.Save(ctx, repository.NoTX, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (c *chatUC) Delete(ctx context.Context, userID, chatID string) error {
	if _, err := c.ownedChat(ctx, userID, chatID); err != nil {
		return err
	}
	return c.chats.Delete(ctx, repository.NoTX, chatID)
}

func (c *chatUC) Search(ctx context.Context, userID, query string) ([]repository.ChatMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidArgument
	}
	return c.chats.SearchByContent(ctx, repository.NoTX, userID, query)
}

func (c *chatUC) Export(ctx context.Context, userID, chatID, format string) (string, error) {
	chat, msgs, err := c.Get(ctx, userID, chatID)
	if err != nil {
		return "", err
	}
	return c.exporter.Export(chat, msgs, format)
}

func (c *chatUC) ListModels(ctx context.Context) ([]string, error) {
	models, err := c.ai.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	return models, nil
}

// DefaultModel resolves the model for new chats: the configured name, else the
// first model the backend reports, else empty when nothing is installed.
func (c *chatUC) DefaultModel(ctx context.Context) string {
	c.mu.RLock()
	configured := c.defaultModel
	c.mu.RUnlock()
	if configured != "" {
		return configured
	}
	models, err := c.ai.ListModels(ctx)
	if err != nil || len(models) == 0 {
		return ""
	}
	return models[0]
}

func (c *chatUC) SetDefaultModel(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrInvalidArgument
	}
	models, err := c.ListModels(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, m := range models {
		if m == name {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: unknown model %q", domain.ErrValidation, name)
	}
	c.mu.Lock()
	c.defaultModel = name
	c.mu.Unlock()
	return nil
}

func (c *chatUC) ownedChat(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	chat, err := c.chats.FindByID(ctx, repository.NoTX, chatID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if chat.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return chat, nil
}
