// File: internal/infra/web/mock_test.go
package web

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/model"
	"personal-ai-assistant/internal/domain/ports/repository"
	"personal-ai-assistant/internal/usecase"
)

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- mock AuthUseCase ----

type mockAuthUC struct {
	signupErr error
	loginErr  error
	user      *model.User
}

func (m *mockAuthUC) Signup(ctx context.Context, username, password string) (*model.User, error) {
	if m.signupErr != nil {
		return nil, m.signupErr
	}
	if m.user != nil {
		return m.user, nil
	}
	return &model.User{ID: "u1", Username: username}, nil
}

func (m *mockAuthUC) Login(ctx context.Context, username, password string) (*model.User, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	if m.user != nil {
		return m.user, nil
	}
	return &model.User{ID: "u1", Username: username}, nil
}

func (m *mockAuthUC) GetUser(ctx context.Context, id string) (*model.User, error) {
	if m.user != nil && m.user.ID == id {
		return m.user, nil
	}
	return nil, domain.ErrNotFound
}

// ---- mock ChatUseCase ----

type mockChatUC struct {
	chats      map[string]*model.Chat
	messages   map[string][]model.Message
	models     []string
	defaultMdl string

	streamEvents []usecase.StreamEvent
	streamErr    error // returned synchronously from StreamPrompt
	midStreamErr error // delivered on Errs after events
	lastStream   usecase.StreamRequest
}

func newMockChatUC() *mockChatUC {
	return &mockChatUC{
		chats:    make(map[string]*model.Chat),
		messages: make(map[string][]model.Message),
		models:   []string{"llama3"},
	}
}

func (m *mockChatUC) StreamPrompt(ctx context.Context, req usecase.StreamRequest) (*usecase.TurnStream, error) {
	m.lastStream = req
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	events := make(chan usecase.StreamEvent, len(m.streamEvents))
	errs := make(chan error, 1)
	for _, ev := range m.streamEvents {
		events <- ev
	}
	close(events)
	if m.midStreamErr != nil {
		errs <- m.midStreamErr
	}
	close(errs)
	return &usecase.TurnStream{ChatID: "chat-1", Events: events, Errs: errs}, nil
}

func (m *mockChatUC) Create(ctx context.Context, userID, modelName string) (*model.Chat, error) {
	chat := model.NewChat("chat-1", userID, modelName)
	m.chats[chat.ID] = chat
	return chat, nil
}

func (m *mockChatUC) List(ctx context.Context, userID string) ([]*model.Chat, error) {
	var out []*model.Chat
	for _, c := range m.chats {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockChatUC) Get(ctx context.Context, userID, chatID string) (*model.Chat, []model.Message, error) {
	c, ok := m.chats[chatID]
	if !ok || c.UserID != userID {
		return nil, nil, domain.ErrNotFound
	}
	return c, m.messages[chatID], nil
}

func (m *mockChatUC) Rename(ctx context.Context, userID, chatID, title string) (*model.Chat, error) {
	c, ok := m.chats[chatID]
	if !ok || c.UserID != userID {
		return nil, domain.ErrNotFound
	}
	c.Title = title
	return c, nil
}

func (m *mockChatUC) Delete(ctx context.Context, userID, chatID string) error {
	c, ok := m.chats[chatID]
	if !ok || c.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.chats, chatID)
	return nil
}

func (m *mockChatUC) Search(ctx context.Context, userID, query string) ([]repository.ChatMatch, error) {
	if query == "" {
		return nil, domain.ErrInvalidArgument
	}
	return nil, nil
}

func (m *mockChatUC) Export(ctx context.Context, userID, chatID, format string) (string, error) {
	if _, ok := m.chats[chatID]; !ok {
		return "", domain.ErrNotFound
	}
	return "/exports/out." + format, nil
}

func (m *mockChatUC) ListModels(ctx context.Context) ([]string, error) { return m.models, nil }

func (m *mockChatUC) DefaultModel(ctx context.Context) string {
	if m.defaultMdl != "" {
		return m.defaultMdl
	}
	if len(m.models) > 0 {
		return m.models[0]
	}
	return ""
}

func (m *mockChatUC) SetDefaultModel(ctx context.Context, name string) error {
	for _, mdl := range m.models {
		if mdl == name {
			m.defaultMdl = name
			return nil
		}
	}
	return domain.ErrValidation
}

// ---- mock TaskUseCase ----

type mockTaskUC struct {
	tasks map[string]*model.Task
}

func newMockTaskUC() *mockTaskUC { return &mockTaskUC{tasks: make(map[string]*model.Task)} }

func (m *mockTaskUC) Create(ctx context.Context, userID, title, description string, priority model.TaskPriority, due *time.Time) (*model.Task, error) {
	if title == "" {
		return nil, domain.ErrInvalidArgument
	}
	t := model.NewTask("task-1", userID, title, description, priority, due)
	m.tasks[t.ID] = t
	return t, nil
}

func (m *mockTaskUC) List(ctx context.Context, userID string, filter repository.TaskFilter) ([]*model.Task, error) {
	var out []*model.Task
	for _, t := range m.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTaskUC) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	t, ok := m.tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

func (m *mockTaskUC) Update(ctx context.Context, userID, taskID string, upd usecase.TaskUpdate) (*model.Task, error) {
	t, err := m.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if upd.Status != nil {
		if !model.ValidTaskStatus(*upd.Status) {
			return nil, domain.ErrValidation
		}
		t.Status = *upd.Status
	}
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	return t, nil
}

func (m *mockTaskUC) Delete(ctx context.Context, userID, taskID string) error {
	if _, err := m.Get(ctx, userID, taskID); err != nil {
		return err
	}
	delete(m.tasks, taskID)
	return nil
}

// ---- mock ReminderUseCase ----

type mockReminderUC struct {
	reminders map[string]*model.Reminder
}

func newMockReminderUC() *mockReminderUC {
	return &mockReminderUC{reminders: make(map[string]*model.Reminder)}
}

func (m *mockReminderUC) Create(ctx context.Context, userID, taskID string, remindAt time.Time) (*model.Reminder, error) {
	rm := model.NewReminder("rem-1", taskID, userID, remindAt)
	m.reminders[rm.ID] = rm
	return rm, nil
}

func (m *mockReminderUC) List(ctx context.Context, userID, taskID string) ([]*model.Reminder, error) {
	var out []*model.Reminder
	for _, rm := range m.reminders {
		if rm.UserID == userID && (taskID == "" || rm.TaskID == taskID) {
			out = append(out, rm)
		}
	}
	return out, nil
}

func (m *mockReminderUC) Delete(ctx context.Context, userID, reminderID string) error {
	rm, ok := m.reminders[reminderID]
	if !ok || rm.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.reminders, reminderID)
	return nil
}

func (m *mockReminderUC) SweepDue(ctx context.Context) (int, error) { return 0, nil }

// ---- mock NotificationUseCase ----

type mockNotifUC struct {
	notifs map[string]*model.Notification
}

func newMockNotifUC() *mockNotifUC {
	return &mockNotifUC{notifs: make(map[string]*model.Notification)}
}

func (m *mockNotifUC) List(ctx context.Context, userID string, unreadOnly bool) ([]*model.Notification, error) {
	var out []*model.Notification
	for _, n := range m.notifs {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *mockNotifUC) UnreadCount(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, n := range m.notifs {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *mockNotifUC) MarkRead(ctx context.Context, userID, notificationID string) (*model.Notification, error) {
	n, ok := m.notifs[notificationID]
	if !ok || n.UserID != userID {
		return nil, domain.ErrNotFound
	}
	n.Read = true
	return n, nil
}

func (m *mockNotifUC) MarkAllRead(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, n := range m.notifs {
		if n.UserID == userID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

func (m *mockNotifUC) Delete(ctx context.Context, userID, notificationID string) error {
	n, ok := m.notifs[notificationID]
	if !ok || n.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.notifs, notificationID)
	return nil
}

// ---- mock RagUseCase ----

type mockRagUC struct {
	indexErr error
	loadErr  error
	status   usecase.RagStatus
}

func (m *mockRagUC) IndexFolder(ctx context.Context, userID, folder, collection string) error {
	if m.indexErr != nil {
		return m.indexErr
	}
	if folder == "" || collection == "" {
		return domain.ErrInvalidArgument
	}
	return nil
}

func (m *mockRagUC) Load(ctx context.Context, collection string) error {
	if m.loadErr != nil {
		return m.loadErr
	}
	m.status = usecase.RagStatus{Collection: collection, Loaded: true}
	return nil
}

func (m *mockRagUC) Collections(ctx context.Context) (map[string]int, error) {
	return map[string]int{"notes": 12}, nil
}

func (m *mockRagUC) Status(ctx context.Context) usecase.RagStatus { return m.status }

// ---- mock StreamLimiter ----

type mockLimiter struct {
	allow bool
	err   error
}

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return m.allow, m.err
}

// newTestServer wires a server with all mocks and a working auth manager.
func newTestServer() (*Server, *mockChatUC, *mockTaskUC, *mockNotifUC) {
	chatUC := newMockChatUC()
	taskUC := newMockTaskUC()
	notifUC := newMockNotifUC()
	auth := NewAuthManager("test-jwt-secret-please-change", time.Minute)
	defaults := StreamDefaults{Think: true, TopK: 4, MaxWebResults: 6}
	s := NewServer(&mockAuthUC{}, chatUC, taskUC, newMockReminderUC(), notifUC, &mockRagUC{},
		auth, &mockLimiter{allow: true}, 10, defaults, newTestLogger())
	return s, chatUC, taskUC, notifUC
}
