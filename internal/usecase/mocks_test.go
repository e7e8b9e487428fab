// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/model"
	"personal-ai-assistant/internal/domain/ports/adapter"
	"personal-ai-assistant/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- In-memory repositories ----

type memUserRepo struct {
	mu    sync.RWMutex
	store map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[string]*model.User)}
}

func (m *memUserRepo) Save(ctx context.Context, qx repository.Tx, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.store {
		if existing.Username == u.Username && existing.ID != u.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *memUserRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) FindByUsername(ctx context.Context, qx repository.Tx, username string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memChatRepo struct {
	mu        sync.RWMutex
	chats     map[string]*model.Chat
	messages  map[string][]model.Message
	nextMsgID int

	saveErr   error // simulate chat save failures
	appendErr error // simulate message append failures
}

func newMemChatRepo() *memChatRepo {
	return &memChatRepo{chats: make(map[string]*model.Chat), messages: make(map[string][]model.Message)}
}

func (m *memChatRepo) Save(ctx context.Context, qx repository.Tx, chat *model.Chat) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *chat
	m.chats[chat.ID] = &cp
	return nil
}

func (m *memChatRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.chats[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memChatRepo) FindAllByUser(ctx context.Context, qx repository.Tx, userID string) ([]*model.Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Chat
	for _, c := range m.chats {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memChatRepo) Delete(ctx context.Context, qx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chats[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.chats, id)
	delete(m.messages, id)
	return nil
}

func (m *memChatRepo) AppendMessage(ctx context.Context, qx repository.Tx, msg *model.Message) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMsgID++
	msg.ID = "msg-" + strconv.Itoa(m.nextMsgID)
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	m.messages[msg.ChatID] = append(m.messages[msg.ChatID], *msg)
	return nil
}

func (m *memChatRepo) FindMessages(ctx context.Context, qx repository.Tx, chatID string) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Message, len(m.messages[chatID]))
	copy(out, m.messages[chatID])
	return out, nil
}

func (m *memChatRepo) SearchByContent(ctx context.Context, qx repository.Tx, userID, query string) ([]repository.ChatMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []repository.ChatMatch
	for _, c := range m.chats {
		if c.UserID != userID {
			continue
		}
		var hits []model.Message
		for _, msg := range m.messages[c.ID] {
			if strings.Contains(strings.ToLower(msg.Content), strings.ToLower(query)) {
				hits = append(hits, msg)
			}
		}
		if len(hits) > 0 {
			out = append(out, repository.ChatMatch{Chat: *c, Messages: hits})
		}
	}
	return out, nil
}

type memTaskRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Task
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{store: make(map[string]*model.Task)}
}

func (m *memTaskRepo) Save(ctx context.Context, qx repository.Tx, t *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.store[t.ID] = &cp
	return nil
}

func (m *memTaskRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTaskRepo) FindAllByUser(ctx context.Context, qx repository.Tx, userID string, filter repository.TaskFilter) ([]*model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Task
	for _, t := range m.store {
		if t.UserID != userID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memTaskRepo) Delete(ctx context.Context, qx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

type memReminderRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Reminder
}

func newMemReminderRepo() *memReminderRepo {
	return &memReminderRepo{store: make(map[string]*model.Reminder)}
}

func (m *memReminderRepo) Save(ctx context.Context, qx repository.Tx, r *model.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.store[r.ID] = &cp
	return nil
}

func (m *memReminderRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Reminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memReminderRepo) FindAllByUser(ctx context.Context, qx repository.Tx, userID, taskID string) ([]*model.Reminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Reminder
	for _, r := range m.store {
		if r.UserID != userID {
			continue
		}
		if taskID != "" && r.TaskID != taskID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemindAt.Before(out[j].RemindAt) })
	return out, nil
}

func (m *memReminderRepo) FindDue(ctx context.Context, qx repository.Tx, now time.Time) ([]*model.Reminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Reminder
	for _, r := range m.store {
		if !r.Sent && !r.RemindAt.After(now) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RemindAt.Before(out[j].RemindAt) })
	return out, nil
}

func (m *memReminderRepo) MarkSent(ctx context.Context, qx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Sent = true
	return nil
}

func (m *memReminderRepo) Delete(ctx context.Context, qx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

type memNotificationRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Notification
	order []string
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{store: make(map[string]*model.Notification)}
}

func (m *memNotificationRepo) Save(ctx context.Context, qx repository.Tx, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[n.ID]; !ok {
		m.order = append(m.order, n.ID)
	}
	cp := *n
	m.store[n.ID] = &cp
	return nil
}

func (m *memNotificationRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *memNotificationRepo) FindAllByUser(ctx context.Context, qx repository.Tx, userID string, unreadOnly bool) ([]*model.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Notification
	for i := len(m.order) - 1; i >= 0; i-- {
		n := m.store[m.order[i]]
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memNotificationRepo) CountUnread(ctx context.Context, qx repository.Tx, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cnt := 0
	for _, n := range m.store {
		if n.UserID == userID && !n.Read {
			cnt++
		}
	}
	return cnt, nil
}

func (m *memNotificationRepo) MarkRead(ctx context.Context, qx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.Read = true
	return nil
}

func (m *memNotificationRepo) MarkAllRead(ctx context.Context, qx repository.Tx, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cnt := 0
	for _, n := range m.store {
		if n.UserID == userID && !n.Read {
			n.Read = true
			cnt++
		}
	}
	return cnt, nil
}

func (m *memNotificationRepo) Delete(ctx context.Context, qx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

type memChunkRepo struct {
	mu    sync.RWMutex
	store map[string][]model.DocumentChunk

	saveBatchErr error         // simulate batch insert failures
	lastSaveTx   repository.Tx // tx handle seen by the last SaveBatch
	lastDeleteTx repository.Tx // tx handle seen by the last DeleteCollection
}

func newMemChunkRepo() *memChunkRepo {
	return &memChunkRepo{store: make(map[string][]model.DocumentChunk)}
}

func (m *memChunkRepo) SaveBatch(ctx context.Context, qx repository.Tx, chunks []model.DocumentChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSaveTx = qx
	if m.saveBatchErr != nil {
		return m.saveBatchErr
	}
	for _, c := range chunks {
		m.store[c.Collection] = append(m.store[c.Collection], c)
	}
	return nil
}

func (m *memChunkRepo) FindByCollection(ctx context.Context, qx repository.Tx, collection string) ([]model.DocumentChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.DocumentChunk, len(m.store[collection]))
	copy(out, m.store[collection])
	return out, nil
}

func (m *memChunkRepo) DeleteCollection(ctx context.Context, qx repository.Tx, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastDeleteTx = qx
	delete(m.store, collection)
	return nil
}

func (m *memChunkRepo) Collections(ctx context.Context, qx repository.Tx) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.store))
	for name, chunks := range m.store {
		out[name] = len(chunks)
	}
	return out, nil
}

// ---- Fakes ----

// fakeTM runs the function directly; unit tests have no real transactions.
type fakeTM struct{}

func (fakeTM) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// spyTM counts transactions and hands the function a marker handle so tests
// can check which repository calls ran inside one.
type spyTM struct {
	calls int
}

type txMarker struct{}

func (s *spyTM) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.calls++
	return fn(ctx, txMarker{})
}

// fakeBackend replays a scripted fragment sequence; streamErr, when set, is
// delivered after the fragments instead of a clean close.
type fakeBackend struct {
	models    []string
	modelsErr error
	script    []adapter.Fragment
	streamErr error

	embedFn func(inputs []string) ([][]float32, error)

	mu       sync.Mutex
	lastMsgs []adapter.Message
}

func (f *fakeBackend) ListModels(ctx context.Context) ([]string, error) {
	if f.modelsErr != nil {
		return nil, f.modelsErr
	}
	return f.models, nil
}

func (f *fakeBackend) ChatStream(ctx context.Context, model string, messages []adapter.Message, think bool) (<-chan adapter.Fragment, <-chan error) {
	f.mu.Lock()
	f.lastMsgs = append([]adapter.Message(nil), messages...)
	f.mu.Unlock()

	frags := make(chan adapter.Fragment)
	errs := make(chan error, 1)
	go func() {
		defer close(frags)
		defer close(errs)
		for _, fr := range f.script {
			select {
			case frags <- fr:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if f.streamErr != nil {
			errs <- f.streamErr
		}
	}()
	return frags, errs
}

func (f *fakeBackend) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if f.embedFn != nil {
		return f.embedFn(inputs)
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{float32(len(inputs[i])), 1, 0}
	}
	return out, nil
}

func (f *fakeBackend) sentMessages() []adapter.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastMsgs
}

// fakeLocker hands out tokens unless a key is held.
type fakeLocker struct {
	mu   sync.Mutex
	held map[string]string
	next int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]string)}
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return "", domain.ErrChatBusy
	}
	l.next++
	token := "tok-" + strconv.Itoa(l.next)
	l.held[key] = token
	return token, nil
}

func (l *fakeLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] != token {
		return domain.ErrNotFound
	}
	delete(l.held, key)
	return nil
}

func (l *fakeLocker) locked(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

type fakeRetriever struct {
	chunks []adapter.ScoredChunk
	ready  bool
	err    error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, topK int) ([]adapter.ScoredChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	if topK < len(f.chunks) {
		return f.chunks[:topK], nil
	}
	return f.chunks, nil
}

func (f *fakeRetriever) Ready() bool { return f.ready }

type fakeSearcher struct {
	results []adapter.WebResult
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int) ([]adapter.WebResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if maxResults < len(f.results) {
		return f.results[:maxResults], nil
	}
	return f.results, nil
}

// fakeIndex records Load calls for the ingestion tests.
type fakeIndex struct {
	fakeRetriever
	mu         sync.Mutex
	collection string
	loadErr    error
}

func (f *fakeIndex) Load(ctx context.Context, collection string) error {
	if f.loadErr != nil {
		return f.loadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collection = collection
	f.ready = true
	return nil
}

func (f *fakeIndex) Status() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collection, f.collection != ""
}

// inlineRunner executes submitted jobs synchronously so tests can assert on
// their effects immediately.
type inlineRunner struct{}

func (inlineRunner) Submit(task func(ctx context.Context) error) error {
	return task(context.Background())
}

type fakeCounter struct{}

func (fakeCounter) Count(model, text string) int { return len(text) }

type fakeExporter struct {
	lastFormat string
	path       string
	err        error
}

func (f *fakeExporter) Export(chat *model.Chat, msgs []model.Message, format string) (string, error) {
	f.lastFormat = format
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}
