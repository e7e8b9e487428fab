// File: internal/usecase/stream.go
package usecase

import (
	"context"
	"fmt"
	"strings"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/model"
	"personal-ai-assistant/internal/domain/ports/adapter"
)

type StreamEventType string

const (
	EventChatRef  StreamEventType = "chat_id"
	EventSources  StreamEventType = "sources"
	EventThinking StreamEventType = "thinking"
	EventContent  StreamEventType = "content"
	EventDone     StreamEventType = "done"
)

// Source is one context provenance entry surfaced to the caller.
type Source struct {
	ID      string  `json:"id"`
	Kind    string  `json:"kind"` // "document" | "web"
	Title   string  `json:"title,omitempty"`
	Locator string  `json:"locator,omitempty"`
	Snippet string  `json:"snippet"`
	Score   float32 `json:"score,omitempty"`
}

// StreamEvent is the closed event type emitted during one streamed turn.
// Exactly one field beyond Type is meaningful per kind; use the constructors.
type StreamEvent struct {
	Type    StreamEventType
	ChatID  string
	Sources []Source
	// Text carries one fragment for thinking/content events.
	Text string
	// Thinking carries the accumulated reasoning on the done event, "" if the
	// backend produced none.
	Thinking string
}

func ChatRefEvent(chatID string) StreamEvent { return StreamEvent{Type: EventChatRef, ChatID: chatID} }
func SourcesEvent(s []Source) StreamEvent { return StreamEvent{Type: EventSources, Sources: s} }
func ThinkingEvent(text string) StreamEvent { return StreamEvent{Type: EventThinking, Text: text} }
func ContentEvent(text string) StreamEvent { return StreamEvent{Type: EventContent, Text: text} }
func DoneEvent(thinking string) StreamEvent { return StreamEvent{Type: EventDone, Thinking: thinking} }

type sessionState int

const (
	stateInit sessionState = iota
	stateContextReady
	stateStreaming
	stateDone
	stateFailed
)

// StreamingSession drives one prompt through the model backend and
// demultiplexes its fragments into typed events. A session is single-use: it
// moves INIT -> CONTEXT_READY -> STREAMING -> DONE|FAILED and no state is
// re-entrant.
type StreamingSession struct {
	conv    *model.Conversation
	backend adapter.ModelBackend

	state    sessionState
	thinking strings.Builder
	reply    strings.Builder
}

func NewStreamingSession(conv *model.Conversation, backend adapter.ModelBackend) *StreamingSession {
	s := &StreamingSession{conv: conv, backend: backend, state: stateInit}
	if conv.ContextBlock != "" {
		s.state = stateContextReady
	}
	return s
}

// Stream submits the outbound message list and forwards backend fragments as
// typed events in delivery order. The event channel closes after the terminal
// done event; a mid-stream backend failure closes it without done and delivers
// the error on the second channel instead. On success the completed turn is
// appended to the in-memory history — the only mutation a session performs.
func (s *StreamingSession) Stream(ctx context.Context, prompt string, think bool) (<-chan StreamEvent, <-chan error) {
	events := make(chan StreamEvent)
	errs := make(chan error, 1)

	if s.state != stateInit && s.state != stateContextReady {
		s.state = stateFailed
		errs <- fmt.Errorf("session already used: %w", domain.ErrInvalidArgument)
		close(errs)
		close(events)
		return events, errs
	}
	s.state = stateStreaming

	outbound := s.conv.Outbound(prompt)
	msgs := make([]adapter.Message, 0, len(outbound))
	for _, t := range outbound {
		msgs = append(msgs, adapter.Message{Role: string(t.Role), Content: t.Text})
	}

	go func() {
		defer close(events)
		defer close(errs)

		frags, backendErrs := s.backend.ChatStream(ctx, s.conv.Model, msgs, think)
		for frag := range frags {
			var ev StreamEvent
			switch frag.Kind {
			case adapter.FragmentReasoning:
				s.thinking.WriteString(frag.Text)
				ev = ThinkingEvent(frag.Text)
			default:
				s.reply.WriteString(frag.Text)
				ev = ContentEvent(frag.Text)
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				s.state = stateFailed
				errs <- fmt.Errorf("%w: %v", domain.ErrStreamAborted, ctx.Err())
				return
			}
		}
		if err := <-backendErrs; err != nil {
			// The in-flight turn is discarded; history stays untouched.
			s.state = stateFailed
			errs <- err
			return
		}
		if err := ctx.Err(); err != nil {
			s.state = stateFailed
			errs <- fmt.Errorf("%w: %v", domain.ErrStreamAborted, err)
			return
		}

		s.conv.AppendTurn(prompt, s.reply.String())
		s.state = stateDone
		select {
		case events <- DoneEvent(s.thinking.String()):
		case <-ctx.Done():
			s.state = stateFailed
			errs <- fmt.Errorf("%w: %v", domain.ErrStreamAborted, ctx.Err())
		}
	}()

	return events, errs
}

// Reply returns the accumulated answer text. Valid once the event channel has
// closed.
func (s *StreamingSession) Reply() string { return s.reply.String() }

// Thinking returns the accumulated reasoning text, "" when the backend emitted
// none.
func (s *StreamingSession) Thinking() string { return s.thinking.String() }

// Completed reports whether the session reached DONE.
func (s *StreamingSession) Completed() bool { return s.state == stateDone }
