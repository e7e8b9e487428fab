// File: internal/infra/web/stream_handler.go
package web

import (
	"encoding/json"
	"net/http"
	"time"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/infra/logging"
	"personal-ai-assistant/internal/infra/metrics"
	"personal-ai-assistant/internal/infra/redis"
	"personal-ai-assistant/internal/usecase"
)

// streamRequest leaves Think as a pointer so an absent field falls back to the
// configured default while an explicit false still disables reasoning.
type streamRequest struct {
	Prompt        string `json:"prompt"`
	ChatID        string `json:"chat_id"`
	Model         string `json:"model"`
	Think         *bool  `json:"think"`
	UseRag        bool   `json:"use_rag"`
	UseWeb        bool   `json:"use_web"`
	TopK          int    `json:"top_k"`
	MaxWebResults int    `json:"max_web_results"`
}

// streamFrame is the NDJSON wire shape: one frame per line. Exactly the fields
// relevant to Type are populated.
type streamFrame struct {
	Type     string `json:"type"`
	Data     any    `json:"data,omitempty"`
	Content  string `json:"content,omitempty"`
	Thinking string `json:"thinking,omitempty"`
	Message  string `json:"message,omitempty"`
}

// streamHandler runs one chat turn and writes events as they arrive, one JSON
// object per line. Pre-stream failures are plain HTTP errors; once streaming
// starts, failures become an error frame followed by connection close.
func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	userID := UserID(r.Context())
	log := logging.With(r.Context(), s.log)
	if s.limiter != nil && s.streamsPerMin > 0 {
		ok, err := s.limiter.Allow(r.Context(), redis.UserStreamKey(userID), s.streamsPerMin, time.Minute)
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable, letting request through")
		} else if !ok {
			writeError(w, domain.ErrRateLimitExceeded)
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	think := s.defaults.Think
	if req.Think != nil {
		think = *req.Think
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.defaults.TopK
	}
	maxWeb := req.MaxWebResults
	if maxWeb <= 0 {
		maxWeb = s.defaults.MaxWebResults
	}

	stream, err := s.chatUC.StreamPrompt(r.Context(), usecase.StreamRequest{
		UserID: userID,
		ChatID: req.ChatID,
		Prompt: req.Prompt,
		Model:  req.Model,
		Think:  think,
		Context: usecase.ContextOptions{
			UseDocuments:  req.UseRag,
			UseWeb:        req.UseWeb,
			TopK:          topK,
			MaxWebResults: maxWeb,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.IncStreamClients()
	defer metrics.DecStreamClients()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	writeFrame := func(f streamFrame) bool {
		if err := enc.Encode(f); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	for ev := range stream.Events {
		var frame streamFrame
		switch ev.Type {
		case usecase.EventChatRef:
			frame = streamFrame{Type: "chat_id", Data: ev.ChatID}
		case usecase.EventSources:
			frame = streamFrame{Type: "sources", Data: ev.Sources}
		case usecase.EventThinking:
			frame = streamFrame{Type: "thinking", Content: ev.Text}
		case usecase.EventContent:
			frame = streamFrame{Type: "content", Content: ev.Text}
		case usecase.EventDone:
			frame = streamFrame{Type: "done", Thinking: ev.Thinking}
		default:
			continue
		}
		if !writeFrame(frame) {
			// Client went away; the use case sees the context cancellation.
			return
		}
	}

	if err := <-stream.Errs; err != nil {
		log.Warn().Err(err).Str("chat_id", stream.ChatID).Msg("stream ended with error")
		writeFrame(streamFrame{Type: "error", Message: err.Error()})
	}
}
