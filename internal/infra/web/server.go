// File: internal/infra/web/server.go
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"personal-ai-assistant/internal/infra/logging"
	"personal-ai-assistant/internal/infra/metrics"
	"personal-ai-assistant/internal/usecase"
)

// StreamLimiter bounds how many streams a user may start per window.
// Implemented by the redis rate limiter.
type StreamLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// StreamDefaults are the per-turn knobs applied when a stream request leaves
// them unset.
type StreamDefaults struct {
	Think         bool
	TopK          int
	MaxWebResults int
}

type Server struct {
	authUC     usecase.AuthUseCase
	chatUC     usecase.ChatUseCase
	taskUC     usecase.TaskUseCase
	reminderUC usecase.ReminderUseCase
	notifUC    usecase.NotificationUseCase
	ragUC      usecase.RagUseCase

	auth          *AuthManager
	limiter       StreamLimiter
	streamsPerMin int
	defaults      StreamDefaults
	log           *zerolog.Logger

	server *http.Server
}

func NewServer(
	authUC usecase.AuthUseCase,
	chatUC usecase.ChatUseCase,
	taskUC usecase.TaskUseCase,
	reminderUC usecase.ReminderUseCase,
	notifUC usecase.NotificationUseCase,
	ragUC usecase.RagUseCase,
	auth *AuthManager,
	limiter StreamLimiter,
	streamsPerMin int,
	defaults StreamDefaults,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		authUC:        authUC,
		chatUC:        chatUC,
		taskUC:        taskUC,
		reminderUC:    reminderUC,
		notifUC:       notifUC,
		ragUC:         ragUC,
		auth:          auth,
		limiter:       limiter,
		streamsPerMin: streamsPerMin,
		defaults:      defaults,
		log:           logger,
	}
}

// Routes builds the full router: public auth + health endpoints, then the
// JWT-protected API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(requestTrace)
	r.Use(s.requestMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", s.signupHandler)
		r.Post("/auth/login", s.loginHandler)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/models", s.listModelsHandler)
			r.Post("/models/default", s.setDefaultModelHandler)

			r.Post("/chat/stream", s.streamHandler)

			r.Get("/chats", s.listChatsHandler)
			r.Post("/chats", s.createChatHandler)
			r.Get("/chats/search", s.searchChatsHandler)
			r.Get("/chats/{chatID}", s.getChatHandler)
			r.Patch("/chats/{chatID}", s.renameChatHandler)
			r.Delete("/chats/{chatID}", s.deleteChatHandler)
			r.Post("/chats/{chatID}/export", s.exportChatHandler)

			r.Post("/rag/index", s.ragIndexHandler)
			r.Post("/rag/load", s.ragLoadHandler)
			r.Get("/rag/collections", s.ragCollectionsHandler)
			r.Get("/rag/status", s.ragStatusHandler)

			r.Post("/tasks", s.createTaskHandler)
			r.Get("/tasks", s.listTasksHandler)
			r.Get("/tasks/{taskID}", s.getTaskHandler)
			r.Patch("/tasks/{taskID}", s.updateTaskHandler)
			r.Delete("/tasks/{taskID}", s.deleteTaskHandler)

			r.Post("/reminders", s.createReminderHandler)
			r.Get("/reminders", s.listRemindersHandler)
			r.Delete("/reminders/{reminderID}", s.deleteReminderHandler)

			r.Get("/notifications", s.listNotificationsHandler)
			r.Get("/notifications/unread-count", s.unreadCountHandler)
			r.Post("/notifications/{notificationID}/read", s.markReadHandler)
			r.Post("/notifications/read-all", s.markAllReadHandler)
			r.Delete("/notifications/{notificationID}", s.deleteNotificationHandler)
		})
	})

	return r
}

func (s *Server) Start(host string, port int) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// No write timeout: chat streams are long-lived.
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// authMiddleware validates the bearer token and stores the user id on the
// request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			s.log.Error().Msg("auth manager is not configured")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
		ctx = logging.WithUserID(ctx, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestTrace tags each request with a trace id that log lines pick up via
// logging.With.
func requestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		metrics.ObserveHTTPRequest(route, r.Method, ww.Status(), int(time.Since(start).Milliseconds()))
	})
}
