// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"personal-ai-assistant/internal/domain/model"
	"personal-ai-assistant/internal/domain/ports/repository"
	"personal-ai-assistant/internal/usecase"
)

// ===== Response DTOs =====

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type chatResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Thinking  string    `json:"thinking,omitempty"`
	Tokens    int       `json:"tokens,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type taskResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type reminderResponse struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	RemindAt  time.Time `json:"remind_at"`
	Sent      bool      `json:"sent"`
	CreatedAt time.Time `json:"created_at"`
}

type notificationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username}
}

func toChatResponse(c *model.Chat) chatResponse {
	return chatResponse{ID: c.ID, Title: c.Title, Model: c.Model, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func toMessageResponses(msgs []model.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Thinking:  m.Thinking,
			Tokens:    m.Tokens,
			CreatedAt: m.CreatedAt,
		})
	}
	return out
}

func toTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toReminderResponse(rm *model.Reminder) reminderResponse {
	return reminderResponse{ID: rm.ID, TaskID: rm.TaskID, RemindAt: rm.RemindAt, Sent: rm.Sent, CreatedAt: rm.CreatedAt}
}

func toNotificationResponse(n *model.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Kind:      string(n.Kind),
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

// ===== Auth =====

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) signupHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	user, err := s.authUC.Signup(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := s.auth.Mint(user.ID, user.Username)
	if err != nil {
		s.log.Error().Err(err).Msg("token mint failed after signup")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  toUserResponse(user),
	})
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	user, err := s.authUC.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	token, err := s.auth.Mint(user.ID, user.Username)
	if err != nil {
		s.log.Error().Err(err).Msg("token mint failed after login")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  toUserResponse(user),
	})
}

// ===== Models =====

func (s *Server) listModelsHandler(w http.ResponseWriter, r *http.Request) {
	models, err := s.chatUC.ListModels(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models":  models,
		"default": s.chatUC.DefaultModel(r.Context()),
	})
}

func (s *Server) setDefaultModelHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.chatUC.SetDefaultModel(r.Context(), req.Model); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Chats =====

func (s *Server) listChatsHandler(w http.ResponseWriter, r *http.Request) {
	chats, err := s.chatUC.List(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]chatResponse, 0, len(chats))
	for _, c := range chats {
		out = append(out, toChatResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (s *Server) createChatHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	chat, err := s.chatUC.Create(r.Context(), UserID(r.Context()), req.Model)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toChatResponse(chat))
}

func (s *Server) getChatHandler(w http.ResponseWriter, r *http.Request) {
	chat, msgs, err := s.chatUC.Get(r.Context(), UserID(r.Context()), chi.URLParam(r, "chatID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chat":     toChatResponse(chat),
		"messages": toMessageResponses(msgs),
	})
}

func (s *Server) renameChatHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	chat, err := s.chatUC.Rename(r.Context(), UserID(r.Context()), chi.URLParam(r, "chatID"), req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChatResponse(chat))
}

func (s *Server) deleteChatHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.chatUC.Delete(r.Context(), UserID(r.Context()), chi.URLParam(r, "chatID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) searchChatsHandler(w http.ResponseWriter, r *http.Request) {
	matches, err := s.chatUC.Search(r.Context(), UserID(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}

	type matchResponse struct {
		Chat    chatResponse      `json:"chat"`
		Matches []messageResponse `json:"matches"`
	}
	out := make([]matchResponse, 0, len(matches))
	for i := range matches {
		m := &matches[i]
		out = append(out, matchResponse{
			Chat:    toChatResponse(&m.Chat),
			Matches: toMessageResponses(m.Messages),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (s *Server) exportChatHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Format string `json:"format"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Format == "" {
		req.Format = "json"
	}

	path, err := s.chatUC.Export(r.Context(), UserID(r.Context()), chi.URLParam(r, "chatID"), req.Format)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

// ===== RAG =====

func (s *Server) ragIndexHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Folder     string `json:"folder"`
		Collection string `json:"collection"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.ragUC.IndexFolder(r.Context(), UserID(r.Context()), req.Folder, req.Collection); err != nil {
		writeError(w, err)
		return
	}
	// Accepted: embedding runs on the job pool; completion arrives as a
	// notification.
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "indexing"})
}

func (s *Server) ragLoadHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Collection string `json:"collection"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.ragUC.Load(r.Context(), req.Collection); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ragCollectionsHandler(w http.ResponseWriter, r *http.Request) {
	collections, err := s.ragUC.Collections(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": collections})
}

func (s *Server) ragStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ragUC.Status(r.Context()))
}

// ===== Tasks =====

type taskCreateRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

func (s *Server) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req taskCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	task, err := s.taskUC.Create(r.Context(), UserID(r.Context()), req.Title, req.Description,
		model.TaskPriority(req.Priority), req.DueDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskResponse(task))
}

func (s *Server) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	filter := repository.TaskFilter{
		Status:   model.TaskStatus(r.URL.Query().Get("status")),
		Priority: model.TaskPriority(r.URL.Query().Get("priority")),
	}
	tasks, err := s.taskUC.List(r.Context(), UserID(r.Context()), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (s *Server) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	task, err := s.taskUC.Get(r.Context(), UserID(r.Context()), chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

type taskUpdateRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

func (s *Server) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req taskUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	upd := usecase.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	}
	if req.Status != nil {
		st := model.TaskStatus(*req.Status)
		upd.Status = &st
	}
	if req.Priority != nil {
		pr := model.TaskPriority(*req.Priority)
		upd.Priority = &pr
	}

	task, err := s.taskUC.Update(r.Context(), UserID(r.Context()), chi.URLParam(r, "taskID"), upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

func (s *Server) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.taskUC.Delete(r.Context(), UserID(r.Context()), chi.URLParam(r, "taskID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Reminders =====

func (s *Server) createReminderHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID   string    `json:"task_id"`
		RemindAt time.Time `json:"remind_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	reminder, err := s.reminderUC.Create(r.Context(), UserID(r.Context()), req.TaskID, req.RemindAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReminderResponse(reminder))
}

func (s *Server) listRemindersHandler(w http.ResponseWriter, r *http.Request) {
	reminders, err := s.reminderUC.List(r.Context(), UserID(r.Context()), r.URL.Query().Get("task_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]reminderResponse, 0, len(reminders))
	for _, rm := range reminders {
		out = append(out, toReminderResponse(rm))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (s *Server) deleteReminderHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.reminderUC.Delete(r.Context(), UserID(r.Context()), chi.URLParam(r, "reminderID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Notifications =====

func (s *Server) listNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifs, err := s.notifUC.List(r.Context(), UserID(r.Context()), unreadOnly)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]notificationResponse, 0, len(notifs))
	for _, n := range notifs {
		out = append(out, toNotificationResponse(n))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (s *Server) unreadCountHandler(w http.ResponseWriter, r *http.Request) {
	count, err := s.notifUC.UnreadCount(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Server) markReadHandler(w http.ResponseWriter, r *http.Request) {
	notif, err := s.notifUC.MarkRead(r.Context(), UserID(r.Context()), chi.URLParam(r, "notificationID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationResponse(notif))
}

func (s *Server) markAllReadHandler(w http.ResponseWriter, r *http.Request) {
	count, err := s.notifUC.MarkAllRead(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": count})
}

func (s *Server) deleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.notifUC.Delete(r.Context(), UserID(r.Context()), chi.URLParam(r, "notificationID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
