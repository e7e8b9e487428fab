// File: internal/infra/export/export.go
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/model"
)

// FileExporter writes chat transcripts into a local export directory.
// Supported formats: json, markdown (md), txt.
type FileExporter struct {
	dir string
}

func NewFileExporter(dir string) (*FileExporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &FileExporter{dir: dir}, nil
}

type exportMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Thinking  string    `json:"thinking,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type exportDoc struct {
	Title      string          `json:"title"`
	Model      string          `json:"model"`
	CreatedAt  time.Time       `json:"created_at"`
	ExportedAt time.Time       `json:"exported_at"`
	Messages   []exportMessage `json:"messages"`
}

func (e *FileExporter) Export(chat *model.Chat, msgs []model.Message, format string) (string, error) {
	var ext string
	switch strings.ToLower(format) {
	case "json":
		ext = "json"
	case "markdown", "md":
		ext = "md"
	case "txt", "text":
		ext = "txt"
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", domain.ErrValidation, format)
	}

	name := fmt.Sprintf("%s_%s.%s", sanitize(chat.Title), time.Now().Format("20060102_150405"), ext)
	path := filepath.Join(e.dir, name)

	var content []byte
	var err error
	switch ext {
	case "json":
		content, err = renderJSON(chat, msgs)
	case "md":
		content = renderMarkdown(chat, msgs)
	case "txt":
		content = renderText(chat, msgs)
	}
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

func renderJSON(chat *model.Chat, msgs []model.Message) ([]byte, error) {
	doc := exportDoc{
		Title:      chat.Title,
		Model:      chat.Model,
		CreatedAt:  chat.CreatedAt,
		ExportedAt: time.Now(),
		Messages:   make([]exportMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		doc.Messages = append(doc.Messages, exportMessage{
			Role:      string(m.Role),
			Content:   m.Content,
			Thinking:  m.Thinking,
			CreatedAt: m.CreatedAt,
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}

func renderMarkdown(chat *model.Chat, msgs []model.Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", chat.Title)
	fmt.Fprintf(&b, "- **Model:** %s\n", chat.Model)
	fmt.Fprintf(&b, "- **Created:** %s\n", chat.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Exported:** %s\n\n---\n\n", time.Now().Format(time.RFC3339))
	for _, m := range msgs {
		fmt.Fprintf(&b, "## %s\n\n", roleHeading(m.Role))
		if m.Thinking != "" {
			fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(m.Thinking, "\n", "\n> "))
		}
		fmt.Fprintf(&b, "%s\n\n", m.Content)
	}
	return []byte(b.String())
}

func renderText(chat *model.Chat, msgs []model.Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", chat.Title, chat.Model)
	fmt.Fprintf(&b, "Exported %s\n\n", time.Now().Format(time.RFC3339))
	for _, m := range msgs {
		fmt.Fprintf(&b, "[%s] %s\n\n", strings.ToUpper(string(m.Role)), m.Content)
	}
	return []byte(b.String())
}

func roleHeading(role model.MessageRole) string {
	switch role {
	case model.RoleUser:
		return "User"
	case model.RoleAssistant:
		return "Assistant"
	default:
		return "System"
	}
}

// sanitize keeps filenames portable: alphanumerics, dash and underscore only.
func sanitize(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "chat"
	}
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('_')
		}
	}
	s := b.String()
	if len(s) > 60 {
		s = s[:60]
	}
	if s == "" {
		s = "chat"
	}
	return s
}
