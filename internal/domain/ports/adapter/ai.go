package adapter

import "context"

// Message represents a chat message submitted to a backend.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

type FragmentKind string

const (
	FragmentReasoning FragmentKind = "reasoning"
	FragmentContent   FragmentKind = "content"
)

// Fragment is one incremental piece of backend output, tagged as reasoning or
// answer content.
type Fragment struct {
	Kind FragmentKind
	Text string
}

// ModelBackend is the port for a streaming LLM provider.
//
// ChatStream returns a fragment channel and an error channel. The fragment
// channel is closed on natural end-of-stream; a mid-stream failure is
// delivered on the error channel (buffered, closed afterwards) and terminates
// the fragment channel without a completion. Cancelling ctx aborts the
// provider call promptly.
type ModelBackend interface {
	ListModels(ctx context.Context) ([]string, error)
	ChatStream(ctx context.Context, model string, messages []Message, think bool) (<-chan Fragment, <-chan error)
	// Embed returns one vector per input, for document indexing and retrieval.
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
}
