package interpret

import "context"

// ChatClient is the LLM chat completion contract used for query analysis.
type ChatClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Model() string
}
