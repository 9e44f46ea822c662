// Package llm holds the text-completion clients the remote prediction backends talk to.
package llm

import "context"

// CompletionClient sends one prompt and returns the model's text reply.
// Implementations never retry; a failed call is returned as an error.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	// Name identifies the provider in logs and the status report
	Name() string
}
