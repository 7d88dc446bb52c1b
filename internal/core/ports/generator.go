package ports

import (
	"context"

	"github.com/henzogomes/git-shame/internal/core/domain/roast"
)

// Prompt is one generation request: a language-specific system instruction
// plus a user turn embedding the serialized profile.
type Prompt struct {
	System string
	User   string
}

// RoastGenerator produces roast text from a prompt, either buffered or as an
// ordered token stream.
type RoastGenerator interface {
	// Generate waits for the complete text. An empty string without error
	// means the model produced nothing; the caller substitutes a fallback.
	Generate(ctx context.Context, prompt Prompt) (string, error)
	// GenerateStream invokes onDelta for every non-empty delta in
	// generation order and returns the accumulated text. An error from
	// onDelta aborts the stream; the partial accumulation is returned
	// alongside the error.
	GenerateStream(ctx context.Context, prompt Prompt, onDelta func(delta string) error) (string, error)
}

// StreamSink is the delivery channel of a streamed response. Send forwards
// one frame to the client; Done writes the terminal marker. Neither may be
// called after Done.
type StreamSink interface {
	Send(chunk roast.StreamChunk) error
	Done() error
}
