// Package llm provides the model collaborator abstraction for the agent:
// a blocking Generate call for the decision step, a parameterized
// GenerateText call for free-form prose, and a pull-based token stream
// that callers drain to completion or to an early-stop condition.
package llm

import "context"

// SamplingParams tunes one generation call.
type SamplingParams struct {
	Temperature       float64
	TopP              float64
	MaxTokens         int
	RepetitionPenalty float64
}

// Provider is the language-model capability the agent depends on. Both
// calls block until the full response text is available; providers that
// stream internally must drain their stream before returning.
type Provider interface {
	// Generate runs the agent's decision step. The response is expected to
	// be a single JSON object per the tool-call wire contract; providers
	// may stop early once the text looks like a complete response.
	Generate(ctx context.Context, system, user string) (string, error)

	// GenerateText produces free-form prose with explicit sampling
	// parameters. Used by the summarization pipeline.
	GenerateText(ctx context.Context, system, user string, params SamplingParams) (string, error)
}

// TokenStream is a pull-based sequence of text chunks from a model. There
// is no concurrency behind this interface; Next blocks until a chunk is
// available or the stream ends.
type TokenStream interface {
	// Next returns the next chunk and true, or "" and false at the end.
	Next() (string, bool)

	// Err returns the terminal error, if the stream ended abnormally.
	Err() error
}

// Drain consumes a stream to completion, or stops early as soon as stop
// returns true for the accumulated text. Returns whatever accumulated.
func Drain(stream TokenStream, stop func(accumulated string) bool) (string, error) {
	var out string
	for {
		chunk, ok := stream.Next()
		if !ok {
			break
		}
		out += chunk
		if stop != nil && stop(out) {
			break
		}
	}
	return out, stream.Err()
}
