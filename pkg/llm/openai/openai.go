// Package openai provides an OpenAI-compatible implementation of the llm
// Provider interface. It works against the standard API, Azure deployments,
// and local OpenAI-compatible servers via a custom base URL.
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/wayfindhq/wayfind/pkg/llm"
	"github.com/wayfindhq/wayfind/pkg/llm/parser"
)

// DefaultBaseURL is the standard OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Provider implements llm.Provider over the OpenAI chat completions API.
type Provider struct {
	client  openai.Client
	model   string
	baseURL string
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model used for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// NewProvider creates a provider. An empty apiKey falls back to the
// OPENAI_API_KEY environment variable; an unset base URL falls back to
// OPENAI_BASE_URL and then the public endpoint.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	p := &Provider{
		model:   "gpt-4o-mini",
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = envBaseURL
		}
	}

	p.client = openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(p.baseURL),
	)
	return p, nil
}

// Model returns the configured model name.
func (p *Provider) Model() string { return p.model }

// Generate runs the decision step. The response streams token by token and
// is drained until it looks like a complete wire-contract object, so slow
// models do not keep generating past the closing brace.
func (p *Provider) Generate(ctx context.Context, system, user string) (string, error) {
	params := p.chatParams(system, user, llm.SamplingParams{Temperature: 0.2, TopP: 0.9, MaxTokens: 1024})
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	text, err := llm.Drain(newChatStream(stream), parser.LooksComplete)
	if err != nil {
		return "", fmt.Errorf("chat completion stream failed: %w", err)
	}
	return text, nil
}

// GenerateText produces free-form prose with explicit sampling parameters.
func (p *Provider) GenerateText(ctx context.Context, system, user string, sp llm.SamplingParams) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.chatParams(system, user, sp))
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *Provider) chatParams(system, user string, sp llm.SamplingParams) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	if sp.Temperature > 0 {
		params.Temperature = openai.Float(sp.Temperature)
	}
	if sp.TopP > 0 {
		params.TopP = openai.Float(sp.TopP)
	}
	if sp.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(sp.MaxTokens))
	}
	if sp.RepetitionPenalty > 1 {
		// The chat API has no direct repetition penalty; frequency penalty
		// is the closest lever.
		params.FrequencyPenalty = openai.Float(sp.RepetitionPenalty - 1)
	}
	return params
}

// chatStream adapts the SSE chunk stream to llm.TokenStream.
type chatStream struct {
	inner *ssestream.Stream[openai.ChatCompletionChunk]
}

func newChatStream(inner *ssestream.Stream[openai.ChatCompletionChunk]) *chatStream {
	return &chatStream{inner: inner}
}

func (s *chatStream) Next() (string, bool) {
	for s.inner.Next() {
		chunk := s.inner.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		return delta, true
	}
	return "", false
}

func (s *chatStream) Err() error {
	return s.inner.Err()
}
