package llm

import "context"

// Provider is the chat-completion collaborator the trivia oracle talks to.
// Any service that takes a system instruction, a prompt, a temperature and an
// output cap and returns free text can sit behind it.
type Provider interface {
	// Generate sends the request and returns the model's raw text reply.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request is a single-turn completion: a system instruction and one user prompt.
type Request struct {
	// System sets the model's role and output constraints.
	System string

	// Prompt is the user message.
	Prompt string

	// MaxTokens caps the length of the reply.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	Temperature float64
}

// UserPrompt builds a Request.
func UserPrompt(system, prompt string, temperature float64, maxTokens int) Request {
	return Request{
		System:      system,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

// Response holds the LLM's output.
type Response struct {
	// Content is the reply text exactly as the model produced it.
	Content string

	// InputTokens and OutputTokens are logged per call when the provider reports them.
	InputTokens  int
	OutputTokens int

	// Model is the actual model that served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}
