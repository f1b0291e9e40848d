package openai

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/FrenchMajesty/adaptive-classifier/internal/retry"
)

// Client is a minimal client for the OpenAI Chat API
type Client struct {
	APIKey      string
	BaseURL     string
	HTTPClient  *http.Client
	RetryConfig retry.Config
}

// LanguageModelClient is the surface the LLM tiers depend on, so tests can
// substitute a fake.
type LanguageModelClient interface {
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)
	SetBaseURL(baseURL string)
}

// ChatCompletionRequest is the request body for the chat completion endpoint
type ChatCompletionRequest struct {
	Model               string          `json:"model"`
	Messages            []ChatMessage   `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	Temperature         float32         `json:"temperature,omitempty"`
	ResponseFormat      *ResponseFormat `json:"response_format,omitempty"`
}

type ResponseFormat struct {
	Type       string         `json:"type,omitempty"`
	JsonSchema map[string]any `json:"json_schema,omitempty"`
}

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

type ChatMessage struct {
	Role    MessageRole `json:"role"`
	Content *string     `json:"content,omitempty"`
}

type ChatCompletionChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// The response from the chat completion endpoint
type ChatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   ChatCompletionUsage    `json:"usage"`
}

type ChatCompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionError carries the raw body of an unparseable or failed
// completion response for debugging.
type ChatCompletionError struct {
	Message string
	RawBody json.RawMessage
}

func (e *ChatCompletionError) Error() string {
	return e.Message
}

// apiError is the error envelope OpenAI returns on failed requests
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
