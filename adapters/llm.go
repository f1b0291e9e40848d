package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/FrenchMajesty/adaptive-classifier/adapters/openai"
	"github.com/FrenchMajesty/adaptive-classifier/pkg/types"
)

const zeroShotModel = "gpt-4.1-mini"

const zeroShotSystemPrompt = `You are a text classification assistant. Given a text, classify it into a concise category label and score your own confidence.

Rules:
- Respond with a JSON object: {"label": "...", "confidence": 0.0-1.0}
- Use lowercase with underscores for labels (e.g., "technical_question", "expressing_gratitude")
- Keep labels short and descriptive (2-5 words max)
- Be consistent: similar texts should get the same label
- confidence reflects how certain you are the label fits`

const fineTunedSystemPrompt = `Classify the text. Respond with a JSON object: {"label": "...", "confidence": 0.0-1.0}.`

// llmAnswer is the JSON shape the classification prompts ask for.
type llmAnswer struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// LLMClassifier is a classifier tier backed by a chat completion model. The
// zero-shot and fine-tuned tiers are the same adapter with different models
// and prompts.
type LLMClassifier struct {
	client       openai.LanguageModelClient
	model        string
	systemPrompt string
	temperature  *float32
}

// NewZeroShotClassifier creates the general-purpose model tier.
func NewZeroShotClassifier(apiKey *string) (*LLMClassifier, error) {
	key, err := loadEnvVar(apiKey, "OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}

	return &LLMClassifier{
		client:       openai.NewClient(*key),
		model:        zeroShotModel,
		systemPrompt: zeroShotSystemPrompt,
	}, nil
}

// NewFineTunedClassifier creates the fine-tuned model tier. model is the
// fine-tune's full id (e.g. "ft:gpt-4.1-mini:acme:classify:abc123").
func NewFineTunedClassifier(apiKey *string, model string) (*LLMClassifier, error) {
	if model == "" {
		return nil, fmt.Errorf("fine-tuned model id is required")
	}
	key, err := loadEnvVar(apiKey, "OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}

	return &LLMClassifier{
		client:       openai.NewClient(*key),
		model:        model,
		systemPrompt: fineTunedSystemPrompt,
	}, nil
}

// WithClient swaps the underlying language model client. Used by tests.
func (c *LLMClassifier) WithClient(client openai.LanguageModelClient) *LLMClassifier {
	c.client = client
	return c
}

// SetTemperature sets the sampling temperature. Some models reject an
// explicit temperature, so it is omitted unless set.
func (c *LLMClassifier) SetTemperature(t float32) {
	c.temperature = &t
}

// Classify asks the model for a label and self-reported confidence.
func (c *LLMClassifier) Classify(ctx context.Context, text string) (*types.TierResult, error) {
	start := time.Now()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatMessage{
			{
				Role:    openai.MessageRoleSystem,
				Content: &c.systemPrompt,
			},
			{
				Role:    openai.MessageRoleUser,
				Content: &text,
			},
		},
		MaxCompletionTokens: 100,
		ResponseFormat:      &openai.ResponseFormat{Type: "json_object"},
	}
	if c.temperature != nil {
		req.Temperature = *c.temperature
	}

	resp, err := c.client.ChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get LLM response: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil {
		return nil, fmt.Errorf("no response from LLM")
	}

	answer, err := parseAnswer(*resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	return &types.TierResult{
		Label:      answer.Label,
		Confidence: answer.Confidence,
		Latency:    time.Since(start),
	}, nil
}

// parseAnswer decodes the model's JSON reply and normalizes the label.
func parseAnswer(content string) (*llmAnswer, error) {
	var answer llmAnswer
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &answer); err != nil {
		return nil, fmt.Errorf("failed to parse LLM answer %q: %w", content, err)
	}

	answer.Label = strings.ToLower(strings.TrimSpace(answer.Label))
	if answer.Label == "" {
		return nil, fmt.Errorf("LLM answer has empty label")
	}
	if answer.Confidence < 0 {
		answer.Confidence = 0
	}
	if answer.Confidence > 1 {
		answer.Confidence = 1
	}
	return &answer, nil
}
