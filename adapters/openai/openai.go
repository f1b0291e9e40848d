package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/FrenchMajesty/adaptive-classifier/internal/retry"
)

const openaiBaseURL = "https://api.openai.com/v1"

// Creates a new Client
func NewClient(apiKey string) *Client {
	return &Client{
		APIKey:      apiKey,
		BaseURL:     openaiBaseURL,
		HTTPClient:  http.DefaultClient,
		RetryConfig: retry.DefaultConfig(),
	}
}

var _ LanguageModelClient = (*Client)(nil)

// Sends a chat completion request to OpenAI with retry logic
func (c *Client) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	url := c.BaseURL + "/chat/completions"

	body, err := c.doRetryableRequest(ctx, url, req, "chat")
	if err != nil {
		return nil, err
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, &ChatCompletionError{
			Message: fmt.Sprintf("failed to parse chat completion response: %v", err),
			RawBody: json.RawMessage(body),
		}
	}

	return &chatResp, nil
}

// Sets the base URL for the OpenAI client
func (c *Client) SetBaseURL(baseURL string) {
	c.BaseURL = baseURL
}

// isRetryableError determines if an error should trigger a retry
func (c *Client) isRetryableError(err error, statusCode int, _ []byte) bool {
	// Retry on server errors (5xx) and rate limiting (429)
	if statusCode >= 500 || statusCode == 429 {
		return true
	}

	// Any other status is a definitive answer, never retried.
	if statusCode != 0 {
		return false
	}

	// No status at all means the request never completed (network error).
	return err != nil
}

// doRetryableRequest executes one JSON POST with the client's retry policy
// and returns the response body of the first definitive answer.
func (c *Client) doRetryableRequest(ctx context.Context, url string, requestBody any, apiName string) ([]byte, error) {
	opts := retry.Options{
		Config:       c.RetryConfig,
		ErrorChecker: c.isRetryableError,
		Logger: func(format string, args ...any) {
			slog.Debug(fmt.Sprintf(format, args...))
		},
		APIName: "OpenAI " + apiName,
	}

	return retry.Do(ctx, opts, func(attempt int) retry.Attempt[[]byte] {
		payload, err := json.Marshal(requestBody)
		if err != nil {
			return retry.Attempt[[]byte]{Err: fmt.Errorf("failed to marshal %s request: %w", apiName, err)}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return retry.Attempt[[]byte]{Err: fmt.Errorf("failed to build %s request: %w", apiName, err)}
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

		resp, err := c.HTTPClient.Do(httpReq)
		if err != nil {
			return retry.Attempt[[]byte]{Err: fmt.Errorf("%s request failed: %w", apiName, err)}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.Attempt[[]byte]{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read %s response: %w", apiName, err)}
		}

		if resp.StatusCode != http.StatusOK {
			var envelope apiError
			msg := ""
			if json.Unmarshal(body, &envelope) == nil {
				msg = envelope.Error.Message
			}
			attemptErr := fmt.Errorf("%s request returned status %d: %s", apiName, resp.StatusCode, msg)
			if c.isRetryableError(nil, resp.StatusCode, body) {
				// Leave Err unset so the checker drives the retry on status.
				return retry.Attempt[[]byte]{StatusCode: resp.StatusCode, Body: body}
			}
			return retry.Attempt[[]byte]{StatusCode: resp.StatusCode, Body: body, Err: attemptErr}
		}

		return retry.Attempt[[]byte]{Result: body, StatusCode: resp.StatusCode, Body: body}
	})
}
