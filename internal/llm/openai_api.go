package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Endpoints for the built-in OpenAI-compatible providers.
const (
	groqBaseURL   = "https://api.groq.com/openai/v1"
	openAIBaseURL = "https://api.openai.com/v1"
)

// OpenAIChatClient is a direct HTTP client for any OpenAI-compatible
// chat-completions API (OpenAI, Groq, and most self-hosted gateways).
type OpenAIChatClient struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewGroqClient creates a client for the Groq API.
func NewGroqClient(apiKey, model string) *OpenAIChatClient {
	return NewOpenAIChatClient("groq", groqBaseURL, apiKey, model)
}

// NewOpenAIClient creates a client for the OpenAI API.
func NewOpenAIClient(apiKey, model string) *OpenAIChatClient {
	return NewOpenAIChatClient("openai", openAIBaseURL, apiKey, model)
}

// NewOpenAIChatClient creates a client for a custom OpenAI-compatible
// endpoint. baseURL should be like "https://api.groq.com/openai/v1".
func NewOpenAIChatClient(name, baseURL, apiKey, model string) *OpenAIChatClient {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &OpenAIChatClient{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Complete sends a chat-completions request.
func (c *OpenAIChatClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" || model == c.name {
		model = c.model
	}

	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body := chatRequest{
		Model:    model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		body.Temperature = req.Temperature
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		c.baseURL+"/chat/completions", strings.NewReader(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: c.name, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider: c.name,
			Message:  strings.TrimSpace(string(respBody)),
			Code:     resp.StatusCode,
		}
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, &ProviderError{Provider: c.name, Message: "empty choices in response"}
	}

	return &CompletionResponse{
		Content: strings.TrimSpace(result.Choices[0].Message.Content),
		Model:   result.Model,
		Usage: Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
		},
		Duration: time.Since(start),
	}, nil
}

// Name returns the provider name.
func (c *OpenAIChatClient) Name() string {
	return c.name
}

// Wire structures for the chat-completions API.

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
