package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"concierge/internal/config"
	"concierge/internal/logger"
)

// maxErrorBody bounds how much of a failed response body is kept on APIError.
const maxErrorBody = 2048

// APIError is returned when the API answers with a non-200 status
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

// OpenAIClient handles OpenAI-compatible API interactions
type OpenAIClient struct {
	config     *config.OpenAIConfig
	httpClient *http.Client
	provider   Provider
	chatExtra  map[string]any
	embedExtra map[string]any
	log        logger.Logger
}

// NewOpenAIClient creates a new OpenAI-compatible client. The provider is
// detected from the base URL; extra body JSON from the configuration is
// parsed once here.
func NewOpenAIClient(cfg *config.OpenAIConfig, log logger.Logger) *OpenAIClient {
	provider := DetectProvider(cfg.APIBase)
	log = log.WithFields(map[string]interface{}{"provider": string(provider)})

	c := &OpenAIClient{
		config:   cfg,
		provider: provider,
		log:      log,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
	c.chatExtra = parseExtraBody(cfg.ChatExtraBody, "OPENAI_CHAT_EXTRA_BODY", log)
	c.embedExtra = parseExtraBody(cfg.EmbeddingExtraBody, "OPENAI_EMBEDDING_EXTRA_BODY", log)
	return c
}

func parseExtraBody(raw, name string, log logger.Logger) map[string]any {
	if raw == "" {
		return nil
	}
	var extra map[string]any
	if err := json.Unmarshal([]byte(raw), &extra); err != nil {
		log.Warn("Ignoring invalid extra body", map[string]interface{}{"setting": name, "error": err.Error()})
		return nil
	}
	return extra
}

// IsEnabled returns whether the client is configured and ready
func (c *OpenAIClient) IsEnabled() bool {
	return c.config.Enabled
}

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Model       string         `json:"model"`
	Messages    []ChatMessage  `json:"messages"`
	Tools       []Tool         `json:"tools,omitempty"`
	ToolChoice  string         `json:"tool_choice,omitempty"`
	Temperature float64        `json:"temperature,omitempty"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	ExtraBody   map[string]any `json:"extra_body,omitempty"`
}

// ChatMessage represents a single message in the conversation
type ChatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Tool declares a function the model may call
type Tool struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef is the JSON-schema description of a tool
type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a function invocation returned by the model. Arguments is the
// raw JSON string the model produced.
type ToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// ChatCompletionResponse represents the API response
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// EmbeddingRequest represents an embedding request
type EmbeddingRequest struct {
	Model          string         `json:"model"`
	Input          []string       `json:"input"`
	Dimensions     int            `json:"dimensions,omitempty"`
	EncodingFormat string         `json:"encoding_format,omitempty"` // For NVIDIA API: "float"
	ExtraBody      map[string]any `json:"extra_body,omitempty"`      // For NVIDIA API: {"truncate": "NONE"}
}

// EmbeddingResponse represents the embedding API response
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// ErrClientDisabled is returned by every call when no API key is configured.
var ErrClientDisabled = errors.New("OpenAI API is not enabled (missing API key)")

// Complete performs a chat completion request and returns the first choice
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if !c.config.Enabled {
		return nil, ErrClientDisabled
	}

	body := ChatCompletionRequest{
		Model:       c.config.ChatModel,
		Messages:    req.Messages,
		Tools:       req.Tools,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		ExtraBody:   c.chatExtra,
	}
	if len(req.Tools) > 0 {
		body.ToolChoice = "auto"
	}

	var result ChatCompletionResponse
	if err := c.post(ctx, "/chat/completions", body, &result); err != nil {
		return nil, err
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no choices in completion response")
	}

	choice := result.Choices[0]
	c.log.Debug("Chat completion finished", map[string]interface{}{
		"model":        result.Model,
		"finishReason": choice.FinishReason,
		"toolCalls":    len(choice.Message.ToolCalls),
		"totalTokens":  result.Usage.TotalTokens,
	})

	return &Completion{
		Content:      cleanContent(c.provider, choice.Message.Content),
		ToolCalls:    choice.Message.ToolCalls,
		Model:        result.Model,
		FinishReason: choice.FinishReason,
	}, nil
}

// Embed creates the embedding of a single text
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if !c.config.Enabled {
		return nil, ErrClientDisabled
	}

	embeddings, err := c.createEmbeddingBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) != 1 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("embedding response contained no vector")
	}
	return embeddings[0], nil
}

// createEmbeddingBatch creates embeddings for a single batch
func (c *OpenAIClient) createEmbeddingBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := EmbeddingRequest{
		Model:          c.config.EmbeddingModel,
		Input:          texts,
		Dimensions:     c.config.EmbeddingDimensions,
		EncodingFormat: "float",
		ExtraBody:      c.embedExtra,
	}

	var result EmbeddingResponse
	if err := c.post(ctx, "/embeddings", req, &result); err != nil {
		return nil, err
	}

	// Extract embeddings in order
	embeddings := make([][]float32, len(texts))
	for _, item := range result.Data {
		if item.Index >= 0 && item.Index < len(embeddings) {
			embeddings[item.Index] = item.Embedding
		}
	}
	return embeddings, nil
}

// post sends a JSON request and decodes a 200 response into out. Non-200
// responses become *APIError; transport failures are returned wrapped so
// net.Error and context errors remain detectable with errors.As/Is.
func (c *OpenAIClient) post(ctx context.Context, path string, in, out interface{}) error {
	reqBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIBase+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
