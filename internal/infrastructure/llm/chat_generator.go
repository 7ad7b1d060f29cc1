package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"architect/internal/domain/entity"
	"architect/internal/infrastructure/metrics"
)

const (
	defaultChatCompletionsURL = "https://api.openai.com/v1/chat/completions"
	defaultChatModel          = "gpt-4o-mini"
)

// ChatCompletionsGenerator talks to any OpenAI-compatible chat completions
// endpoint. baseURL is the full completions URL.
type ChatCompletionsGenerator struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

func NewChatCompletionsGenerator(o Options) *ChatCompletionsGenerator {
	baseURL := o.BaseURL
	if baseURL == "" {
		baseURL = defaultChatCompletionsURL
	}
	model := o.Model
	if model == "" {
		model = defaultChatModel
	}
	return &ChatCompletionsGenerator{
		apiKey:      o.APIKey,
		baseURL:     baseURL,
		model:       model,
		maxTokens:   o.MaxTokens,
		temperature: o.Temperature,
		client:      o.httpClient(),
	}
}

func (g *ChatCompletionsGenerator) Model() string { return g.model }

func (g *ChatCompletionsGenerator) Generate(ctx context.Context, prompt string) (entity.Generation, error) {
	metrics.IncLLMRequest(ProviderOpenAI, g.model)
	start := time.Now()

	request := map[string]interface{}{
		"model": g.model,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"temperature": g.temperature,
	}
	if g.maxTokens > 0 {
		request["max_tokens"] = g.maxTokens
	}

	response, err := g.makeRequest(ctx, request)
	if err != nil {
		metrics.ObserveLLMDuration(ProviderOpenAI, "error", time.Since(start))
		return entity.Generation{}, err
	}

	gen, err := g.parseResponse(response)
	if err != nil {
		metrics.IncError("llm", "parse_response")
		metrics.ObserveLLMDuration(ProviderOpenAI, "error", time.Since(start))
		return entity.Generation{}, &entity.RemoteCallError{Provider: ProviderOpenAI, Message: "unexpected response", Err: err}
	}
	gen.Latency = time.Since(start)
	metrics.ObserveLLMDuration(ProviderOpenAI, "success", gen.Latency)
	return gen, nil
}

func (g *ChatCompletionsGenerator) makeRequest(ctx context.Context, request map[string]interface{}) (map[string]interface{}, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		metrics.IncError("llm", "marshal_request")
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		metrics.IncError("llm", "create_request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.IncError("llm", "http_do")
		return nil, &entity.RemoteCallError{Provider: ProviderOpenAI, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("close chat response body", "err", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		metrics.IncError("llm", fmt.Sprintf("api_error_%d", resp.StatusCode))
		return nil, &entity.RemoteCallError{
			Provider:   ProviderOpenAI,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var response map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		metrics.IncError("llm", "decode_response")
		return nil, &entity.RemoteCallError{Provider: ProviderOpenAI, Message: "decode response", Err: err}
	}

	return response, nil
}

func (g *ChatCompletionsGenerator) parseResponse(response map[string]interface{}) (entity.Generation, error) {
	choices, ok := response["choices"].([]interface{})
	if !ok || len(choices) == 0 {
		return entity.Generation{}, fmt.Errorf("invalid response format: no choices")
	}

	choice, ok := choices[0].(map[string]interface{})
	if !ok {
		return entity.Generation{}, fmt.Errorf("invalid response format: invalid choice")
	}

	message, ok := choice["message"].(map[string]interface{})
	if !ok {
		return entity.Generation{}, fmt.Errorf("invalid response format: no message")
	}

	content, ok := message["content"].(string)
	if !ok {
		return entity.Generation{}, fmt.Errorf("invalid response format: no content")
	}

	gen := entity.Generation{
		Text:     strings.TrimSpace(content),
		Provider: ProviderOpenAI,
		Model:    g.model,
	}
	if reason, ok := choice["finish_reason"].(string); ok {
		gen.FinishReason = reason
	}
	if model, ok := response["model"].(string); ok && model != "" {
		gen.Model = model
	}
	if usage, ok := response["usage"].(map[string]interface{}); ok {
		if n, ok := usage["prompt_tokens"].(float64); ok {
			gen.PromptTokens = int(n)
		}
		if n, ok := usage["completion_tokens"].(float64); ok {
			gen.OutputTokens = int(n)
		}
	}
	return gen, nil
}
