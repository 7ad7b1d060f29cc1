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
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiModel   = "gemini-2.0-flash-exp"
)

// GeminiGenerator calls the Gemini generateContent REST endpoint.
type GeminiGenerator struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

func NewGeminiGenerator(o Options) *GeminiGenerator {
	baseURL := o.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	model := o.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiGenerator{
		apiKey:      o.APIKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		maxTokens:   o.MaxTokens,
		temperature: o.Temperature,
		client:      o.httpClient(),
	}
}

func (g *GeminiGenerator) Model() string { return g.model }

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason,omitempty"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata,omitempty"`
	ModelVersion string `json:"modelVersion,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (entity.Generation, error) {
	metrics.IncLLMRequest(ProviderGemini, g.model)
	start := time.Now()

	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     g.temperature,
			MaxOutputTokens: g.maxTokens,
		},
	}

	resp, err := g.makeRequest(ctx, body)
	if err != nil {
		metrics.ObserveLLMDuration(ProviderGemini, "error", time.Since(start))
		return entity.Generation{}, err
	}

	gen, err := g.parseResponse(resp)
	if err != nil {
		metrics.IncError("llm", "parse_response")
		metrics.ObserveLLMDuration(ProviderGemini, "error", time.Since(start))
		return entity.Generation{}, &entity.RemoteCallError{Provider: ProviderGemini, Message: "unexpected response", Err: err}
	}
	gen.Latency = time.Since(start)
	metrics.ObserveLLMDuration(ProviderGemini, "success", gen.Latency)
	return gen, nil
}

func (g *GeminiGenerator) makeRequest(ctx context.Context, body geminiRequest) (*geminiResponse, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		metrics.IncError("llm", "marshal_request")
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		metrics.IncError("llm", "create_request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.IncError("llm", "http_do")
		return nil, &entity.RemoteCallError{Provider: ProviderGemini, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("close gemini response body", "err", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		metrics.IncError("llm", fmt.Sprintf("api_error_%d", resp.StatusCode))
		return nil, &entity.RemoteCallError{
			Provider:   ProviderGemini,
			StatusCode: resp.StatusCode,
			Message:    readGeminiError(resp.Body),
		}
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.IncError("llm", "decode_response")
		return nil, &entity.RemoteCallError{Provider: ProviderGemini, Message: "decode response", Err: err}
	}
	return &out, nil
}

func (g *GeminiGenerator) parseResponse(resp *geminiResponse) (entity.Generation, error) {
	if len(resp.Candidates) == 0 {
		return entity.Generation{}, fmt.Errorf("invalid response format: no candidates")
	}
	cand := resp.Candidates[0]

	var text strings.Builder
	for _, p := range cand.Content.Parts {
		text.WriteString(p.Text)
	}

	gen := entity.Generation{
		Text:         strings.TrimSpace(text.String()),
		Provider:     ProviderGemini,
		Model:        g.model,
		FinishReason: cand.FinishReason,
	}
	if resp.ModelVersion != "" {
		gen.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		gen.PromptTokens = u.PromptTokenCount
		gen.OutputTokens = u.CandidatesTokenCount
	}
	if gen.Text == "" && gen.FinishReason != "" && gen.FinishReason != "STOP" {
		return entity.Generation{}, fmt.Errorf("no text returned, finish reason %s", gen.FinishReason)
	}
	return gen, nil
}

func readGeminiError(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 64<<10))
	var errResp geminiErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return strings.TrimSpace(string(data))
}
