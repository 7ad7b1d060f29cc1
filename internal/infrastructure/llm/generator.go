package llm

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"architect/internal/domain/entity"
	"architect/internal/domain/repository"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Options struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// New builds the generator for o.Provider. An unsupported provider is a
// *entity.ConfigurationError so callers can run with generation disabled.
func New(o Options) (repository.LLMGenerator, error) {
	switch strings.ToLower(o.Provider) {
	case "", ProviderGemini:
		return NewGeminiGenerator(o), nil
	case ProviderOpenAI:
		return NewChatCompletionsGenerator(o), nil
	default:
		return nil, &entity.ConfigurationError{
			Key:    "LLM_PROVIDER",
			Reason: fmt.Sprintf("value %q is not supported", o.Provider),
		}
	}
}
