package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/joho/godotenv"

	"architect/internal/domain/entity"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DefaultGeminiModel = "gemini-2.0-flash-exp"
	DefaultOpenAIModel = "gpt-4o-mini"

	DefaultConfigFile = "architect.hcl"
)

type Config struct {
	Server  HTTPServerConfig
	LLM     LLMConfig
	Assets  AssetsConfig
	Metrics MetricsConfig
	Log     LogConfig
}

type HTTPServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c HTTPServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LLMConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	// DiscardResponse skips rendering generated text; the call is still made.
	DiscardResponse bool
}

type AssetsConfig struct {
	ImageURL        string
	ModelURL        string
	ViewerScriptURL string
}

func (c AssetsConfig) Entity() entity.Assets {
	return entity.Assets{
		ImageURL:        c.ImageURL,
		ModelURL:        c.ModelURL,
		ViewerScriptURL: c.ViewerScriptURL,
	}
}

type MetricsConfig struct {
	Enabled bool
	Addr    string
}

type LogConfig struct {
	Level string
}

func Default() *Config {
	return &Config{
		Server: HTTPServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:    ProviderGemini,
			MaxTokens:   2048,
			Temperature: 1,
			Timeout:     60 * time.Second,
		},
		Assets: AssetsConfig{
			ImageURL:        "https://placehold.co/600x400?text=Architectural+Render",
			ModelURL:        "https://modelviewer.dev/shared-assets/models/Astronaut.glb",
			ViewerScriptURL: "https://unpkg.com/@google/model-viewer/dist/model-viewer.min.js",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":2112",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the process configuration: defaults, then the optional HCL
// file, then environment (a .env file is loaded first if present).
// A missing API key is not an error here, see LLMConfig.CredentialError.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = getEnv("CONFIG_FILE", "")
	}
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := cfg.applyFile(path, src); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel(cfg.LLM.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server timeouts must be positive"))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("llm timeout must be positive"))
	}
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, errors.New("llm max_tokens must not be negative"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm temperature %v out of range [0,2]", c.LLM.Temperature))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics addr is required when metrics are enabled"))
	}
	return errors.Join(errs...)
}

// CredentialEnv names the variable that supplies the key for the provider.
// DefaultModel is the model used when neither the file nor the environment
// names one.
func DefaultModel(provider string) string {
	if strings.EqualFold(provider, ProviderOpenAI) {
		return DefaultOpenAIModel
	}
	return DefaultGeminiModel
}

func (c LLMConfig) CredentialEnv() string {
	if c.Provider == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "GEMINI_API_KEY"
}

// CredentialError reports a missing or unusable API key as
// *entity.ConfigurationError, nil when the key looks usable.
func (c LLMConfig) CredentialError() error {
	key := strings.TrimSpace(c.APIKey)
	switch {
	case key == "":
		return &entity.ConfigurationError{Key: c.CredentialEnv(), Reason: "is not set"}
	case key != c.APIKey || strings.ContainsAny(key, " \t\r\n"):
		return &entity.ConfigurationError{Key: c.CredentialEnv(), Reason: "contains whitespace"}
	case strings.EqualFold(key, "REPLACE_ME"):
		return &entity.ConfigurationError{Key: c.CredentialEnv(), Reason: "is still a placeholder"}
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLM.Provider))
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.APIKey = getEnv("LLM_API_KEY", getEnv(c.LLM.CredentialEnv(), c.LLM.APIKey))
	c.Assets.ImageURL = getEnv("ASSET_IMAGE_URL", c.Assets.ImageURL)
	c.Assets.ModelURL = getEnv("ASSET_MODEL_URL", c.Assets.ModelURL)
	c.Metrics.Addr = getEnv("METRICS_ADDR", c.Metrics.Addr)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	var err error
	if c.Server.Port, err = getEnvAsInt("SERVER_PORT", c.Server.Port); err != nil {
		return err
	}
	if c.LLM.MaxTokens, err = getEnvAsInt("LLM_MAX_TOKENS", c.LLM.MaxTokens); err != nil {
		return err
	}
	if c.LLM.Timeout, err = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout); err != nil {
		return err
	}
	if c.LLM.DiscardResponse, err = getEnvAsBool("LLM_DISCARD_RESPONSE", c.LLM.DiscardResponse); err != nil {
		return err
	}
	if c.Metrics.Enabled, err = getEnvAsBool("METRICS_ENABLED", c.Metrics.Enabled); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func (c *Config) applyFile(filename string, src []byte) error {
	var fc fileConfig
	if err := hclsimple.Decode(filename, src, nil, &fc); err != nil {
		return fmt.Errorf("decode config file %s: %w", filename, err)
	}
	return fc.apply(c)
}
