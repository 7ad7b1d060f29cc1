package config

import (
	"fmt"
	"strings"
	"time"
)

// fileConfig mirrors architect.hcl. Every block and attribute is optional;
// unset values keep whatever the defaults provided.
//
//	server {
//	  port         = 8080
//	  read_timeout = "30s"
//	}
//	llm {
//	  provider = "gemini"
//	  model    = "gemini-2.0-flash-exp"
//	}
type fileConfig struct {
	Server   *serverBlock  `hcl:"server,block"`
	LLM      *llmBlock     `hcl:"llm,block"`
	Assets   *assetsBlock  `hcl:"assets,block"`
	Metrics  *metricsBlock `hcl:"metrics,block"`
	LogLevel *string       `hcl:"log_level,optional"`
}

type serverBlock struct {
	Host         *string `hcl:"host,optional"`
	Port         *int    `hcl:"port,optional"`
	ReadTimeout  *string `hcl:"read_timeout,optional"`
	WriteTimeout *string `hcl:"write_timeout,optional"`
}

type llmBlock struct {
	Provider        *string  `hcl:"provider,optional"`
	APIKey          *string  `hcl:"api_key,optional"`
	BaseURL         *string  `hcl:"base_url,optional"`
	Model           *string  `hcl:"model,optional"`
	MaxTokens       *int     `hcl:"max_tokens,optional"`
	Temperature     *float64 `hcl:"temperature,optional"`
	Timeout         *string  `hcl:"timeout,optional"`
	DiscardResponse *bool    `hcl:"discard_response,optional"`
}

type assetsBlock struct {
	ImageURL        *string `hcl:"image_url,optional"`
	ModelURL        *string `hcl:"model_url,optional"`
	ViewerScriptURL *string `hcl:"viewer_script_url,optional"`
}

type metricsBlock struct {
	Enabled *bool   `hcl:"enabled,optional"`
	Addr    *string `hcl:"addr,optional"`
}

func (fc fileConfig) apply(c *Config) error {
	if s := fc.Server; s != nil {
		setString(&c.Server.Host, s.Host)
		setInt(&c.Server.Port, s.Port)
		if err := setDuration(&c.Server.ReadTimeout, s.ReadTimeout, "server.read_timeout"); err != nil {
			return err
		}
		if err := setDuration(&c.Server.WriteTimeout, s.WriteTimeout, "server.write_timeout"); err != nil {
			return err
		}
	}
	if l := fc.LLM; l != nil {
		setString(&c.LLM.Provider, l.Provider)
		c.LLM.Provider = strings.ToLower(c.LLM.Provider)
		setString(&c.LLM.APIKey, l.APIKey)
		setString(&c.LLM.BaseURL, l.BaseURL)
		setString(&c.LLM.Model, l.Model)
		setInt(&c.LLM.MaxTokens, l.MaxTokens)
		if l.Temperature != nil {
			c.LLM.Temperature = *l.Temperature
		}
		if l.DiscardResponse != nil {
			c.LLM.DiscardResponse = *l.DiscardResponse
		}
		if err := setDuration(&c.LLM.Timeout, l.Timeout, "llm.timeout"); err != nil {
			return err
		}
	}
	if a := fc.Assets; a != nil {
		setString(&c.Assets.ImageURL, a.ImageURL)
		setString(&c.Assets.ModelURL, a.ModelURL)
		setString(&c.Assets.ViewerScriptURL, a.ViewerScriptURL)
	}
	if m := fc.Metrics; m != nil {
		if m.Enabled != nil {
			c.Metrics.Enabled = *m.Enabled
		}
		setString(&c.Metrics.Addr, m.Addr)
	}
	setString(&c.Log.Level, fc.LogLevel)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, name string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}
