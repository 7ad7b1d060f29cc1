package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Outcome string

const (
	OutcomeGenerated    Outcome = "generated"
	OutcomeDiscarded    Outcome = "discarded"
	OutcomeDisabled     Outcome = "disabled"
	OutcomeRemoteFailed Outcome = "remote_failed"
)

const (
	StatusWorkflowActive = "Agentic Workflow Active..."
	StatusAnalyzing      = "Analyzing spatial constraints..."
	StatusFinalized      = "Design Finalized!"
)

func StatusCalculatingLoad(area float64) string {
	return fmt.Sprintf("Calculating load for %s sq. ft footprint...", FormatFeet(area))
}

// Assets are the fixed visual placeholders shown next to every result.
type Assets struct {
	ImageURL        string `json:"image_url"`
	ModelURL        string `json:"model_url"`
	ViewerScriptURL string `json:"viewer_script_url"`
}

type Generation struct {
	Text         string        `json:"text"`
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	FinishReason string        `json:"finish_reason,omitempty"`
	PromptTokens int           `json:"prompt_tokens,omitempty"`
	OutputTokens int           `json:"output_tokens,omitempty"`
	Latency      time.Duration `json:"latency"`
}

type DesignResult struct {
	ID          string        `json:"id"`
	Request     DesignRequest `json:"request"`
	Area        float64       `json:"area"`
	TotalArea   float64       `json:"total_area"`
	Prompt      string        `json:"prompt"`
	Status      []string      `json:"status"`
	Outcome     Outcome       `json:"outcome"`
	Generation  *Generation   `json:"generation,omitempty"`
	ConfigError string        `json:"config_error,omitempty"`
	Notice      string        `json:"notice,omitempty"`
	Assets
	CreatedAt time.Time `json:"created_at"`
}

func NewDesignResult(req DesignRequest, assets Assets) *DesignResult {
	return &DesignResult{
		ID:        uuid.New().String(),
		Request:   req,
		Area:      req.Area(),
		TotalArea: req.TotalArea(),
		Prompt:    BuildPrompt(req),
		Assets:    assets,
		CreatedAt: time.Now().UTC(),
	}
}

// TotalAreaLabel is the metric caption, e.g. "2400 sq ft".
func (r *DesignResult) TotalAreaLabel() string {
	return FormatFeet(r.TotalArea) + " sq ft"
}

func (r *DesignResult) GenerationText() string {
	if r.Generation == nil {
		return ""
	}
	return r.Generation.Text
}
