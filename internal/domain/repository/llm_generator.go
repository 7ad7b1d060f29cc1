package repository

import (
	"context"

	"architect/internal/domain/entity"
)

// LLMGenerator turns a prompt into generated text.
type LLMGenerator interface {
	// Generate sends one prompt and returns the generated text. Failures are
	// reported as *entity.RemoteCallError.
	Generate(ctx context.Context, prompt string) (entity.Generation, error)
	// Model names the provider model used, for logs and metrics.
	Model() string
}
