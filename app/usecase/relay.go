package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"architect/internal/domain/entity"
	"architect/internal/domain/repository"
	"architect/internal/infrastructure/metrics"
)

// ProgressFunc receives each status label as it is appended to a result.
type ProgressFunc func(status string)

type DesignUsecase interface {
	Submit(ctx context.Context, req entity.DesignRequest) (*entity.DesignResult, error)
	SubmitWithProgress(ctx context.Context, req entity.DesignRequest, progress ProgressFunc) (*entity.DesignResult, error)
	// ConfigError is non-nil when generation is disabled.
	ConfigError() error
	Assets() entity.Assets
}

var _ DesignUsecase = (*RelayService)(nil)

type RelayOptions struct {
	Assets            entity.Assets
	GenerationTimeout time.Duration
	// DiscardResponse keeps the outbound call but drops the generated text.
	DiscardResponse bool
}

// RelayService turns a design request into area figures, a prompt and,
// when a generator is configured, generated text.
type RelayService struct {
	llm       repository.LLMGenerator
	configErr error
	opts      RelayOptions
	logger    *slog.Logger
}

// NewRelayService wires the relay. configErr, when non-nil, disables
// generation; llm may be nil in that case.
func NewRelayService(llm repository.LLMGenerator, configErr error, opts RelayOptions, logger *slog.Logger) *RelayService {
	if llm == nil && configErr == nil {
		configErr = &entity.ConfigurationError{Key: "llm", Reason: "generator is not configured"}
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayService{
		llm:       llm,
		configErr: configErr,
		opts:      opts,
		logger:    logger,
	}
}

func (s *RelayService) ConfigError() error { return s.configErr }

func (s *RelayService) Assets() entity.Assets { return s.opts.Assets }

func (s *RelayService) Submit(ctx context.Context, req entity.DesignRequest) (*entity.DesignResult, error) {
	return s.SubmitWithProgress(ctx, req, nil)
}

// SubmitWithProgress runs one submission: normalize and validate, compute
// areas, build the prompt, call the generator. Only invalid input returns an
// error; configuration and remote failures are recorded on the result.
func (s *RelayService) SubmitWithProgress(ctx context.Context, req entity.DesignRequest, progress ProgressFunc) (*entity.DesignResult, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		metrics.IncError("relay", "validation")
		return nil, err
	}

	res := entity.NewDesignResult(req, s.opts.Assets)
	logger := s.logger.With("design_id", res.ID)

	status := func(label string) {
		res.Status = append(res.Status, label)
		if progress != nil {
			progress(label)
		}
	}

	metrics.IncDesignSubmitted(string(req.Style))
	metrics.ObserveFootprint(res.Area)

	status(entity.StatusWorkflowActive)
	status(entity.StatusAnalyzing)
	status(entity.StatusCalculatingLoad(res.Area))

	logger.Info("design submitted",
		"style", req.Style,
		"floors", req.Floors,
		"area", res.Area,
		"total_area", res.TotalArea,
	)

	switch {
	case s.configErr != nil:
		res.Outcome = entity.OutcomeDisabled
		res.ConfigError = s.configErr.Error()
		status("Generation disabled: " + s.configErr.Error())
		logger.Warn("generation disabled", "err", s.configErr)
	default:
		s.generate(ctx, res, logger, status)
	}

	metrics.IncDesignOutcome(string(res.Outcome))
	return res, nil
}

func (s *RelayService) generate(ctx context.Context, res *entity.DesignResult, logger *slog.Logger, status ProgressFunc) {
	genCtx, cancel := context.WithTimeout(ctx, s.opts.GenerationTimeout)
	defer cancel()

	gen, err := s.llm.Generate(genCtx, res.Prompt)
	if err != nil {
		var remote *entity.RemoteCallError
		if !errors.As(err, &remote) {
			remote = &entity.RemoteCallError{Provider: s.llm.Model(), Err: err}
		}
		if genCtx.Err() != nil && ctx.Err() == nil {
			remote.Message = "timed out after " + s.opts.GenerationTimeout.String()
		}
		metrics.IncError("relay", "remote_call")
		res.Outcome = entity.OutcomeRemoteFailed
		res.Notice = remote.Error()
		status("Generation failed: " + remote.Error())
		logger.Error("generation failed", "model", s.llm.Model(), "err", err)
		return
	}

	logger.Info("generation complete",
		"model", gen.Model,
		"latency", gen.Latency,
		"output_tokens", gen.OutputTokens,
	)

	// The call is always made; DiscardResponse only controls whether the
	// text is shown, reproducing the placeholder behavior when set.
	if s.opts.DiscardResponse {
		gen.Text = ""
		res.Generation = &gen
		res.Outcome = entity.OutcomeDiscarded
	} else {
		res.Generation = &gen
		res.Outcome = entity.OutcomeGenerated
	}
	status(entity.StatusFinalized)
}
