package arbor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// stepConfig is an internal interface that different step types implement.
// It handles the specifics of building the internal pipeline for one
// reasoning operation.
type stepConfig interface {
	// build creates the internal pipz pipeline for this step type
	build(ctx context.Context, provider Provider, temperature float32) (pipz.Chainable[*Branch], error)

	// stepType returns the semantic type (e.g., "draft", "critique")
	stepType() string

	// defaultTemperature returns the default temperature for this step type
	defaultTemperature() float32
}

// Step is a single reasoning operation in a branch pipeline. It wraps a
// provider call and records its execution on the branch it processes.
type Step struct {
	identity pipz.Identity
	name     string
	cfg      stepConfig

	// Configuration
	provider    Provider
	temperature float32

	// Built pipeline (lazy initialization)
	pipeline pipz.Chainable[*Branch]
	once     sync.Once
	buildErr error
}

// newStep creates a new Step with the given configuration.
// This is internal - users create steps via Draft(), Critique(), etc.
func newStep(name string, cfg stepConfig) *Step {
	return &Step{
		identity:    pipz.NewIdentity(name, "Reasoning step: "+cfg.stepType()),
		name:        name,
		cfg:         cfg,
		temperature: cfg.defaultTemperature(),
	}
}

// Process implements pipz.Chainable[*Branch].
// It builds the internal pipeline on first call (lazy init) and executes it.
func (s *Step) Process(ctx context.Context, b *Branch) (*Branch, error) {
	s.once.Do(func() {
		s.buildErr = s.buildPipeline(ctx)
	})

	if s.buildErr != nil {
		return b, fmt.Errorf("failed to build step %q: %w", s.name, s.buildErr)
	}

	start := time.Now()

	capitan.Emit(ctx, StepStarted,
		FieldBranch.Field(b.ID),
		FieldTraceID.Field(b.TraceID),
		FieldStepName.Field(s.name),
		FieldStepType.Field(s.cfg.stepType()),
		FieldTemperature.Field(s.temperature),
	)

	result, err := s.pipeline.Process(ctx, b)
	duration := time.Since(start)

	record := StepRecord{
		Name:      s.name,
		Type:      s.cfg.stepType(),
		Duration:  duration,
		Timestamp: start,
		Error:     err,
	}

	if result != nil {
		result.AddStep(record)
	} else {
		b.AddStep(record)
	}

	if err != nil {
		capitan.Error(ctx, StepFailed,
			FieldBranch.Field(b.ID),
			FieldTraceID.Field(b.TraceID),
			FieldStepName.Field(s.name),
			FieldStepType.Field(s.cfg.stepType()),
			FieldStepDuration.Field(duration),
			FieldError.Field(err),
		)
	} else {
		capitan.Emit(ctx, StepCompleted,
			FieldBranch.Field(b.ID),
			FieldTraceID.Field(b.TraceID),
			FieldStepName.Field(s.name),
			FieldStepType.Field(s.cfg.stepType()),
			FieldStepDuration.Field(duration),
			FieldEventCount.Field(result.Len()),
		)
	}

	return result, err
}

// Identity implements pipz.Chainable[*Branch]
func (s *Step) Identity() pipz.Identity {
	return s.identity
}

// Schema implements pipz.Chainable[*Branch]
func (s *Step) Schema() pipz.Node {
	return pipz.Node{Identity: s.identity, Type: s.cfg.stepType()}
}

// Close implements pipz.Chainable[*Branch]
func (s *Step) Close() error {
	if s.pipeline != nil {
		return s.pipeline.Close()
	}
	return nil
}

// WithProvider sets the provider for this specific step.
// This takes precedence over context and global providers.
func (s *Step) WithProvider(p Provider) *Step {
	s.provider = p
	return s
}

// WithTemperature sets the LLM temperature for this step.
// Overrides the step type's default temperature.
func (s *Step) WithTemperature(temp float32) *Step {
	s.temperature = temp
	return s
}

// WithRetry wraps the step with retry logic.
func (s *Step) WithRetry(attempts int) *Step {
	return &Step{
		identity: s.identity,
		name:     s.name,
		cfg: &retryConfig{
			inner:    s.cfg,
			attempts: attempts,
		},
		provider:    s.provider,
		temperature: s.temperature,
	}
}

// WithTimeout wraps the step with timeout protection.
func (s *Step) WithTimeout(d time.Duration) *Step {
	return &Step{
		identity: s.identity,
		name:     s.name,
		cfg: &timeoutConfig{
			inner:   s.cfg,
			timeout: d,
		},
		provider:    s.provider,
		temperature: s.temperature,
	}
}

// WithBackoff wraps the step with exponential backoff retry.
func (s *Step) WithBackoff(attempts int, baseDelay time.Duration) *Step {
	return &Step{
		identity: s.identity,
		name:     s.name,
		cfg: &backoffConfig{
			inner:     s.cfg,
			attempts:  attempts,
			baseDelay: baseDelay,
		},
		provider:    s.provider,
		temperature: s.temperature,
	}
}

// WithCircuitBreaker wraps the step with circuit breaker protection.
func (s *Step) WithCircuitBreaker(failures int, recovery time.Duration) *Step {
	return &Step{
		identity: s.identity,
		name:     s.name,
		cfg: &circuitBreakerConfig{
			inner:    s.cfg,
			failures: failures,
			recovery: recovery,
		},
		provider:    s.provider,
		temperature: s.temperature,
	}
}

// buildPipeline constructs the internal pipeline using the config.
func (s *Step) buildPipeline(ctx context.Context) error {
	provider, err := ResolveProvider(ctx, s.provider)
	if err != nil {
		return err
	}

	pipeline, err := s.cfg.build(ctx, provider, s.temperature)
	if err != nil {
		return err
	}

	s.pipeline = pipeline
	return nil
}

// Wrapper configs for reliability features

type retryConfig struct {
	inner    stepConfig
	attempts int
}

func (c *retryConfig) build(ctx context.Context, provider Provider, temp float32) (pipz.Chainable[*Branch], error) {
	inner, err := c.inner.build(ctx, provider, temp)
	if err != nil {
		return nil, err
	}
	return pipz.NewRetry(pipz.NewIdentity("retry", "Step retry wrapper"), inner, c.attempts), nil
}

func (c *retryConfig) stepType() string {
	return c.inner.stepType()
}

func (c *retryConfig) defaultTemperature() float32 {
	return c.inner.defaultTemperature()
}

type timeoutConfig struct {
	inner   stepConfig
	timeout time.Duration
}

func (c *timeoutConfig) build(ctx context.Context, provider Provider, temp float32) (pipz.Chainable[*Branch], error) {
	inner, err := c.inner.build(ctx, provider, temp)
	if err != nil {
		return nil, err
	}
	return pipz.NewTimeout(pipz.NewIdentity("timeout", "Step timeout wrapper"), inner, c.timeout), nil
}

func (c *timeoutConfig) stepType() string {
	return c.inner.stepType()
}

func (c *timeoutConfig) defaultTemperature() float32 {
	return c.inner.defaultTemperature()
}

type backoffConfig struct {
	inner     stepConfig
	attempts  int
	baseDelay time.Duration
}

func (c *backoffConfig) build(ctx context.Context, provider Provider, temp float32) (pipz.Chainable[*Branch], error) {
	inner, err := c.inner.build(ctx, provider, temp)
	if err != nil {
		return nil, err
	}
	return pipz.NewBackoff(pipz.NewIdentity("backoff", "Step backoff wrapper"), inner, c.attempts, c.baseDelay), nil
}

func (c *backoffConfig) stepType() string {
	return c.inner.stepType()
}

func (c *backoffConfig) defaultTemperature() float32 {
	return c.inner.defaultTemperature()
}

type circuitBreakerConfig struct {
	inner    stepConfig
	failures int
	recovery time.Duration
}

func (c *circuitBreakerConfig) build(ctx context.Context, provider Provider, temp float32) (pipz.Chainable[*Branch], error) {
	inner, err := c.inner.build(ctx, provider, temp)
	if err != nil {
		return nil, err
	}
	return pipz.NewCircuitBreaker(pipz.NewIdentity("circuit-breaker", "Step circuit breaker wrapper"), inner, c.failures, c.recovery), nil
}

func (c *circuitBreakerConfig) stepType() string {
	return c.inner.stepType()
}

func (c *circuitBreakerConfig) defaultTemperature() float32 {
	return c.inner.defaultTemperature()
}
