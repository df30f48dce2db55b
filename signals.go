package arbor

import "github.com/zoobzio/capitan"

// Signal definitions for arbor orchestration events.
// Signals follow the pattern: arbor.<entity>.<event>.
var (
	// Branch lifecycle signals.
	BranchCreated = capitan.NewSignal(
		"arbor.branch.created",
		"New execution branch initiated with task and trace ID",
	)
	BranchForked = capitan.NewSignal(
		"arbor.branch.forked",
		"Execution branch forked for independent exploration",
	)
	EventAppended = capitan.NewSignal(
		"arbor.branch.event",
		"Reasoning event appended to branch log",
	)

	// Step execution signals.
	StepStarted = capitan.NewSignal(
		"arbor.step.started",
		"Reasoning step began execution",
	)
	StepCompleted = capitan.NewSignal(
		"arbor.step.completed",
		"Reasoning step finished successfully",
	)
	StepFailed = capitan.NewSignal(
		"arbor.step.failed",
		"Reasoning step encountered an error",
	)

	// Tool invocation signals.
	ToolInvoked = capitan.NewSignal(
		"arbor.tool.invoked",
		"Tool invocation finished, success or failure",
	)
	ToolCacheHit = capitan.NewSignal(
		"arbor.tool.cache_hit",
		"Cached result served without invoking the tool",
	)
	ToolCacheMiss = capitan.NewSignal(
		"arbor.tool.cache_miss",
		"No fresh cache entry, tool invoked",
	)
	ToolRetry = capitan.NewSignal(
		"arbor.tool.retry",
		"Tool invocation failed, retrying after backoff",
	)
	BreakerOpened = capitan.NewSignal(
		"arbor.breaker.opened",
		"Circuit breaker opened after consecutive failures",
	)
	BreakerProbe = capitan.NewSignal(
		"arbor.breaker.probe",
		"Half-open circuit breaker allowing one trial invocation",
	)
	BreakerClosed = capitan.NewSignal(
		"arbor.breaker.closed",
		"Circuit breaker closed after successful probe",
	)

	// Routing signals.
	RoutingDecided = capitan.NewSignal(
		"arbor.routing.decided",
		"Model selected for task with confidence and reason",
	)
	EnsembleStarted = capitan.NewSignal(
		"arbor.ensemble.started",
		"Concurrent candidate generation began",
	)
	EnsembleCandidateFinished = capitan.NewSignal(
		"arbor.ensemble.candidate",
		"Ensemble candidate finished, success or failure",
	)
)

// Field keys for arbor event data.
var (
	// Branch metadata.
	FieldBranch     = capitan.NewStringKey("branch")
	FieldTraceID    = capitan.NewStringKey("trace_id")
	FieldTask       = capitan.NewStringKey("task")
	FieldEventKind  = capitan.NewStringKey("event_kind")
	FieldEventCount = capitan.NewIntKey("event_count")

	// Step metadata.
	FieldStepName     = capitan.NewStringKey("step_name")
	FieldStepType     = capitan.NewStringKey("step_type") // draft, critique, improve
	FieldStepDuration = capitan.NewDurationKey("step_duration")
	FieldTemperature  = capitan.NewFloat32Key("temperature")

	// Tool metadata.
	FieldTool        = capitan.NewStringKey("tool")
	FieldToolElapsed = capitan.NewDurationKey("tool_elapsed")
	FieldAttempt     = capitan.NewIntKey("attempt")

	// Routing metadata.
	FieldModel       = capitan.NewStringKey("model")
	FieldConfidence  = capitan.NewFloat32Key("confidence")
	FieldReason      = capitan.NewStringKey("reason")
	FieldCandidates  = capitan.NewIntKey("candidates")
	FieldContentSize = capitan.NewIntKey("content_size")

	// Error information.
	FieldError = capitan.NewErrorKey("error")
)
