package arbor

import (
	"context"
	"time"

	"github.com/zoobzio/pipz"
)

// -----------------------------------------------------------------------------
// Adapter Functions - wrap functions to create Branch processors
// -----------------------------------------------------------------------------

// Do creates a processor from a custom function that can fail.
// This is the easiest way to add custom logic to a pipeline.
//
// Example:
//
//	tag := arbor.Do("tag-final", func(ctx context.Context, b *arbor.Branch) (*arbor.Branch, error) {
//	    final, ok := b.LatestOfKind(arbor.EventFinal)
//	    if !ok {
//	        return b, fmt.Errorf("no final event on branch %s", b.ID)
//	    }
//	    return b, publishAnswer(ctx, final.Content)
//	})
func Do(name string, fn func(context.Context, *Branch) (*Branch, error)) pipz.Processor[*Branch] {
	return pipz.Apply(pipz.NewIdentity(name, "Custom branch processor"), fn)
}

// Transform creates a processor from a pure transformation function.
// Use this when your operation cannot fail.
func Transform(name string, fn func(context.Context, *Branch) *Branch) pipz.Processor[*Branch] {
	return pipz.Transform(pipz.NewIdentity(name, "Pure branch transformation"), fn)
}

// Effect creates a processor that performs a side effect without modifying
// the branch. Use this for logging, metrics, or other observational work.
//
// Example:
//
//	audit := arbor.Effect("audit", func(ctx context.Context, b *arbor.Branch) error {
//	    log.Printf("branch %s has %d events", b.ID, b.Len())
//	    return nil
//	})
func Effect(name string, fn func(context.Context, *Branch) error) pipz.Processor[*Branch] {
	return pipz.Effect(pipz.NewIdentity(name, "Branch side effect"), fn)
}

// Mutate creates a processor that conditionally modifies a branch.
// The modification is only applied if the predicate returns true.
func Mutate(name string, fn func(context.Context, *Branch) *Branch, predicate func(context.Context, *Branch) bool) pipz.Processor[*Branch] {
	return pipz.Mutate(pipz.NewIdentity(name, "Conditional branch mutation"), fn, predicate)
}

// Enrich creates a processor that optionally enhances a branch.
// Unlike Do, errors are logged but don't stop the pipeline.
func Enrich(name string, fn func(context.Context, *Branch) (*Branch, error)) pipz.Processor[*Branch] {
	return pipz.Enrich(pipz.NewIdentity(name, "Optional branch enrichment"), fn)
}

// -----------------------------------------------------------------------------
// Sequential Connectors - process branches in order
// -----------------------------------------------------------------------------

// Sequence creates a sequential pipeline of branch processors.
// Each processor receives the output of the previous one.
//
// Example:
//
//	pipeline := arbor.Sequence("reason",
//	    arbor.Draft("draft"),
//	    arbor.Critique("critique"),
//	    arbor.Improve("improve"),
//	)
func Sequence(name string, processors ...pipz.Chainable[*Branch]) *pipz.Sequence[*Branch] {
	return pipz.NewSequence(pipz.NewIdentity(name, "Sequential branch pipeline"), processors...)
}

// -----------------------------------------------------------------------------
// Control Flow Connectors - route branches based on conditions
// -----------------------------------------------------------------------------

// Filter creates a conditional processor that either processes or passes
// through. When the predicate returns true, the processor is executed;
// when false, the branch passes through unchanged.
func Filter(name string, predicate func(context.Context, *Branch) bool, processor pipz.Chainable[*Branch]) *pipz.Filter[*Branch] {
	return pipz.NewFilter(pipz.NewIdentity(name, "Conditional branch gate"), predicate, processor)
}

// Switch creates a router that directs branches to different processors.
// The condition function returns a route key that determines which
// processor handles the branch.
//
// Example:
//
//	router := arbor.Switch("by-kind", func(ctx context.Context, b *arbor.Branch) string {
//	    latest, _ := b.Latest()
//	    return string(latest.Kind)
//	})
//	router.AddRoute(string(arbor.EventDraft), critiqueStep)
//	router.AddRoute(string(arbor.EventCritique), improveStep)
func Switch(name string, condition pipz.Condition[*Branch]) *pipz.Switch[*Branch] {
	return pipz.NewSwitch(pipz.NewIdentity(name, "Branch router"), condition)
}

// -----------------------------------------------------------------------------
// Error Handling Connectors - handle failures gracefully
// -----------------------------------------------------------------------------

// Fallback creates a processor that tries alternatives on failure.
// Each processor is tried in order until one succeeds.
func Fallback(name string, processors ...pipz.Chainable[*Branch]) *pipz.Fallback[*Branch] {
	return pipz.NewFallback(pipz.NewIdentity(name, "Ordered fallback chain"), processors...)
}

// Retry creates a processor that retries on failure up to maxAttempts times.
// Immediate retry without delay - for backoff, use Backoff instead.
func Retry(name string, processor pipz.Chainable[*Branch], maxAttempts int) *pipz.Retry[*Branch] {
	return pipz.NewRetry(pipz.NewIdentity(name, "Immediate retry wrapper"), processor, maxAttempts)
}

// Backoff creates a processor that retries with exponential backoff.
// Useful for operations that need time to recover between attempts.
func Backoff(name string, processor pipz.Chainable[*Branch], maxAttempts int, baseDelay time.Duration) *pipz.Backoff[*Branch] {
	return pipz.NewBackoff(pipz.NewIdentity(name, "Exponential backoff wrapper"), processor, maxAttempts, baseDelay)
}

// Timeout creates a processor that enforces a time limit on execution.
// If the timeout expires, the operation is canceled and an error is returned.
func Timeout(name string, processor pipz.Chainable[*Branch], duration time.Duration) *pipz.Timeout[*Branch] {
	return pipz.NewTimeout(pipz.NewIdentity(name, "Deadline wrapper"), processor, duration)
}

// Handle creates a processor that handles errors without stopping the
// pipeline. When the primary processor fails, the error handler is invoked
// for monitoring with a pipz.Error[*Branch] carrying full error context.
//
// Example:
//
//	errorLogger := pipz.Effect(pipz.NewIdentity("log-error", "Failure observer"), func(ctx context.Context, err *pipz.Error[*arbor.Branch]) error {
//	    log.Printf("branch %s failed: %v", err.InputData.TraceID, err.Err)
//	    return nil
//	})
//	observed := arbor.Handle("observed", riskyStep, errorLogger)
func Handle(name string, processor pipz.Chainable[*Branch], errorHandler pipz.Chainable[*pipz.Error[*Branch]]) *pipz.Handle[*Branch] {
	return pipz.NewHandle(pipz.NewIdentity(name, "Error observation wrapper"), processor, errorHandler)
}

// -----------------------------------------------------------------------------
// Resource Protection Connectors - protect system resources
// -----------------------------------------------------------------------------

// RateLimiter creates a processor that enforces rate limits on the wrapped
// processor. Useful for protecting rate-limited model providers.
//
// Example:
//
//	limited := arbor.RateLimiter("provider-limit", 100, 10, draftStep) // 100/sec, burst 10
func RateLimiter(name string, requestsPerSecond float64, burst int, processor pipz.Chainable[*Branch]) *pipz.RateLimiter[*Branch] {
	return pipz.NewRateLimiter(pipz.NewIdentity(name, "Rate limit wrapper"), requestsPerSecond, burst, processor)
}

// CircuitBreaker creates a processor that prevents cascade failures.
// Opens the circuit after failureThreshold consecutive failures.
func CircuitBreaker(name string, processor pipz.Chainable[*Branch], failureThreshold int, resetTimeout time.Duration) *pipz.CircuitBreaker[*Branch] {
	return pipz.NewCircuitBreaker(pipz.NewIdentity(name, "Circuit breaker wrapper"), processor, failureThreshold, resetTimeout)
}

// -----------------------------------------------------------------------------
// Parallel Connectors - process branches concurrently
// These require *Branch to implement pipz.Cloner[*Branch] (see branch.go Clone())
// -----------------------------------------------------------------------------

// Concurrent runs all processors in parallel and returns the original
// branch. Each processor receives an isolated clone; use the reducer to
// aggregate results, keyed by each processor's identity.
func Concurrent(name string, reducer func(original *Branch, results map[pipz.Identity]*Branch, errors map[pipz.Identity]error) *Branch, processors ...pipz.Chainable[*Branch]) *pipz.Concurrent[*Branch] {
	return pipz.NewConcurrent(pipz.NewIdentity(name, "Parallel branch execution"), reducer, processors...)
}

// Race runs all processors in parallel and returns the first successful
// result. Useful when multiple paths can produce the same answer.
func Race(name string, processors ...pipz.Chainable[*Branch]) *pipz.Race[*Branch] {
	return pipz.NewRace(pipz.NewIdentity(name, "First-success race"), processors...)
}

// WorkerPool creates a bounded parallel executor with a fixed number of
// workers. Useful for controlling parallelism across branch streams.
func WorkerPool(name string, workers int, processors ...pipz.Chainable[*Branch]) *pipz.WorkerPool[*Branch] {
	return pipz.NewWorkerPool(pipz.NewIdentity(name, "Bounded parallel execution"), workers, processors...)
}
