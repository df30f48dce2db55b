package arbor

import (
	"context"
	"fmt"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// Truncate is a session management step that implements
// pipz.Chainable[*Branch]. It removes messages from the branch session
// without LLM involvement, using a sliding window approach. The event log
// is untouched; only the conversational context shrinks.
type Truncate struct {
	identity  pipz.Identity
	name      string
	keepFirst int // Number of messages to keep from the start (e.g., system prompt)
	keepLast  int // Number of recent messages to keep
	threshold int // Minimum message count to trigger truncation (0 = always)
}

// NewTruncate creates a new session truncation step.
//
// The step removes messages from the middle of the session, preserving the
// first N messages (typically system prompts) and the last M messages.
//
// Example:
//
//	truncate := arbor.NewTruncate("session-truncate").
//	    WithKeepFirst(1).   // Preserve system prompt
//	    WithKeepLast(10).   // Keep last 10 messages
//	    WithThreshold(20)   // Only truncate if >= 20 messages
//	result, _ := truncate.Process(ctx, branch)
func NewTruncate(name string) *Truncate {
	return &Truncate{
		identity:  pipz.NewIdentity(name, "Session truncation step"),
		name:      name,
		keepFirst: 1,
		keepLast:  10,
		threshold: 0,
	}
}

// Process implements pipz.Chainable[*Branch].
func (tr *Truncate) Process(ctx context.Context, b *Branch) (*Branch, error) {
	start := time.Now()

	messageCount := b.Session.Len()

	if tr.threshold > 0 && messageCount < tr.threshold {
		return b, nil
	}
	if messageCount <= tr.keepFirst+tr.keepLast {
		return b, nil
	}

	capitan.Emit(ctx, StepStarted,
		FieldBranch.Field(b.ID),
		FieldTraceID.Field(b.TraceID),
		FieldStepName.Field(tr.name),
		FieldStepType.Field("truncate"),
	)

	if err := b.Session.Truncate(tr.keepFirst, tr.keepLast); err != nil {
		capitan.Error(ctx, StepFailed,
			FieldBranch.Field(b.ID),
			FieldTraceID.Field(b.TraceID),
			FieldStepName.Field(tr.name),
			FieldStepType.Field("truncate"),
			FieldStepDuration.Field(time.Since(start)),
			FieldError.Field(err),
		)
		return b, fmt.Errorf("truncate: %w", err)
	}

	capitan.Emit(ctx, StepCompleted,
		FieldBranch.Field(b.ID),
		FieldTraceID.Field(b.TraceID),
		FieldStepName.Field(tr.name),
		FieldStepType.Field("truncate"),
		FieldStepDuration.Field(time.Since(start)),
		FieldEventCount.Field(b.Len()),
	)

	return b, nil
}

// Identity implements pipz.Chainable[*Branch].
func (tr *Truncate) Identity() pipz.Identity {
	return tr.identity
}

// Schema implements pipz.Chainable[*Branch].
func (tr *Truncate) Schema() pipz.Node {
	return pipz.Node{Identity: tr.identity, Type: "truncate"}
}

// Close implements pipz.Chainable[*Branch].
func (tr *Truncate) Close() error {
	return nil
}

// Builder methods

// WithKeepFirst sets the number of messages to preserve from the start.
// Typically used to preserve system prompts.
func (tr *Truncate) WithKeepFirst(n int) *Truncate {
	tr.keepFirst = n
	return tr
}

// WithKeepLast sets the number of recent messages to preserve.
func (tr *Truncate) WithKeepLast(n int) *Truncate {
	tr.keepLast = n
	return tr
}

// WithThreshold sets the minimum message count to trigger truncation.
// If the session has fewer messages, the step passes through unchanged.
func (tr *Truncate) WithThreshold(n int) *Truncate {
	tr.threshold = n
	return tr
}
