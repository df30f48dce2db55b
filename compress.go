package arbor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
	"github.com/zoobzio/zyn"
)

// Compress is a session management step that implements
// pipz.Chainable[*Branch]. It summarizes the current session via LLM and
// replaces it with a fresh session containing the summary as context. The
// branch event log is untouched.
type Compress struct {
	identity    pipz.Identity
	name        string
	threshold   int // Minimum message count to trigger compression (0 = always)
	temperature float32
	provider    Provider
}

// NewCompress creates a new session compression step.
//
// The step uses a zyn Transform synapse to summarize the session history,
// then replaces the session with a new one containing the summary as the
// first message.
//
// Example:
//
//	compress := arbor.NewCompress("session-compress").
//	    WithThreshold(10)  // Only compress if >= 10 messages
//	result, _ := compress.Process(ctx, branch)
func NewCompress(name string) *Compress {
	return &Compress{
		identity:    pipz.NewIdentity(name, "Session compression step"),
		name:        name,
		threshold:   0,
		temperature: DefaultReasoningTemperature,
	}
}

// Process implements pipz.Chainable[*Branch].
func (c *Compress) Process(ctx context.Context, b *Branch) (*Branch, error) {
	start := time.Now()

	messageCount := b.Session.Len()
	if c.threshold > 0 && messageCount < c.threshold {
		return b, nil
	}
	if messageCount == 0 {
		return b, nil
	}

	provider, err := ResolveProvider(ctx, c.provider)
	if err != nil {
		return b, fmt.Errorf("compress: %w", err)
	}

	capitan.Emit(ctx, StepStarted,
		FieldBranch.Field(b.ID),
		FieldTraceID.Field(b.TraceID),
		FieldStepName.Field(c.name),
		FieldStepType.Field("compress"),
		FieldTemperature.Field(c.temperature),
	)

	sessionText := buildSessionText(b.Session.Messages())

	transformSynapse, err := zyn.Transform(
		"Summarize this conversation history into a concise context that preserves key information, decisions made, and important details for continuing the conversation",
		provider,
	)
	if err != nil {
		c.emitFailed(ctx, b, start, err)
		return b, fmt.Errorf("compress: failed to create transform synapse: %w", err)
	}

	summary, err := transformSynapse.FireWithInput(ctx, b.Session, zyn.TransformInput{
		Text:        sessionText,
		Style:       "Be concise but comprehensive. Preserve factual details, decisions, and context needed to continue the conversation coherently.",
		Temperature: c.temperature,
	})
	if err != nil {
		c.emitFailed(ctx, b, start, err)
		return b, fmt.Errorf("compress: summarization failed: %w", err)
	}

	// Replace session with fresh one containing summary
	b.Session.Clear()
	b.Session.Append("system", fmt.Sprintf("Previous conversation summary:\n%s", summary))

	capitan.Emit(ctx, StepCompleted,
		FieldBranch.Field(b.ID),
		FieldTraceID.Field(b.TraceID),
		FieldStepName.Field(c.name),
		FieldStepType.Field("compress"),
		FieldStepDuration.Field(time.Since(start)),
		FieldContentSize.Field(len(summary)),
	)

	return b, nil
}

// buildSessionText formats session messages for summarisation.
func buildSessionText(messages []zyn.Message) string {
	var builder strings.Builder
	for _, msg := range messages {
		builder.WriteString(msg.Role)
		builder.WriteString(": ")
		builder.WriteString(msg.Content)
		builder.WriteString("\n\n")
	}
	return builder.String()
}

// emitFailed emits a step failed event.
func (c *Compress) emitFailed(ctx context.Context, b *Branch, start time.Time, err error) {
	capitan.Error(ctx, StepFailed,
		FieldBranch.Field(b.ID),
		FieldTraceID.Field(b.TraceID),
		FieldStepName.Field(c.name),
		FieldStepType.Field("compress"),
		FieldStepDuration.Field(time.Since(start)),
		FieldError.Field(err),
	)
}

// Identity implements pipz.Chainable[*Branch].
func (c *Compress) Identity() pipz.Identity {
	return c.identity
}

// Schema implements pipz.Chainable[*Branch].
func (c *Compress) Schema() pipz.Node {
	return pipz.Node{Identity: c.identity, Type: "compress"}
}

// Close implements pipz.Chainable[*Branch].
func (c *Compress) Close() error {
	return nil
}

// Builder methods

// WithThreshold sets the minimum message count to trigger compression.
// If the session has fewer messages, the step passes through unchanged.
func (c *Compress) WithThreshold(n int) *Compress {
	c.threshold = n
	return c
}

// WithTemperature sets the temperature for summarisation.
func (c *Compress) WithTemperature(temp float32) *Compress {
	c.temperature = temp
	return c
}

// WithProvider sets the provider for this step.
func (c *Compress) WithProvider(p Provider) *Compress {
	c.provider = p
	return c
}
