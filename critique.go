package arbor

import (
	"context"
	"fmt"

	"github.com/zoobzio/pipz"
	"github.com/zoobzio/zyn"
)

// critiqueStyle is the transform instruction for the critique phase.
const critiqueStyle = "Critically review the draft against the task. " +
	"Identify factual gaps, unsupported claims, missing considerations, and " +
	"unclear reasoning. Be specific; each point should be actionable."

// critiqueConfig implements stepConfig for critique steps.
type critiqueConfig struct{}

// Critique creates a step that reviews the branch's latest draft and
// appends the review as a critique event. It fails if no draft has been
// produced yet.
func Critique(name string) *Step {
	return newStep(name, &critiqueConfig{})
}

// build creates the pipz pipeline for a Critique step.
func (c *critiqueConfig) build(_ context.Context, provider Provider, temperature float32) (pipz.Chainable[*Branch], error) {
	transformSynapse, err := zyn.Transform(critiqueStyle, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create transform synapse: %w", err)
	}

	return pipz.Apply(pipz.NewIdentity("critique", "Draft review"), func(ctx context.Context, b *Branch) (*Branch, error) {
		draft, ok := b.LatestOfKind(EventDraft)
		if !ok {
			return b, fmt.Errorf("critique: branch %q has no draft to review", b.Name)
		}

		content, err := transformSynapse.FireWithInput(ctx, b.Session, zyn.TransformInput{
			Text:        draft.Content,
			Context:     "Task:\n" + b.Task,
			Style:       critiqueStyle,
			Temperature: temperature,
		})
		if err != nil {
			return b, fmt.Errorf("critique: transform synapse execution failed: %w", err)
		}

		if err := b.AddEvent(ctx, Event{
			Kind:    EventCritique,
			Content: content,
			Prompt:  critiqueStyle,
		}); err != nil {
			return b, fmt.Errorf("critique: %w", err)
		}

		return b, nil
	}), nil
}

func (c *critiqueConfig) stepType() string {
	return "critique"
}

func (c *critiqueConfig) defaultTemperature() float32 {
	return DefaultCritiqueTemperature
}
