package arbor

import (
	"context"
	"fmt"

	"github.com/zoobzio/pipz"
	"github.com/zoobzio/zyn"
)

// improveStyle is the transform instruction for the improvement phase.
const improveStyle = "Rewrite the draft into a final answer that addresses " +
	"every point raised in the critique. Keep what the critique endorses, " +
	"fix what it challenges, and do not introduce new unsupported claims."

// improveConfig implements stepConfig for improvement steps.
type improveConfig struct{}

// Improve creates a step that merges the branch's latest draft with its
// latest critique into a final event. It fails if either is missing.
func Improve(name string) *Step {
	return newStep(name, &improveConfig{})
}

// build creates the pipz pipeline for an Improve step.
func (c *improveConfig) build(_ context.Context, provider Provider, temperature float32) (pipz.Chainable[*Branch], error) {
	transformSynapse, err := zyn.Transform(improveStyle, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create transform synapse: %w", err)
	}

	return pipz.Apply(pipz.NewIdentity("improve", "Final rewrite from draft and critique"), func(ctx context.Context, b *Branch) (*Branch, error) {
		draft, ok := b.LatestOfKind(EventDraft)
		if !ok {
			return b, fmt.Errorf("improve: branch %q has no draft to improve", b.Name)
		}
		critique, ok := b.LatestOfKind(EventCritique)
		if !ok {
			return b, fmt.Errorf("improve: branch %q has no critique to apply", b.Name)
		}

		content, err := transformSynapse.FireWithInput(ctx, b.Session, zyn.TransformInput{
			Text:        draft.Content,
			Context:     fmt.Sprintf("Task:\n%s\n\nCritique:\n%s", b.Task, critique.Content),
			Style:       improveStyle,
			Temperature: temperature,
		})
		if err != nil {
			return b, fmt.Errorf("improve: transform synapse execution failed: %w", err)
		}

		if err := b.AddEvent(ctx, Event{
			Kind:    EventFinal,
			Content: content,
			Prompt:  improveStyle,
		}); err != nil {
			return b, fmt.Errorf("improve: %w", err)
		}

		return b, nil
	}), nil
}

func (c *improveConfig) stepType() string {
	return "improve"
}

func (c *improveConfig) defaultTemperature() float32 {
	return DefaultImproveTemperature
}
