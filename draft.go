package arbor

import (
	"context"
	"fmt"
	"strings"

	"github.com/zoobzio/pipz"
	"github.com/zoobzio/zyn"
)

// draftStyle is the transform instruction for the drafting phase.
const draftStyle = "Produce a thorough first draft answer to the task. " +
	"Ground the answer in the provided context when it is relevant. " +
	"Prefer substance over polish; later steps refine the draft."

// defaultRetrievalCount bounds how many documents a draft pulls in.
const defaultRetrievalCount = 4

// draftConfig implements stepConfig for drafting steps.
type draftConfig struct {
	retrievalModel string
	retrievalCount int
	registry       *ToolRegistry
	toolRounds     int
}

// Draft creates a step that generates a first-pass answer for the branch
// task and appends it as a draft event. When the branch carries a
// retriever, similar documents are folded into the prompt as context.
//
// Example:
//
//	step := arbor.Draft("draft").WithTemperature(0.9).WithRetry(2)
//	branch, err := step.Process(ctx, branch)
func Draft(name string) *Step {
	return newStep(name, &draftConfig{
		retrievalCount: defaultRetrievalCount,
	})
}

// DraftWithTools creates a drafting step that may call registered tools
// while generating. Tool executions are recorded on the draft event.
func DraftWithTools(name string, registry *ToolRegistry) *Step {
	return newStep(name, &draftConfig{
		retrievalCount: defaultRetrievalCount,
		registry:       registry,
		toolRounds:     DefaultToolRounds,
	})
}

// build creates the pipz pipeline for a Draft step.
func (c *draftConfig) build(_ context.Context, provider Provider, temperature float32) (pipz.Chainable[*Branch], error) {
	transformSynapse, err := zyn.Transform(draftStyle, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create transform synapse: %w", err)
	}

	return pipz.Apply(pipz.NewIdentity("draft", "Retrieval-backed first draft"), func(ctx context.Context, b *Branch) (*Branch, error) {
		if b.Task == "" {
			return b, fmt.Errorf("draft: branch %q has no task", b.Name)
		}

		docContext := ""
		if r := b.Retriever(); r != nil {
			docs, err := r.GetSimilarDocuments(ctx, c.retrievalModel, b.Task, c.retrievalCount)
			if err != nil {
				return b, fmt.Errorf("draft: retrieval failed: %w", err)
			}
			docContext = RenderDocumentsToContext(docs)
		}

		var content string
		var executions []ToolExecution

		if c.registry != nil && c.registry.Len() > 0 {
			prompt := b.Task
			if docContext != "" {
				prompt = b.Task + "\n\nContext:\n" + docContext
			}
			out := GenerateWithTools(ctx, provider, c.registry, prompt, temperature, c.toolRounds)
			result, fault := out.Get()
			if fault != nil {
				return b, fmt.Errorf("draft: tool-aware generation failed: %w", fault)
			}
			content = result.Text
			executions = result.ToolExecutions
		} else {
			text, err := transformSynapse.FireWithInput(ctx, b.Session, zyn.TransformInput{
				Text:        b.Task,
				Context:     docContext,
				Style:       draftStyle,
				Temperature: temperature,
			})
			if err != nil {
				return b, fmt.Errorf("draft: transform synapse execution failed: %w", err)
			}
			content = text
		}

		if err := b.AddEvent(ctx, Event{
			Kind:           EventDraft,
			Content:        content,
			Prompt:         b.Task,
			ToolExecutions: executions,
		}); err != nil {
			return b, fmt.Errorf("draft: %w", err)
		}

		return b, nil
	}), nil
}

func (c *draftConfig) stepType() string {
	return "draft"
}

func (c *draftConfig) defaultTemperature() float32 {
	return DefaultDraftTemperature
}

// RenderDocumentsToContext formats retrieved documents into a context block
// for prompt construction.
func RenderDocumentsToContext(docs []Document) string {
	if len(docs) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, doc := range docs {
		if i > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(fmt.Sprintf("[%d] %s", i+1, doc.Content))
	}
	return builder.String()
}
