package arbor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/zoobzio/pipz"
	"github.com/zoobzio/zyn"
)

// mockReasonProvider implements Provider for draft/critique/improve tests.
// It decides which phase is calling from the most recent instruction in the
// conversation and returns the zyn Transform response shape. Earlier turns
// stay in the shared session, so scanning the whole transcript would match
// a previous phase's instruction.
type mockReasonProvider struct {
	callCount int
}

func (m *mockReasonProvider) Call(_ context.Context, messages []zyn.Message, _ float32) (*zyn.ProviderResponse, error) {
	m.callCount++

	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	output := "the draft answer"
scan:
	for i := len(messages) - 1; i >= 0; i-- {
		content := messages[i].Content
		switch {
		case strings.Contains(content, "Rewrite the draft"):
			output = "the final answer with evidence"
			break scan
		case strings.Contains(content, "Critically review"):
			output = "the critique: needs more evidence"
			break scan
		}
	}

	return &zyn.ProviderResponse{
		Content: fmt.Sprintf(`{"output": %q, "confidence": 0.9, "changes": [], "reasoning": []}`, output),
		Usage:   zyn.TokenUsage{Prompt: 10, Completion: 20, Total: 30},
	}, nil
}

func (m *mockReasonProvider) Name() string {
	return "mock-reason"
}

func TestDraftCritiqueImprovePipeline(t *testing.T) {
	SetProvider(&mockReasonProvider{})
	defer SetProvider(nil)

	ctx := context.Background()
	branch := NewBranch(ctx, "pipeline", "summarize the quarterly report")

	pipeline := Sequence("reason",
		Draft("draft"),
		Critique("critique"),
		Improve("improve"),
	)
	defer pipeline.Close()

	result, err := pipeline.Process(ctx, branch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := result.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Kind != EventDraft || events[1].Kind != EventCritique || events[2].Kind != EventFinal {
		t.Errorf("expected draft, critique, final order; got %v %v %v",
			events[0].Kind, events[1].Kind, events[2].Kind)
	}

	final, ok := result.LatestOfKind(EventFinal)
	if !ok {
		t.Fatal("expected final event")
	}
	if final.Content != "the final answer with evidence" {
		t.Errorf("unexpected final content: %q", final.Content)
	}

	steps := result.Steps()
	if len(steps) != 3 {
		t.Fatalf("expected 3 step records, got %d", len(steps))
	}
	for _, step := range steps {
		if step.Error != nil {
			t.Errorf("step %q recorded error: %v", step.Name, step.Error)
		}
	}
}

func TestStepsExposeIdentityAndSchema(t *testing.T) {
	cases := []struct {
		step interface {
			Identity() pipz.Identity
			Schema() pipz.Node
			Close() error
		}
		name     string
		nodeType string
	}{
		{Draft("my-draft"), "my-draft", "draft"},
		{Critique("my-critique"), "my-critique", "critique"},
		{Improve("my-improve"), "my-improve", "improve"},
		{NewTruncate("my-truncate"), "my-truncate", "truncate"},
		{NewCompress("my-compress"), "my-compress", "compress"},
	}

	for _, tc := range cases {
		if got := tc.step.Identity().Name(); got != tc.name {
			t.Errorf("expected identity name %q, got %q", tc.name, got)
		}
		node := tc.step.Schema()
		if node.Type != tc.nodeType {
			t.Errorf("expected schema type %q, got %q", tc.nodeType, node.Type)
		}
		if node.Identity.Name() != tc.name {
			t.Errorf("schema node must carry the step identity, got %q", node.Identity.Name())
		}
		if err := tc.step.Close(); err != nil {
			t.Errorf("close failed for %q: %v", tc.name, err)
		}
	}
}

func TestPipelineOnForkDoesNotAffectParent(t *testing.T) {
	SetProvider(&mockReasonProvider{})
	defer SetProvider(nil)

	ctx := context.Background()
	parent := NewBranch(ctx, "explore", "summarize the quarterly report")

	draft := Draft("draft")
	defer draft.Close()
	if _, err := draft.Process(ctx, parent); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fork := parent.Fork(ctx)
	critique := Critique("critique")
	defer critique.Close()
	if _, err := critique.Process(ctx, fork); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := parent.LatestOfKind(EventCritique); ok {
		t.Error("critique on fork must not appear on parent")
	}
	if _, ok := fork.LatestOfKind(EventCritique); !ok {
		t.Error("expected critique on fork")
	}
}
