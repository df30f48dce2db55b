package arbor

import (
	"context"
	"errors"
	"testing"
)

// stubRetriever returns fixed documents.
type stubRetriever struct {
	docs []Document
	err  error
}

func (s *stubRetriever) GetSimilarDocuments(_ context.Context, _, _ string, count int) ([]Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.docs) > count {
		return s.docs[:count], nil
	}
	return s.docs, nil
}

func TestDraftAppendsDraftEvent(t *testing.T) {
	SetProvider(&mockReasonProvider{})
	defer SetProvider(nil)

	ctx := context.Background()
	branch := NewBranch(ctx, "drafting", "summarize the quarterly report")

	step := Draft("draft")
	defer step.Close()

	result, err := step.Process(ctx, branch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	event, ok := result.LatestOfKind(EventDraft)
	if !ok {
		t.Fatal("expected draft event")
	}
	if event.Content != "the draft answer" {
		t.Errorf("unexpected draft content: %q", event.Content)
	}
	if event.Prompt != branch.Task {
		t.Errorf("draft event must record the task prompt, got %q", event.Prompt)
	}
}

func TestDraftRequiresTask(t *testing.T) {
	SetProvider(&mockReasonProvider{})
	defer SetProvider(nil)

	ctx := context.Background()
	branch := NewBranch(ctx, "empty", "")

	step := Draft("draft")
	defer step.Close()

	if _, err := step.Process(ctx, branch); err == nil {
		t.Error("expected error for branch without task")
	}
}

func TestDraftUsesRetrieverContext(t *testing.T) {
	SetProvider(&mockReasonProvider{})
	defer SetProvider(nil)

	ctx := context.Background()
	retriever := &stubRetriever{docs: []Document{{Content: "relevant fact", Score: 0.9}}}
	branch := NewBranch(ctx, "drafting", "summarize the quarterly report").WithRetriever(retriever)

	step := Draft("draft")
	defer step.Close()

	if _, err := step.Process(ctx, branch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := branch.LatestOfKind(EventDraft); !ok {
		t.Fatal("expected draft event")
	}
}

func TestDraftFailsOnRetrievalError(t *testing.T) {
	SetProvider(&mockReasonProvider{})
	defer SetProvider(nil)

	ctx := context.Background()
	retriever := &stubRetriever{err: errors.New("index offline")}
	branch := NewBranch(ctx, "drafting", "summarize").WithRetriever(retriever)

	step := Draft("draft")
	defer step.Close()

	if _, err := step.Process(ctx, branch); err == nil {
		t.Error("expected retrieval error to fail the step")
	}
	if branch.Len() != 0 {
		t.Error("failed draft must not append events")
	}
}

func TestDraftStepRecordsFailure(t *testing.T) {
	SetProvider(&mockReasonProvider{})
	defer SetProvider(nil)

	ctx := context.Background()
	branch := NewBranch(ctx, "empty", "")

	step := Draft("draft")
	defer step.Close()

	_, _ = step.Process(ctx, branch)

	steps := branch.Steps()
	if len(steps) != 1 {
		t.Fatalf("expected 1 step record, got %d", len(steps))
	}
	if steps[0].Error == nil {
		t.Error("step record must carry the failure")
	}
}

func TestRenderDocumentsToContext(t *testing.T) {
	if got := RenderDocumentsToContext(nil); got != "" {
		t.Errorf("expected empty context for no documents, got %q", got)
	}

	docs := []Document{{Content: "first"}, {Content: "second"}}
	rendered := RenderDocumentsToContext(docs)
	if rendered != "[1] first\n\n[2] second" {
		t.Errorf("unexpected rendering: %q", rendered)
	}
}
