package arbor

import (
	"context"
	"errors"
	"testing"
)

func TestResolveProviderPrefersStepLevel(t *testing.T) {
	stepProvider := &mockTextProvider{name: "step"}
	ctxProvider := &mockTextProvider{name: "ctx"}
	globalProvider := &mockTextProvider{name: "global"}

	SetProvider(globalProvider)
	defer SetProvider(nil)

	ctx := WithProvider(context.Background(), ctxProvider)

	resolved, err := ResolveProvider(ctx, stepProvider)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Name() != "step" {
		t.Errorf("expected step provider, got %q", resolved.Name())
	}
}

func TestResolveProviderFallsBackToContext(t *testing.T) {
	SetProvider(&mockTextProvider{name: "global"})
	defer SetProvider(nil)

	ctx := WithProvider(context.Background(), &mockTextProvider{name: "ctx"})

	resolved, err := ResolveProvider(ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Name() != "ctx" {
		t.Errorf("expected context provider, got %q", resolved.Name())
	}
}

func TestResolveProviderFallsBackToGlobal(t *testing.T) {
	SetProvider(&mockTextProvider{name: "global"})
	defer SetProvider(nil)

	resolved, err := ResolveProvider(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Name() != "global" {
		t.Errorf("expected global provider, got %q", resolved.Name())
	}
}

func TestResolveProviderErrorsWhenUnset(t *testing.T) {
	SetProvider(nil)

	if _, err := ResolveProvider(context.Background(), nil); !errors.Is(err, ErrNoProvider) {
		t.Errorf("expected ErrNoProvider, got %v", err)
	}
}

func TestGenerateText(t *testing.T) {
	provider := &mockTextProvider{name: "m", response: "hello"}

	out := GenerateText(context.Background(), provider, "say hello", 0.2)
	if out.MustValue() != "hello" {
		t.Errorf("unexpected content: %q", out.MustValue())
	}
}

func TestGenerateTextEmptyPrompt(t *testing.T) {
	provider := &mockTextProvider{name: "m", response: "hello"}

	out := GenerateText(context.Background(), provider, "   ", 0.2)
	if out.Ok() {
		t.Fatal("expected failure for empty prompt")
	}
	if out.Fault().Kind != KindValidation {
		t.Errorf("expected validation kind, got %s", out.Fault().Kind)
	}
}

func TestGenerateTextProviderError(t *testing.T) {
	provider := &mockTextProvider{name: "m", err: errors.New("backend down")}

	out := GenerateText(context.Background(), provider, "prompt", 0.2)
	if out.Ok() {
		t.Fatal("expected failure when the provider errors")
	}
	if out.Fault().Kind != KindTransient {
		t.Errorf("expected transient kind, got %s", out.Fault().Kind)
	}
	if out.Fault().Stage != "m" {
		t.Errorf("fault must name the provider, got %q", out.Fault().Stage)
	}
}
