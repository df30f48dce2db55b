package arbor

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestLiftToolInvoke(t *testing.T) {
	tool := LiftTool(ToolDescriptor{Name: "echo"}, func(_ context.Context, input string) (string, error) {
		return "echo: " + input, nil
	})

	out := tool.Invoke(context.Background(), "hello")
	if value := out.MustValue(); value != "echo: hello" {
		t.Errorf("expected 'echo: hello', got %q", value)
	}

	failing := LiftTool(ToolDescriptor{Name: "broken"}, func(_ context.Context, _ string) (string, error) {
		return "", errors.New("backend down")
	})

	out = failing.Invoke(context.Background(), "hello")
	if out.Ok() {
		t.Fatal("expected failure")
	}
	if out.Fault().Stage != "broken" {
		t.Errorf("expected stage 'broken', got %q", out.Fault().Stage)
	}
}

func TestToolInvokeCanceledContext(t *testing.T) {
	called := false
	tool := LiftTool(ToolDescriptor{Name: "slow"}, func(_ context.Context, input string) (string, error) {
		called = true
		return input, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := tool.Invoke(ctx, "x")
	if out.Ok() {
		t.Fatal("expected failure on canceled context")
	}
	if called {
		t.Error("invoker must not run on canceled context")
	}
}

func TestToolRegistryRegisterAndLookup(t *testing.T) {
	registry := NewToolRegistry()

	tool := LiftTool(ToolDescriptor{Name: "search", Description: "web search"}, func(_ context.Context, input string) (string, error) {
		return input, nil
	})

	if err := registry.Register(tool); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found, ok := registry.Lookup("search")
	if !ok {
		t.Fatal("expected to find registered tool")
	}
	if found.Name() != "search" {
		t.Errorf("expected 'search', got %q", found.Name())
	}

	if _, ok := registry.Lookup("missing"); ok {
		t.Error("expected lookup miss for unregistered name")
	}
}

func TestToolRegistryRejectsDuplicates(t *testing.T) {
	registry := NewToolRegistry()
	tool := LiftTool(ToolDescriptor{Name: "search"}, func(_ context.Context, input string) (string, error) {
		return input, nil
	})

	if err := registry.Register(tool); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := registry.Register(tool); err == nil {
		t.Error("expected error on duplicate registration")
	}
}

func TestToolRegistryRejectsUnnamed(t *testing.T) {
	registry := NewToolRegistry()
	tool := LiftTool(ToolDescriptor{}, func(_ context.Context, input string) (string, error) {
		return input, nil
	})

	if err := registry.Register(tool); err == nil {
		t.Error("expected error for tool without a name")
	}
}

func TestToolRegistryCatalogDeterministic(t *testing.T) {
	build := func(names ...string) *ToolRegistry {
		registry := NewToolRegistry()
		for _, name := range names {
			tool := LiftTool(ToolDescriptor{Name: name, Description: name + " tool"}, func(_ context.Context, input string) (string, error) {
				return input, nil
			})
			if err := registry.Register(tool); err != nil {
				t.Fatalf("register %q: %v", name, err)
			}
		}
		return registry
	}

	first := build("zeta", "alpha", "mid")
	second := build("mid", "zeta", "alpha")

	catalogA, err := first.Catalog()
	if err != nil {
		t.Fatalf("catalog failed: %v", err)
	}
	catalogB, err := second.Catalog()
	if err != nil {
		t.Fatalf("catalog failed: %v", err)
	}

	if catalogA != catalogB {
		t.Error("catalog must be identical regardless of registration order")
	}
	if !strings.Contains(catalogA, "alpha") || !strings.Contains(catalogA, "zeta") {
		t.Errorf("catalog missing tools: %s", catalogA)
	}

	names := first.Names()
	if len(names) != 3 || names[0] != "alpha" || names[2] != "zeta" {
		t.Errorf("expected sorted names, got %v", names)
	}
}
