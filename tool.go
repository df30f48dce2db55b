package arbor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Invoker is the shape of every wrapped invocation in the resilience layer:
// a tool or model call from a string input to an Outcome-wrapped string.
// Decorators compose by simple function wrapping, so ordering is
// caller-determined.
type Invoker func(ctx context.Context, input string) Outcome[string]

// ToolDescriptor describes a registered tool for catalogue export.
// Immutable once registered.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// Tool pairs a descriptor with its invocation function. The With* builder
// methods return a new Tool wrapping the previous invoker; each decorator
// owns private state scoped to that wrapper instance.
//
// Recommended stacking, outermost first: WithTracking, WithCache, WithRetry,
// WithCircuitBreaker, WithTimeout. Timeout innermost gives each retry attempt
// its own deadline budget; cache outermost avoids re-entering retry loops on
// a hit.
type Tool struct {
	desc   ToolDescriptor
	invoke Invoker
}

// NewTool creates a tool from a descriptor and an invoker.
func NewTool(desc ToolDescriptor, invoke Invoker) *Tool {
	return &Tool{desc: desc, invoke: invoke}
}

// LiftTool creates a tool from an ordinary (value, error) function.
func LiftTool(desc ToolDescriptor, fn func(ctx context.Context, input string) (string, error)) *Tool {
	return NewTool(desc, func(ctx context.Context, input string) Outcome[string] {
		out, err := fn(ctx, input)
		if err != nil {
			return Failure[string](FaultFrom(desc.Name, err))
		}
		return Success(out)
	})
}

// Descriptor returns the tool's descriptor.
func (t *Tool) Descriptor() ToolDescriptor {
	return t.desc
}

// Name returns the tool's registered name.
func (t *Tool) Name() string {
	return t.desc.Name
}

// Invoke runs the tool with its full decorator stack.
func (t *Tool) Invoke(ctx context.Context, input string) Outcome[string] {
	if err := ctx.Err(); err != nil {
		return Failure[string](FaultFrom(t.desc.Name, err))
	}
	return t.invoke(ctx, input)
}

// wrap returns a new Tool with the same descriptor and a decorated invoker.
func (t *Tool) wrap(invoke Invoker) *Tool {
	return &Tool{desc: t.desc, invoke: invoke}
}

// ToolRegistry maps tool names to tools. Registration is append-only during
// setup; lookups are read-heavy at runtime and safe for concurrent use.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Registering a duplicate or unnamed tool is an error.
func (r *ToolRegistry) Register(t *Tool) error {
	if t == nil || t.desc.Name == "" {
		return fmt.Errorf("tool registry: tool must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.desc.Name]; exists {
		return fmt.Errorf("tool registry: duplicate tool %q", t.desc.Name)
	}
	r.tools[t.desc.Name] = t
	return nil
}

// Lookup returns the tool registered under name.
func (r *ToolRegistry) Lookup(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names in sorted order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Catalog serializes all descriptors as a JSON array sorted by tool name.
// The ordering is stable so prompts built from the catalogue are
// reproducible.
func (r *ToolRegistry) Catalog() (string, error) {
	r.mu.RLock()
	descs := make([]ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		descs = append(descs, t.desc)
	}
	r.mu.RUnlock()

	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })

	out, err := json.MarshalIndent(descs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("tool registry: failed to serialize catalog: %w", err)
	}
	return string(out), nil
}
