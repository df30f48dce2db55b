package arbor

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/zoobzio/zyn"
)

// Provider defines the interface for text-generation providers.
// This matches zyn.Provider for compatibility: transport, authentication,
// and provider protocol stay behind this narrow contract.
type Provider interface {
	Call(ctx context.Context, messages []zyn.Message, temperature float32) (*zyn.ProviderResponse, error)
	Name() string
}

// Context key for provider.
type providerKeyType struct{}

var providerKey = providerKeyType{}

// Global provider fallback.
var (
	globalProvider   Provider
	globalProviderMu sync.RWMutex
)

// ErrNoProvider is returned when no provider can be resolved.
var ErrNoProvider = errors.New("no provider configured: set via context, step-level, or global")

// SetProvider sets the global fallback provider.
func SetProvider(p Provider) {
	globalProviderMu.Lock()
	defer globalProviderMu.Unlock()
	globalProvider = p
}

// GetProvider returns the global provider, if set.
func GetProvider() Provider {
	globalProviderMu.RLock()
	defer globalProviderMu.RUnlock()
	return globalProvider
}

// WithProvider adds a provider to the context.
// This is the preferred method for provider management.
func WithProvider(ctx context.Context, p Provider) context.Context {
	return context.WithValue(ctx, providerKey, p)
}

// ProviderFromContext retrieves the provider from context, if present.
func ProviderFromContext(ctx context.Context) (Provider, bool) {
	p, ok := ctx.Value(providerKey).(Provider)
	return p, ok
}

// ResolveProvider determines which provider to use based on resolution order:
// 1. Step-level provider (passed as argument)
// 2. Context provider
// 3. Global provider
// 4. Error if none found.
func ResolveProvider(ctx context.Context, stepProvider Provider) (Provider, error) {
	if stepProvider != nil {
		return stepProvider, nil
	}

	if p, ok := ProviderFromContext(ctx); ok {
		return p, nil
	}

	globalProviderMu.RLock()
	p := globalProvider
	globalProviderMu.RUnlock()

	if p != nil {
		return p, nil
	}

	return nil, ErrNoProvider
}

// GenerateText invokes a provider with a single user prompt and wraps the
// response in an Outcome. This is the narrow contract the orchestrator and
// reasoning arrows depend on.
func GenerateText(ctx context.Context, p Provider, prompt string, temperature float32) Outcome[string] {
	if strings.TrimSpace(prompt) == "" {
		return Failure[string](Faultf(KindValidation, p.Name(), "empty prompt"))
	}

	resp, err := p.Call(ctx, []zyn.Message{{Role: "user", Content: prompt}}, temperature)
	if err != nil {
		return Failure[string](FaultFrom(p.Name(), err))
	}
	return Success(resp.Content)
}
