// Package arbortest provides test utilities for arbor.
package arbortest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/arbor"
	"github.com/zoobzio/zyn"
)

// MockArchive implements arbor.Archive for testing without a database.
type MockArchive struct {
	branches map[string]*arbor.Branch
	events   map[string][]arbor.Event
	mu       sync.RWMutex
}

// NewMockArchive creates a new in-memory mock for arbor.Archive.
func NewMockArchive() *MockArchive {
	return &MockArchive{
		branches: make(map[string]*arbor.Branch),
		events:   make(map[string][]arbor.Event),
	}
}

// CreateBranch persists a new branch and returns it with ID populated.
func (m *MockArchive) CreateBranch(_ context.Context, branch *arbor.Branch) (*arbor.Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if branch.ID == "" {
		branch.ID = uuid.New().String()
	}
	m.branches[branch.ID] = branch
	return branch, nil
}

// GetBranch loads a branch by ID, including its event log.
func (m *MockArchive) GetBranch(_ context.Context, id string) (*arbor.Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	branch, ok := m.branches[id]
	if !ok {
		return nil, fmt.Errorf("branch not found: %s", id)
	}
	branch.SetEvents(m.events[id])
	return branch, nil
}

// GetBranchByTraceID loads a branch by trace ID, including its event log.
func (m *MockArchive) GetBranchByTraceID(_ context.Context, traceID string) (*arbor.Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, branch := range m.branches {
		if branch.TraceID == traceID {
			branch.SetEvents(m.events[branch.ID])
			return branch, nil
		}
	}
	return nil, fmt.Errorf("branch not found for trace: %s", traceID)
}

// GetChildBranches loads all branches forked from the given branch.
func (m *MockArchive) GetChildBranches(_ context.Context, parentID string) ([]*arbor.Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var children []*arbor.Branch
	for _, branch := range m.branches {
		if branch.ParentID != nil && *branch.ParentID == parentID {
			children = append(children, branch)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].CreatedAt.Before(children[j].CreatedAt) })
	return children, nil
}

// AddEvent persists an event and returns it with ID populated.
func (m *MockArchive) AddEvent(_ context.Context, event *arbor.Event) (*arbor.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Created.IsZero() {
		event.Created = time.Now()
	}
	m.events[event.BranchID] = append(m.events[event.BranchID], *event)
	return event, nil
}

// GetEvents loads all events for a branch in append order.
func (m *MockArchive) GetEvents(_ context.Context, branchID string) ([]arbor.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events, ok := m.events[branchID]
	if !ok {
		return []arbor.Event{}, nil
	}
	out := make([]arbor.Event, len(events))
	copy(out, events)
	return out, nil
}

// DeleteBranch removes a branch and all its events.
func (m *MockArchive) DeleteBranch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.branches, id)
	delete(m.events, id)
	return nil
}

// SearchEvents returns no results; the mock stores no embeddings.
func (m *MockArchive) SearchEvents(_ context.Context, _ arbor.Vector, _ int) ([]arbor.Event, error) {
	return []arbor.Event{}, nil
}

// Verify MockArchive implements arbor.Archive.
var _ arbor.Archive = (*MockArchive)(nil)

// MockProvider implements arbor.Provider with a fixed response.
type MockProvider struct {
	Response string
	Err      error

	mu    sync.Mutex
	calls int
}

// NewMockProvider creates a provider that always returns the given content.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

// Call implements arbor.Provider.
func (m *MockProvider) Call(_ context.Context, _ []zyn.Message, _ float32) (*zyn.ProviderResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return &zyn.ProviderResponse{
		Content: m.Response,
		Usage:   zyn.TokenUsage{Prompt: 10, Completion: 20, Total: 30},
	}, nil
}

// Name implements arbor.Provider.
func (m *MockProvider) Name() string {
	return "mock"
}

// Calls returns how many times the provider was invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Verify MockProvider implements arbor.Provider.
var _ arbor.Provider = (*MockProvider)(nil)

// MockEmbedder implements arbor.Embedder with deterministic embeddings
// derived from text length and first bytes.
type MockEmbedder struct {
	Dims int
}

// NewMockEmbedder creates an embedder producing vectors of the given size.
func NewMockEmbedder(dims int) *MockEmbedder {
	if dims <= 0 {
		dims = 8
	}
	return &MockEmbedder{Dims: dims}
}

// Embed implements arbor.Embedder.
func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	embedding := make([]float32, m.Dims)
	for i := range embedding {
		embedding[i] = float32(len(text)%10) / 10
	}
	for i, r := range text {
		if i >= m.Dims {
			break
		}
		embedding[i] += float32(r%16) / 16
	}
	return embedding, nil
}

// Dimensions implements arbor.Embedder.
func (m *MockEmbedder) Dimensions() int {
	return m.Dims
}

// Verify MockEmbedder implements arbor.Embedder.
var _ arbor.Embedder = (*MockEmbedder)(nil)

// NewTestBranch creates a branch backed by a mock archive for testing.
func NewTestBranch(t *testing.T, task string) *arbor.Branch {
	t.Helper()
	ctx := context.Background()
	branch := arbor.NewBranch(ctx, "test-branch", task).WithArchive(NewMockArchive())
	return branch
}

// RequireEventOfKind asserts that the branch has an event of the given kind
// and returns the latest one.
func RequireEventOfKind(t *testing.T, branch *arbor.Branch, kind arbor.EventKind) arbor.Event {
	t.Helper()
	event, ok := branch.LatestOfKind(kind)
	if !ok {
		t.Fatalf("expected event of kind %q on branch %q", kind, branch.Name)
	}
	return event
}

// RequireNoEventOfKind asserts that the branch has no event of the given kind.
func RequireNoEventOfKind(t *testing.T, branch *arbor.Branch, kind arbor.EventKind) {
	t.Helper()
	if _, ok := branch.LatestOfKind(kind); ok {
		t.Fatalf("expected no event of kind %q on branch %q, but found one", kind, branch.Name)
	}
}
