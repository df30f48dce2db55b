package arbor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// mockArchive implements Archive for testing without a database.
type mockArchive struct {
	branches map[string]*Branch
	events   map[string][]Event
	failNext error
	mu       sync.RWMutex
}

func newMockArchive() *mockArchive {
	return &mockArchive{
		branches: make(map[string]*Branch),
		events:   make(map[string][]Event),
	}
}

func (m *mockArchive) CreateBranch(_ context.Context, branch *Branch) (*Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if branch.ID == "" {
		branch.ID = uuid.New().String()
	}
	m.branches[branch.ID] = branch
	return branch, nil
}

func (m *mockArchive) GetBranch(_ context.Context, id string) (*Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	branch, ok := m.branches[id]
	if !ok {
		return nil, fmt.Errorf("branch not found: %s", id)
	}
	return branch, nil
}

func (m *mockArchive) GetBranchByTraceID(_ context.Context, traceID string) (*Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, branch := range m.branches {
		if branch.TraceID == traceID {
			return branch, nil
		}
	}
	return nil, fmt.Errorf("branch not found for trace: %s", traceID)
}

func (m *mockArchive) GetChildBranches(_ context.Context, parentID string) ([]*Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var children []*Branch
	for _, branch := range m.branches {
		if branch.ParentID != nil && *branch.ParentID == parentID {
			children = append(children, branch)
		}
	}
	return children, nil
}

func (m *mockArchive) AddEvent(_ context.Context, event *Event) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return nil, err
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Created.IsZero() {
		event.Created = time.Now()
	}
	m.events[event.BranchID] = append(m.events[event.BranchID], *event)
	return event, nil
}

func (m *mockArchive) GetEvents(_ context.Context, branchID string) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]Event, len(m.events[branchID]))
	copy(events, m.events[branchID])
	return events, nil
}

func (m *mockArchive) DeleteBranch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.branches, id)
	delete(m.events, id)
	return nil
}

func (m *mockArchive) SearchEvents(_ context.Context, _ Vector, _ int) ([]Event, error) {
	return []Event{}, nil
}

// failOnNextAdd makes the next AddEvent call return the given error.
func (m *mockArchive) failOnNextAdd() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = errors.New("archive unavailable")
}

var _ Archive = (*mockArchive)(nil)
