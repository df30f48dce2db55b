package arbor

import "context"

// Archive is an optional persistence sink for branches and events. The core
// contract is in-memory append/fork/query; callers that want durable logs
// attach an Archive to a branch and every appended event is written through.
type Archive interface {
	// CreateBranch persists a new branch and returns it with ID populated.
	CreateBranch(ctx context.Context, branch *Branch) (*Branch, error)

	// GetBranch loads a branch by ID, including its event log.
	GetBranch(ctx context.Context, id string) (*Branch, error)

	// GetBranchByTraceID loads a branch by trace ID, including its event log.
	GetBranchByTraceID(ctx context.Context, traceID string) (*Branch, error)

	// GetChildBranches loads all branches forked from the given branch.
	GetChildBranches(ctx context.Context, parentID string) ([]*Branch, error)

	// AddEvent persists an event and returns it with ID populated.
	AddEvent(ctx context.Context, event *Event) (*Event, error)

	// GetEvents loads all events for a branch in append order.
	GetEvents(ctx context.Context, branchID string) ([]Event, error)

	// DeleteBranch removes a branch and all its events.
	DeleteBranch(ctx context.Context, id string) error

	// SearchEvents finds events semantically similar to the query embedding,
	// ordered by similarity and limited to the given count. Events without
	// embeddings are excluded.
	SearchEvents(ctx context.Context, embedding Vector, limit int) ([]Event, error)
}
