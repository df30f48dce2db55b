package arbor

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zoobzio/astql/postgres"
	"github.com/zoobzio/soy"
	"github.com/zoobzio/zyn"
)

// SoyArchive implements Archive using soy for Postgres persistence, with
// pgvector similarity search over event embeddings.
type SoyArchive struct {
	branches *soy.Soy[Branch]
	events   *soy.Soy[Event]
	db       *sqlx.DB
}

// NewSoyArchive creates a soy-backed Archive.
func NewSoyArchive(db *sqlx.DB) (*SoyArchive, error) {
	renderer := postgres.New()

	branches, err := soy.New[Branch](db, "branches", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize branches table: %w", err)
	}

	events, err := soy.New[Event](db, "events", renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize events table: %w", err)
	}

	return &SoyArchive{
		branches: branches,
		events:   events,
		db:       db,
	}, nil
}

// CreateBranch persists a new branch and returns it with ID populated.
func (a *SoyArchive) CreateBranch(ctx context.Context, branch *Branch) (*Branch, error) {
	inserted, err := a.branches.Insert().Exec(ctx, branch)
	if err != nil {
		return nil, fmt.Errorf("failed to insert branch: %w", err)
	}
	return inserted, nil
}

// GetBranch loads a branch by ID, including its event log.
func (a *SoyArchive) GetBranch(ctx context.Context, id string) (*Branch, error) {
	branch, err := a.branches.Select().
		Where("id", "=", "id").
		Exec(ctx, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}

	if err := a.hydrateBranch(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

// GetBranchByTraceID loads a branch by trace ID, including its event log.
func (a *SoyArchive) GetBranchByTraceID(ctx context.Context, traceID string) (*Branch, error) {
	branch, err := a.branches.Select().
		Where("trace_id", "=", "trace_id").
		Exec(ctx, map[string]any{"trace_id": traceID})
	if err != nil {
		return nil, fmt.Errorf("failed to get branch by trace ID: %w", err)
	}

	if err := a.hydrateBranch(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

// GetChildBranches loads all branches forked from the given branch.
func (a *SoyArchive) GetChildBranches(ctx context.Context, parentID string) ([]*Branch, error) {
	branches, err := a.branches.Query().
		Where("parent_id", "=", "parent_id").
		OrderBy("created_at", "asc").
		Exec(ctx, map[string]any{"parent_id": parentID})
	if err != nil {
		return nil, fmt.Errorf("failed to get child branches: %w", err)
	}

	for _, branch := range branches {
		if err := a.hydrateBranch(ctx, branch); err != nil {
			return nil, err
		}
	}
	return branches, nil
}

// AddEvent persists an event and returns it with ID populated.
func (a *SoyArchive) AddEvent(ctx context.Context, event *Event) (*Event, error) {
	inserted, err := a.events.Insert().Exec(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}
	return inserted, nil
}

// GetEvents loads all events for a branch in append order.
func (a *SoyArchive) GetEvents(ctx context.Context, branchID string) ([]Event, error) {
	eventPtrs, err := a.events.Query().
		Where("branch_id", "=", "branch_id").
		OrderBy("created", "asc").
		Exec(ctx, map[string]any{"branch_id": branchID})
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	events := make([]Event, len(eventPtrs))
	for i, e := range eventPtrs {
		events[i] = *e
	}
	return events, nil
}

// TouchBranch updates the branch's updated_at timestamp.
func (a *SoyArchive) TouchBranch(ctx context.Context, branch *Branch) error {
	_, err := a.branches.Modify().
		Set("updated_at", "updated_at").
		Where("id", "=", "id").
		Exec(ctx, map[string]any{
			"updated_at": time.Now(),
			"id":         branch.ID,
		})
	if err != nil {
		return fmt.Errorf("failed to update branch: %w", err)
	}
	return nil
}

// DeleteBranch removes a branch and all its events.
func (a *SoyArchive) DeleteBranch(ctx context.Context, id string) error {
	// Delete events first (foreign key constraint).
	_, err := a.events.Remove().
		Where("branch_id", "=", "branch_id").
		Exec(ctx, map[string]any{"branch_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete events: %w", err)
	}

	_, err = a.branches.Remove().
		Where("id", "=", "id").
		Exec(ctx, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete branch: %w", err)
	}

	return nil
}

// SearchEvents finds events semantically similar to the query embedding.
// Events without embeddings are excluded from results.
func (a *SoyArchive) SearchEvents(ctx context.Context, embedding Vector, limit int) ([]Event, error) {
	eventPtrs, err := a.events.Query().
		WhereNotNull("embedding").
		OrderByExpr("embedding", "<->", "query_embedding", "asc").
		Limit(limit).
		Exec(ctx, map[string]any{"query_embedding": embedding})
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}

	events := make([]Event, len(eventPtrs))
	for i, e := range eventPtrs {
		events[i] = *e
	}
	return events, nil
}

// hydrateBranch loads events and session state into a branch.
func (a *SoyArchive) hydrateBranch(ctx context.Context, branch *Branch) error {
	events, err := a.GetEvents(ctx, branch.ID)
	if err != nil {
		return err
	}

	branch.SetArchive(a)
	branch.Session = zyn.NewSession()
	branch.SetEvents(events)
	return nil
}

// Close closes the underlying database connection.
func (a *SoyArchive) Close() error {
	return a.db.Close()
}

var _ Archive = (*SoyArchive)(nil)
