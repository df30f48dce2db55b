package arbor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/zyn"
)

// EventKind tags a reasoning event by the stage that produced it.
type EventKind string

const (
	EventDraft    EventKind = "draft"
	EventCritique EventKind = "critique"
	EventFinal    EventKind = "final"
)

// ToolExecution records one tool call performed while generating an event.
type ToolExecution struct {
	Tool    string        `json:"tool"`
	Input   string        `json:"input"`
	Output  string        `json:"output"`
	Elapsed time.Duration `json:"elapsed"`
	Failed  bool          `json:"failed"`
}

// Event is one immutable entry in a branch's reasoning log. Once appended
// it is never mutated; later events of the same kind shadow earlier ones
// when queried through LatestOfKind.
type Event struct {
	ID             string          `db:"id" type:"uuid" constraints:"primarykey" default:"gen_random_uuid()"`
	BranchID       string          `db:"branch_id" type:"uuid" constraints:"notnull" references:"branches(id)"`
	Kind           EventKind       `db:"kind" type:"text" constraints:"notnull"`
	Content        string          `db:"content" type:"text" constraints:"notnull"`
	Prompt         string          `db:"prompt" type:"text"`
	ToolExecutions []ToolExecution `db:"tool_executions" type:"jsonb" default:"'[]'"`
	Created        time.Time       `db:"created" type:"timestamp" constraints:"notnull"`
	Embedding      Vector          `db:"embedding" type:"vector(1536)"`
}

// StepRecord captures the execution of one pipeline step against a branch.
type StepRecord struct {
	Name      string
	Type      string
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

// Branch is an event-sourced execution branch: an append-only log of
// reasoning events for one task, plus read-only references to its
// collaborators (retriever, archive).
//
// # Ownership
//
// A branch is owned by exactly one logical workflow at a time. Two live
// references to the same branch must not append through both; call Fork to
// explore in parallel. A fork carries an independent copy of the event
// sequence, so the two branches diverge without interference. Read methods
// are safe for concurrent use.
type Branch struct {
	// Identity
	ID      string `db:"id" type:"uuid" constraints:"primarykey" default:"gen_random_uuid()"`
	Name    string `db:"name" type:"text" constraints:"notnull"`
	Task    string `db:"task" type:"text" constraints:"notnull"`
	TraceID string `db:"trace_id" type:"text" constraints:"notnull,unique"`

	// Lineage
	ParentID *string `db:"parent_id" type:"uuid" references:"branches(id)"`

	// LLM conversation state (not persisted)
	Session *zyn.Session

	// Read-only collaborators, shared across forks
	retriever Retriever
	archive   Archive
	embedder  Embedder

	// Append-only event log and step history
	events []Event
	steps  []StepRecord
	forks  atomic.Int64
	mu     sync.RWMutex

	// Timestamps
	CreatedAt time.Time `db:"created_at" type:"timestamp" constraints:"notnull"`
	UpdatedAt time.Time `db:"updated_at" type:"timestamp" constraints:"notnull"`
}

// NewBranch creates a branch with a name, the task it explores, and an empty
// event log. TraceID is auto-generated.
func NewBranch(ctx context.Context, name, task string) *Branch {
	b := &Branch{
		ID:        uuid.New().String(),
		Name:      name,
		Task:      task,
		TraceID:   uuid.New().String(),
		Session:   zyn.NewSession(),
		events:    make([]Event, 0),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	capitan.Emit(ctx, BranchCreated,
		FieldBranch.Field(b.Name),
		FieldTask.Field(b.Task),
		FieldTraceID.Field(b.TraceID),
	)

	return b
}

// WithRetriever attaches a retrieval store. Retrievers are read-only
// collaborators shared by forks.
func (b *Branch) WithRetriever(r Retriever) *Branch {
	b.retriever = r
	return b
}

// WithArchive attaches a persistence sink. Events are written through to the
// archive as they are appended; the in-memory log remains authoritative.
func (b *Branch) WithArchive(a Archive) *Branch {
	b.archive = a
	return b
}

// WithEmbedder attaches an embedder used to embed event content for
// semantic search through the archive.
func (b *Branch) WithEmbedder(e Embedder) *Branch {
	b.embedder = e
	return b
}

// Retriever returns the attached retrieval store, if any.
func (b *Branch) Retriever() Retriever {
	return b.retriever
}

// Archive returns the attached persistence sink, if any.
func (b *Branch) Archive() Archive {
	return b.archive
}

// AddEvent appends a reasoning event to the branch log. ID and timestamp are
// filled if unset. When an archive is attached the event is persisted before
// the in-memory append, so a persistence failure leaves the log unchanged.
func (b *Branch) AddEvent(ctx context.Context, event Event) error {
	if event.Kind == "" {
		return fmt.Errorf("branch %q: event kind is required", b.Name)
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Created.IsZero() {
		event.Created = time.Now()
	}
	event.BranchID = b.ID

	if b.embedder != nil && event.Embedding == nil {
		embedding, err := b.embedder.Embed(ctx, event.Content)
		if err == nil {
			event.Embedding = embedding
		}
		// Embedding is best-effort; the event is appended either way.
	}

	if b.archive != nil {
		persisted, err := b.archive.AddEvent(ctx, &event)
		if err != nil {
			return fmt.Errorf("branch %q: failed to persist event: %w", b.Name, err)
		}
		event.ID = persisted.ID
	}

	b.mu.Lock()
	b.events = append(b.events, event)
	count := len(b.events)
	b.UpdatedAt = time.Now()
	b.mu.Unlock()

	capitan.Emit(ctx, EventAppended,
		FieldBranch.Field(b.Name),
		FieldTraceID.Field(b.TraceID),
		FieldEventKind.Field(string(event.Kind)),
		FieldEventCount.Field(count),
		FieldContentSize.Field(len(event.Content)),
	)

	return nil
}

// Events returns the event log in append order.
func (b *Branch) Events() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := make([]Event, len(b.events))
	copy(events, b.events)
	return events
}

// Len returns the number of appended events.
func (b *Branch) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}

// LatestOfKind replays the log for the most recent event of the given kind.
// Later appends always shadow earlier events of the same kind.
func (b *Branch) LatestOfKind(kind EventKind) (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].Kind == kind {
			return b.events[i], true
		}
	}
	return Event{}, false
}

// Latest returns the most recently appended event.
func (b *Branch) Latest() (Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return Event{}, false
	}
	return b.events[len(b.events)-1], true
}

// AddStep records a pipeline step execution against this branch.
func (b *Branch) AddStep(record StepRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steps = append(b.steps, record)
}

// Steps returns the step execution history in order.
func (b *Branch) Steps() []StepRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	steps := make([]StepRecord, len(b.steps))
	copy(steps, b.steps)
	return steps
}

// Fork creates an independently owned branch with a derived name, a copy of
// the event sequence, and a fresh trace and session. Events themselves are
// immutable and shared by value; the retriever and archive references are
// shared. Appends to the fork never affect the original and vice versa.
func (b *Branch) Fork(ctx context.Context) *Branch {
	n := b.forks.Add(1)
	parentID := b.ID

	b.mu.RLock()
	fork := &Branch{
		ID:        uuid.New().String(),
		Name:      fmt.Sprintf("%s.fork-%d", b.Name, n),
		Task:      b.Task,
		TraceID:   uuid.New().String(),
		ParentID:  &parentID,
		Session:   zyn.NewSession(),
		retriever: b.retriever,
		archive:   b.archive,
		embedder:  b.embedder,
		events:    make([]Event, len(b.events)),
		steps:     make([]StepRecord, len(b.steps)),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	copy(fork.events, b.events)
	copy(fork.steps, b.steps)
	b.mu.RUnlock()

	capitan.Emit(ctx, BranchForked,
		FieldBranch.Field(b.Name),
		FieldTraceID.Field(b.TraceID),
		FieldEventCount.Field(len(fork.events)),
	)

	return fork
}

// Clone creates a deep copy for parallel pipeline connectors. Unlike Fork it
// keeps the branch identity (name, trace) so results can be merged back;
// the event log is still independently owned. Required by pipz.Concurrent
// and pipz.Race, which hand each processor an isolated copy.
func (b *Branch) Clone() *Branch {
	b.mu.RLock()
	defer b.mu.RUnlock()

	clone := &Branch{
		ID:        b.ID,
		Name:      b.Name,
		Task:      b.Task,
		TraceID:   b.TraceID,
		ParentID:  b.ParentID,
		Session:   zyn.NewSession(),
		retriever: b.retriever,
		archive:   b.archive,
		embedder:  b.embedder,
		events:    make([]Event, len(b.events)),
		steps:     make([]StepRecord, len(b.steps)),
		CreatedAt: b.CreatedAt,
		UpdatedAt: time.Now(),
	}
	copy(clone.events, b.events)
	copy(clone.steps, b.steps)

	if b.Session != nil {
		clone.Session.SetMessages(b.Session.Messages())
	}

	return clone
}

// Compile-time check: *Branch must implement pipz.Cloner[*Branch].
var _ interface{ Clone() *Branch } = (*Branch)(nil)

// SetEvents replaces the in-memory log. This is used when hydrating a
// branch from an archive and must not be called on a live branch.
func (b *Branch) SetEvents(events []Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = make([]Event, len(events))
	copy(b.events, events)
}

// SetArchive sets the archive reference on a hydrated branch.
func (b *Branch) SetArchive(a Archive) {
	b.archive = a
}
