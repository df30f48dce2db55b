// Package arbor provides an orchestration substrate for multi-step LLM
// reasoning workflows in Go.
//
// arbor is built around event-sourced execution branches: each reasoning
// workflow appends immutable events to a [Branch], and every intermediate
// result stays queryable after the workflow completes.
//
// # Core Types
//
//   - [Outcome] - A success-or-fault result carried through composition
//   - [Arrow] - A context-aware computation from one value to the next
//   - [Branch] - An event-sourced execution branch with fork semantics
//   - [Event] - One immutable entry in a branch's reasoning log
//   - [Tool] - A named external capability with layered resilience
//
// # Creating Branches
//
// Use [NewBranch] to start a branch for a task:
//
//	branch := arbor.NewBranch(ctx, "feedback-review", "summarize customer feedback")
//	branch.WithRetriever(retriever).WithArchive(archive)
//
// Call [Branch.Fork] to explore alternatives in parallel; each fork owns an
// independent copy of the event log.
//
// # Reasoning Steps
//
// Steps implement pipz.Chainable[*Branch] and compose into pipelines:
//
//   - [Draft] - Generate a first-pass answer, appended as a draft event
//   - [DraftWithTools] - Draft with tool-calling against a [ToolRegistry]
//   - [Critique] - Review the latest draft, appended as a critique event
//   - [Improve] - Merge draft and critique into a final event
//
// Builder methods add per-step resilience: WithRetry, WithBackoff,
// WithTimeout, WithCircuitBreaker, WithProvider, WithTemperature.
//
// # Pipeline Helpers
//
// arbor wraps pipz connectors for Branch processing:
//
//   - [Sequence] - Sequential execution
//   - [Filter] - Conditional execution
//   - [Switch] - Route to different processors
//   - [Fallback] - Try alternatives on failure
//   - [Retry] - Retry on failure
//   - [Backoff] - Retry with exponential backoff
//   - [Timeout] - Enforce time limits
//   - [Concurrent] - Run processors in parallel
//   - [Race] - Return first successful result
//
// # Tools
//
// Tools wrap an [Invoker] with composable resilience decorators. Each
// decorator wraps the current invoker, so the first applied sits innermost:
//
//	tool := arbor.LiftTool(descriptor, fn).
//	    WithTimeout(10 * time.Second).
//	    WithCircuitBreaker(5, 30*time.Second).
//	    WithRetry(3, 100*time.Millisecond).
//	    WithCache(time.Minute).
//	    WithTracking(onCall)
//
// # Routing
//
// The [Orchestrator] routes tasks to registered model capabilities using a
// heuristic classifier and confidence bands: high confidence selects the
// best-scored model, middle confidence runs a concurrent ensemble, and low
// confidence picks the highest-capability model and flags the decision for
// review. Historical performance feeds back through a [Scoreboard].
//
// # Provider & Embedder
//
// LLM and embedding access uses a resolution hierarchy:
//
//  1. Explicit parameter (.WithProvider(p))
//  2. Context value (arbor.WithProvider(ctx, p))
//  3. Global default (arbor.SetProvider(p))
//
// [NewOllamaProvider] serves local models through Ollama's
// OpenAI-compatible API.
//
// # Persistence
//
// The [SoyArchive] implementation uses soy for PostgreSQL persistence with
// pgvector for semantic search over event content:
//
//	archive, err := arbor.NewSoyArchive(db)
//
// # Observability
//
// arbor emits capitan signals throughout execution. See [signals.go] for
// the complete list of events including BranchCreated, BranchForked,
// EventAppended, StepStarted, ToolInvoked, and RoutingDecided.
package arbor
