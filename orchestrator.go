package arbor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
)

// ModelKind is the broad family a model capability belongs to.
type ModelKind string

const (
	ModelReasoning ModelKind = "reasoning"
	ModelGeneral   ModelKind = "general"
	ModelCode      ModelKind = "code"
)

// ModelCapability describes one registered model. Registered once at setup;
// read-only at routing time.
type ModelCapability struct {
	Name       string
	Kind       ModelKind
	Tags       []string
	MaxTokens  int
	AvgLatency time.Duration
}

// RouteHints are optional caller constraints folded into scoring.
// Zero values select balanced defaults.
type RouteHints struct {
	LatencyBudget time.Duration
	QualityWeight float64
	CostWeight    float64
}

// TaskProfile is the feature set derived from a task's text.
type TaskProfile struct {
	Complexity   float64
	Confidence   float64
	RequiredTags []string
}

// RoutingDecision explains which model was chosen and why. Produced fresh
// per routing call and never mutated after return; Confidence and Reason
// are populated on every path, including fallback, so callers can audit
// the choice.
type RoutingDecision struct {
	SelectedModel string
	Confidence    float64
	Reason        string
	NeedsReview   bool
	Metadata      map[string]string
}

// RouteResult pairs a routing decision with the generated output.
type RouteResult struct {
	Decision RoutingDecision
	Output   string
}

// Default confidence bands: at or above high the top-scored model is used
// directly; between low and high an ensemble runs; below low the
// highest-capability model is chosen and flagged for review.
const (
	DefaultHighConfidence = 0.8
	DefaultLowConfidence  = 0.3
	defaultLatencyRef     = 2 * time.Second
	maxEnsembleCandidates = 3
)

// Orchestrator routes tasks to registered model capabilities. It is
// stateless across calls except for the capability registry and the
// injected Scoreboard.
type Orchestrator struct {
	mu        sync.RWMutex
	caps      map[string]ModelCapability
	providers map[string]Provider

	scoreboard  Scoreboard
	fallback    string
	high, low   float64
	temperature float32
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithScoreboard injects a historical-performance store.
func WithScoreboard(s Scoreboard) OrchestratorOption {
	return func(o *Orchestrator) {
		o.scoreboard = s
	}
}

// WithConfidenceBands overrides the high/low routing thresholds.
func WithConfidenceBands(high, low float64) OrchestratorOption {
	return func(o *Orchestrator) {
		o.high = high
		o.low = low
	}
}

// WithRoutingTemperature sets the generation temperature Execute uses.
func WithRoutingTemperature(temp float32) OrchestratorOption {
	return func(o *Orchestrator) {
		o.temperature = temp
	}
}

// NewOrchestrator creates an orchestrator. The fallback identifier is used
// only when the registry yields zero candidates for a task; no other model
// is ever hard-coded as a default.
func NewOrchestrator(fallback string, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		caps:        make(map[string]ModelCapability),
		providers:   make(map[string]Provider),
		scoreboard:  NewMemoryScoreboard(),
		fallback:    fallback,
		high:        DefaultHighConfidence,
		low:         DefaultLowConfidence,
		temperature: DefaultReasoningTemperature,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RegisterModel adds a capability and the provider that serves it.
// Registration is append-only during setup.
func (o *Orchestrator) RegisterModel(cap ModelCapability, p Provider) error {
	if cap.Name == "" {
		return fmt.Errorf("orchestrator: capability must have a name")
	}
	if p == nil {
		return fmt.Errorf("orchestrator: capability %q must have a provider", cap.Name)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.caps[cap.Name]; exists {
		return fmt.Errorf("orchestrator: duplicate capability %q", cap.Name)
	}
	o.caps[cap.Name] = cap
	o.providers[cap.Name] = p
	return nil
}

// Capabilities returns registered capabilities sorted by name.
func (o *Orchestrator) Capabilities() []ModelCapability {
	o.mu.RLock()
	defer o.mu.RUnlock()

	caps := make([]ModelCapability, 0, len(o.caps))
	for _, c := range o.caps {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i].Name < caps[j].Name })
	return caps
}

// Keyword groups for the heuristic classifier.
var (
	codeKeywords      = []string{"code", "function", "bug", "compile", "implement", "refactor", "stack trace", "api"}
	reasoningKeywords = []string{"why", "prove", "analyze", "explain", "compare", "evaluate", "reason", "step by step"}
)

// Classify derives a task profile from the task text. Complexity grows with
// length and clause count; confidence reflects how unambiguous the keyword
// signals are.
func (o *Orchestrator) Classify(task string, _ RouteHints) TaskProfile {
	lower := strings.ToLower(task)
	words := len(strings.Fields(task))

	codeHits := countHits(lower, codeKeywords)
	reasoningHits := countHits(lower, reasoningKeywords)

	var tags []string
	switch {
	case codeHits > 0 && codeHits >= reasoningHits:
		tags = append(tags, string(ModelCode))
	case reasoningHits > 0:
		tags = append(tags, string(ModelReasoning))
	default:
		tags = append(tags, string(ModelGeneral))
	}

	complexity := float64(words) / 200.0
	complexity += 0.1 * float64(strings.Count(task, "?"))
	if complexity > 1 {
		complexity = 1
	}

	// Strong single-category signals produce high confidence; mixed or
	// absent signals push the profile toward the ensemble and review bands.
	dominant := codeHits
	secondary := reasoningHits
	if reasoningHits > codeHits {
		dominant, secondary = reasoningHits, codeHits
	}
	confidence := 0.35 + 0.2*float64(dominant) - 0.15*float64(secondary)
	if confidence > 0.95 {
		confidence = 0.95
	}
	if confidence < 0.05 {
		confidence = 0.05
	}

	return TaskProfile{
		Complexity:   complexity,
		Confidence:   confidence,
		RequiredTags: tags,
	}
}

func countHits(text string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	return hits
}

// scoredModel is one routing candidate with its weighted score.
type scoredModel struct {
	cap   ModelCapability
	score float64
}

// candidates scores every capability whose tags intersect the required set,
// sorted best-first. Scoring combines tag match strength, historical
// success rate when available, and the caller's quality/cost weighting
// (latency as the cost proxy).
func (o *Orchestrator) candidates(profile TaskProfile, hints RouteHints) []scoredModel {
	qw := hints.QualityWeight
	cw := hints.CostWeight
	if qw == 0 && cw == 0 {
		qw, cw = 0.5, 0.5
	}
	total := qw + cw
	qw, cw = qw/total, cw/total

	latencyRef := hints.LatencyBudget
	if latencyRef <= 0 {
		latencyRef = defaultLatencyRef
	}

	required := make(map[string]struct{}, len(profile.RequiredTags))
	for _, tag := range profile.RequiredTags {
		required[tag] = struct{}{}
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	var scored []scoredModel
	for _, cap := range o.caps {
		matched := 0
		for _, tag := range cap.Tags {
			if _, ok := required[tag]; ok {
				matched++
			}
		}
		if matched == 0 {
			continue
		}

		quality := float64(matched) / float64(len(profile.RequiredTags))
		if rate, ok := o.scoreboard.SuccessRate(cap.Name); ok {
			quality = 0.7*quality + 0.3*rate
		}

		costFit := 1 - float64(cap.AvgLatency)/float64(latencyRef)
		if costFit < 0 {
			costFit = 0
		}

		scored = append(scored, scoredModel{
			cap:   cap,
			score: qw*quality + cw*costFit,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].cap.Name < scored[j].cap.Name
	})
	return scored
}

// Route classifies the task and returns a routing decision without invoking
// any model. The ensemble band is reported through the decision metadata;
// Execute runs the candidates.
func (o *Orchestrator) Route(ctx context.Context, task string, hints RouteHints) (RoutingDecision, error) {
	profile := o.Classify(task, hints)
	return o.RouteProfile(ctx, profile, hints)
}

// RouteProfile routes an already-classified task profile.
func (o *Orchestrator) RouteProfile(ctx context.Context, profile TaskProfile, hints RouteHints) (RoutingDecision, error) {
	scored := o.candidates(profile, hints)

	var decision RoutingDecision
	switch {
	case len(scored) == 0:
		if o.fallback == "" {
			return RoutingDecision{}, Faultf(KindRouting, "orchestrator",
				"no capable model for tags %v and no fallback configured", profile.RequiredTags)
		}
		decision = RoutingDecision{
			SelectedModel: o.fallback,
			Confidence:    profile.Confidence,
			Reason:        fmt.Sprintf("no registered model matches tags %v; using configured fallback", profile.RequiredTags),
			NeedsReview:   true,
			Metadata:      map[string]string{"strategy": "fallback"},
		}

	case profile.Confidence >= o.high:
		best := scored[0]
		decision = RoutingDecision{
			SelectedModel: best.cap.Name,
			Confidence:    profile.Confidence,
			Reason: fmt.Sprintf("high classification confidence %.2f; best weighted score %.2f for tags %v",
				profile.Confidence, best.score, profile.RequiredTags),
			Metadata: map[string]string{"strategy": "single"},
		}

	case profile.Confidence < o.low:
		best := highestCapability(scored)
		decision = RoutingDecision{
			SelectedModel: best.Name,
			Confidence:    profile.Confidence,
			Reason: fmt.Sprintf("low classification confidence %.2f; selecting highest-capability model and flagging for review",
				profile.Confidence),
			NeedsReview: true,
			Metadata:    map[string]string{"strategy": "review"},
		}

	default:
		names := candidateNames(scored, maxEnsembleCandidates)
		decision = RoutingDecision{
			SelectedModel: scored[0].cap.Name,
			Confidence:    profile.Confidence,
			Reason: fmt.Sprintf("middle-band confidence %.2f; running %d candidates as an ensemble",
				profile.Confidence, len(names)),
			Metadata: map[string]string{
				"strategy":   "ensemble",
				"candidates": strings.Join(names, ","),
			},
		}
	}

	capitan.Emit(ctx, RoutingDecided,
		FieldModel.Field(decision.SelectedModel),
		FieldConfidence.Field(float32(decision.Confidence)),
		FieldReason.Field(decision.Reason),
		FieldCandidates.Field(len(scored)),
	)

	return decision, nil
}

// Execute routes the task and runs the selected strategy: a single
// generation for the high and low bands, a concurrent ensemble for the
// middle band. Results are folded into the scoreboard.
func (o *Orchestrator) Execute(ctx context.Context, task string, hints RouteHints) Outcome[RouteResult] {
	profile := o.Classify(task, hints)
	return o.ExecuteProfile(ctx, profile, task, hints)
}

// ExecuteProfile executes an already-classified task.
func (o *Orchestrator) ExecuteProfile(ctx context.Context, profile TaskProfile, task string, hints RouteHints) Outcome[RouteResult] {
	decision, err := o.RouteProfile(ctx, profile, hints)
	if err != nil {
		return Failure[RouteResult](FaultFrom("orchestrator", err))
	}

	if decision.Metadata["strategy"] == "ensemble" {
		scored := o.candidates(profile, hints)
		limit := maxEnsembleCandidates
		if len(scored) < limit {
			limit = len(scored)
		}
		if limit >= 2 {
			return o.runEnsemble(ctx, decision, scored[:limit], task)
		}
	}

	return o.runSingle(ctx, decision, task)
}

// runSingle generates with one model.
func (o *Orchestrator) runSingle(ctx context.Context, decision RoutingDecision, task string) Outcome[RouteResult] {
	p, ok := o.providerFor(decision.SelectedModel)
	if !ok {
		return Failure[RouteResult](Faultf(KindRouting, "orchestrator",
			"no provider registered for model %q", decision.SelectedModel))
	}

	start := time.Now()
	out := GenerateText(ctx, p, task, o.temperature)
	o.scoreboard.Record(decision.SelectedModel, out.Ok(), time.Since(start))

	return Map(out, func(text string) RouteResult {
		return RouteResult{Decision: decision, Output: text}
	})
}

// candidateResult captures the outcome of one ensemble candidate.
type candidateResult struct {
	model   string
	content string
	elapsed time.Duration
	fault   *Fault
}

// runEnsemble invokes all candidates concurrently and selects the best
// surviving result. Individual candidate failure is tolerated; only when
// every candidate fails does the ensemble fail. All candidates are joined
// before a winner is picked, and the shared context is cancelled on return
// so nothing outlives the call.
func (o *Orchestrator) runEnsemble(ctx context.Context, decision RoutingDecision, scored []scoredModel, task string) Outcome[RouteResult] {
	ectx, cancel := context.WithCancel(ctx)
	defer cancel()

	capitan.Emit(ctx, EnsembleStarted,
		FieldCandidates.Field(len(scored)),
		FieldConfidence.Field(float32(decision.Confidence)),
	)

	results := make(chan candidateResult, len(scored))
	var wg sync.WaitGroup
	wg.Add(len(scored))

	for _, candidate := range scored {
		go func(cap ModelCapability) {
			defer wg.Done()

			p, ok := o.providerFor(cap.Name)
			if !ok {
				results <- candidateResult{
					model: cap.Name,
					fault: Faultf(KindRouting, "orchestrator", "no provider registered for model %q", cap.Name),
				}
				return
			}

			start := time.Now()
			out := GenerateText(ectx, p, task, o.temperature)
			elapsed := time.Since(start)
			o.scoreboard.Record(cap.Name, out.Ok(), elapsed)

			content, fault := out.Get()
			results <- candidateResult{model: cap.Name, content: content, elapsed: elapsed, fault: fault}

			var err error
			if fault != nil {
				err = fault
			}
			capitan.Emit(ctx, EnsembleCandidateFinished,
				FieldModel.Field(cap.Name),
				FieldToolElapsed.Field(elapsed),
				FieldError.Field(err),
			)
		}(candidate.cap)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var winner *candidateResult
	var faults []string
	for r := range results {
		if r.fault != nil {
			faults = append(faults, fmt.Sprintf("%s: %v", r.model, r.fault))
			continue
		}
		r := r
		if winner == nil || judgeOutput(r.content) > judgeOutput(winner.content) {
			winner = &r
		}
	}

	if winner == nil {
		return Failure[RouteResult](Faultf(KindRouting, "orchestrator",
			"all ensemble candidates failed: %s", strings.Join(faults, "; ")))
	}

	final := decision
	final.SelectedModel = winner.model
	final.Reason = fmt.Sprintf("%s; winner %q by output quality", decision.Reason, winner.model)

	return Success(RouteResult{Decision: final, Output: winner.content})
}

// judgeOutput is the secondary evaluation rule for ensemble results:
// longer, more structured output wins.
func judgeOutput(content string) int {
	return len(content) + 80*strings.Count(content, "\n\n")
}

func (o *Orchestrator) providerFor(model string) (Provider, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p, ok := o.providers[model]
	return p, ok
}

// highestCapability picks the model with the largest token window,
// preferring reasoning models on ties.
func highestCapability(scored []scoredModel) ModelCapability {
	best := scored[0].cap
	for _, s := range scored[1:] {
		if s.cap.MaxTokens > best.MaxTokens {
			best = s.cap
			continue
		}
		if s.cap.MaxTokens == best.MaxTokens && s.cap.Kind == ModelReasoning && best.Kind != ModelReasoning {
			best = s.cap
		}
	}
	return best
}

func candidateNames(scored []scoredModel, limit int) []string {
	if len(scored) < limit {
		limit = len(scored)
	}
	names := make([]string, limit)
	for i := 0; i < limit; i++ {
		names[i] = scored[i].cap.Name
	}
	return names
}
