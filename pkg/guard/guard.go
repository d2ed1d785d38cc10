// Package guard implements the Runtime Boundary Guard (component 12 of
// spec.md §4.10): the single entry point a workflow runner calls at every
// phase boundary. The guard owns the run's Provenance Envelope, runs the
// wired layers in a fixed order (convention → capability → ordering →
// propagation on entry; propagation on exit), and converts the
// propagation layer's blocking result into mode-dependent behavior:
// strict raises, permissive logs and continues, audit only observes. The
// schema-compatibility, budget, and lineage layers are not run by the
// guard; it only exposes them through SchemaCompat, Budget, and Lineage.
package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/neil-the-nowledgeable/contextcore/internal/errkit"
	"github.com/neil-the-nowledgeable/contextcore/pkg/boundary"
	"github.com/neil-the-nowledgeable/contextcore/pkg/budget"
	"github.com/neil-the-nowledgeable/contextcore/pkg/capability"
	"github.com/neil-the-nowledgeable/contextcore/pkg/contracts"
	"github.com/neil-the-nowledgeable/contextcore/pkg/envelope"
	"github.com/neil-the-nowledgeable/contextcore/pkg/lineage"
	"github.com/neil-the-nowledgeable/contextcore/pkg/ordering"
	"github.com/neil-the-nowledgeable/contextcore/pkg/otelemit"
	"github.com/neil-the-nowledgeable/contextcore/pkg/schemacompat"
	"github.com/neil-the-nowledgeable/contextcore/pkg/semconv"
)

// Mode selects how the guard reacts to a blocking boundary result
// (spec.md §4.10's mode table).
type Mode string

const (
	Strict     Mode = "strict"
	Permissive Mode = "permissive"
	Audit      Mode = "audit"
)

// PhaseExecutionRecord captures one phase's entry and exit results, the
// convention/capability/ordering violations observed at entry, timing, and
// any enrichment defaults applied.
type PhaseExecutionRecord struct {
	Phase                string
	EnteredAt, ExitedAt  string // RFC3339
	EntryResult          *boundary.Result
	ExitResult           *boundary.Result
	ConventionViolations []errkit.Envelope
	CapabilityStatus     capability.ChainStatus
	CapabilityViolations []errkit.Envelope
	OrderingViolations   []errkit.Envelope
	DefaultsApplied      []string
}

// WorkflowRunSummary accumulates every phase's execution record for one
// workflow run.
type WorkflowRunSummary struct {
	PipelineID string
	Phases     []PhaseExecutionRecord
	Passed     bool
}

// Option configures an optional validation layer on a Guard. A Guard with
// no options configured still runs the propagation (boundary) layer; the
// convention, capability, and ordering layers only run if supplied, and
// the schema-compatibility, budget, and lineage trackers are only held for
// the caller.
type Option func(*Guard)

// WithPolicyRegistry overrides the default (built-in-only) QualitySpec
// policy registry the boundary layer uses.
func WithPolicyRegistry(r *boundary.PolicyRegistry) Option {
	return func(g *Guard) { g.policies = r }
}

// WithConvention wires the Semantic-Convention layer.
func WithConvention(v *semconv.Validator) Option {
	return func(g *Guard) { g.convention = v }
}

// WithSchemaCompat wires the Schema-Compatibility layer; the guard does not
// run it and only exposes it through SchemaCompat.
func WithSchemaCompat(t *schemacompat.EvolutionTracker) Option {
	return func(g *Guard) { g.schemaCompat = t }
}

// WithCapability wires the Capability-Propagation layer, and the
// CapabilityChainSpec list the guard checks once both endpoints of a
// chain have a recorded snapshot.
func WithCapability(t *capability.Tracker, chains []contracts.CapabilityChainSpec) Option {
	return func(g *Guard) { g.capability = t; g.capabilityChains = chains }
}

// WithOrdering wires the Causal-Ordering layer and the dependency list to
// check at each phase's entry.
func WithOrdering(c *ordering.Checker, deps []contracts.CausalDependency) Option {
	return func(g *Guard) { g.ordering = c; g.orderingDeps = deps }
}

// WithBudget wires the Budget-Propagation layer.
func WithBudget(t *budget.Tracker) Option {
	return func(g *Guard) { g.budget = t }
}

// WithLineage wires the Data-Lineage layer; the guard does not verify
// chains on phase exit and only exposes it through Lineage.
func WithLineage(t *lineage.Tracker) Option {
	return func(g *Guard) { g.lineage = t }
}

// Guard is the runtime boundary guard for a single workflow run. Single-
// threaded cooperative use only: one Guard owns one envelope and one
// logical clock, per spec.md §5 — concurrent runs get their own Guard.
type Guard struct {
	mode Mode
	log  logr.Logger
	emit *otelemit.Emitter

	propagation contracts.ContextContract
	policies    *boundary.PolicyRegistry

	convention       *semconv.Validator
	schemaCompat     *schemacompat.EvolutionTracker
	capability       *capability.Tracker
	capabilityChains []contracts.CapabilityChainSpec
	ordering         *ordering.Checker
	orderingDeps     []contracts.CausalDependency
	budget           *budget.Tracker
	lineage          *lineage.Tracker

	env *envelope.Envelope

	mu        sync.Mutex
	cancelled bool
	open      map[string]*PhaseExecutionRecord
	summary   WorkflowRunSummary
}

// New builds a Guard for one workflow run, over the given propagation
// contract, in the given mode.
func New(mode Mode, log logr.Logger, emit *otelemit.Emitter, propagation contracts.ContextContract, opts ...Option) *Guard {
	g := &Guard{
		mode:        mode,
		log:         log,
		emit:        emit,
		propagation: propagation,
		policies:    boundary.NewPolicyRegistry(),
		env:         envelope.New(),
		open:        make(map[string]*PhaseExecutionRecord),
		summary:     WorkflowRunSummary{PipelineID: propagation.PipelineID, Passed: true},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Envelope returns the run's Provenance Envelope.
func (g *Guard) Envelope() *envelope.Envelope { return g.env }

// Cancel marks the run cancelled. The guard checks this flag at the start
// of every boundary call; it never interrupts a validator mid-check.
func (g *Guard) Cancel() {
	g.mu.Lock()
	g.cancelled = true
	g.mu.Unlock()
}

// Cancelled reports whether Cancel has been called.
func (g *Guard) Cancelled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancelled
}

// Summary returns a snapshot of the accumulated WorkflowRunSummary.
func (g *Guard) Summary() WorkflowRunSummary {
	g.mu.Lock()
	defer g.mu.Unlock()
	phases := make([]PhaseExecutionRecord, len(g.summary.Phases))
	copy(phases, g.summary.Phases)
	return WorkflowRunSummary{PipelineID: g.summary.PipelineID, Phases: phases, Passed: g.summary.Passed}
}

// EnterPhase runs convention → capability → ordering → propagation for
// phase, against data; schema compatibility is not checked here. Only a
// blocking propagation result triggers the mode's reaction; convention,
// capability, and ordering violations are recorded on the returned
// PhaseExecutionRecord and fail the run summary. In audit mode, data is never
// mutated (enrichment defaults are computed but discarded); in strict and
// permissive modes, defaults are applied in place.
func (g *Guard) EnterPhase(ctx context.Context, phase string, data map[string]any) (PhaseExecutionRecord, error) {
	if g.Cancelled() {
		return PhaseExecutionRecord{}, fmt.Errorf("run cancelled before phase %q entered", phase)
	}

	rec := &PhaseExecutionRecord{Phase: phase, EnteredAt: now()}

	if g.convention != nil {
		rec.ConventionViolations = append(rec.ConventionViolations, g.convention.AliasConflicts()...)
		for attrName := range data {
			if e := g.convention.CheckAttribute(data, attrName); e != nil {
				rec.ConventionViolations = append(rec.ConventionViolations, *e)
			}
		}
	}

	if g.capability != nil {
		g.env.SetCapabilitySnapshot(phase, g.capability.GrantedAt(phase))
		for _, chain := range g.capabilityChains {
			if chain.Destination != phase {
				continue
			}
			status, violations := g.capability.CheckChain(g.env, chain)
			rec.CapabilityStatus = status
			rec.CapabilityViolations = append(rec.CapabilityViolations, violations...)
		}
	}

	if g.ordering != nil {
		for _, dep := range g.orderingDeps {
			if dep.After.Phase != phase {
				continue
			}
			if e := g.ordering.CheckDependency(g.env, dep); e != nil {
				rec.OrderingViolations = append(rec.OrderingViolations, *e)
			}
		}
	}

	effective := data
	if g.mode == Audit {
		effective = cloneMap(data)
	}
	pc := g.propagation.Phases[phase]
	result := boundary.Validate(ctx, effective, g.env, g.emit, g.policies, "context_propagation", phase, boundary.Entry, pc)
	rec.EntryResult = &result
	rec.DefaultsApplied = result.DefaultsApplied

	g.env.RecordEvent(phase, "entry", now())

	g.mu.Lock()
	g.open[phase] = rec
	g.mu.Unlock()

	return *rec, g.reactToBlocking(phase, "entry", result.Envelopes)
}

// ExitPhase runs the propagation check for phase, finalizing and
// accumulating that phase's PhaseExecutionRecord into the run summary.
// Lineage chains are not verified here.
func (g *Guard) ExitPhase(ctx context.Context, phase string, data map[string]any) (PhaseExecutionRecord, error) {
	if g.Cancelled() {
		return PhaseExecutionRecord{}, fmt.Errorf("run cancelled before phase %q exited", phase)
	}

	g.mu.Lock()
	rec, ok := g.open[phase]
	g.mu.Unlock()
	if !ok {
		rec = &PhaseExecutionRecord{Phase: phase, EnteredAt: now()}
	}

	effective := data
	if g.mode == Audit {
		effective = cloneMap(data)
	}
	pc := g.propagation.Phases[phase]
	result := boundary.Validate(ctx, effective, g.env, g.emit, g.policies, "context_propagation", phase, boundary.Exit, pc)
	rec.ExitResult = &result
	rec.DefaultsApplied = append(rec.DefaultsApplied, result.DefaultsApplied...)
	rec.ExitedAt = now()

	g.env.RecordEvent(phase, "exit", now())

	g.mu.Lock()
	delete(g.open, phase)
	g.summary.Phases = append(g.summary.Phases, *rec)
	if blockingPresent(result.Envelopes) || blockingPresent(rec.ConventionViolations) ||
		blockingPresent(rec.CapabilityViolations) || blockingPresent(rec.OrderingViolations) {
		g.summary.Passed = false
	}
	g.mu.Unlock()

	return *rec, g.reactToBlocking(phase, "exit", result.Envelopes)
}

// Budget exposes the wired budget tracker, if any, for the caller to
// record consumption explicitly (budget amounts are workload-specific and
// not inferable from the data map alone).
func (g *Guard) Budget() *budget.Tracker { return g.budget }

// SchemaCompat exposes the wired schema-compatibility tracker, if any.
func (g *Guard) SchemaCompat() *schemacompat.EvolutionTracker { return g.schemaCompat }

// Lineage exposes the wired lineage tracker, if any, for the caller to
// record stages explicitly (a stage's before/after values are only known
// to the caller performing the transformation).
func (g *Guard) Lineage() *lineage.Tracker { return g.lineage }

func (g *Guard) reactToBlocking(phase, direction string, violations []errkit.Envelope) error {
	blocking := blockingEnvelopes(violations)
	if len(blocking) == 0 {
		return nil
	}
	switch g.mode {
	case Strict:
		return errkit.NewBoundaryViolation(phase, direction, blocking)
	case Permissive:
		g.log.Info("boundary violation", "phase", phase, "direction", direction, "count", len(blocking))
		return nil
	default: // Audit
		g.log.V(1).Info("boundary violation observed (audit mode, not enforced)", "phase", phase, "direction", direction, "count", len(blocking))
		return nil
	}
}

func blockingEnvelopes(envelopes []errkit.Envelope) []errkit.Envelope {
	var out []errkit.Envelope
	for _, e := range envelopes {
		if e.Severity == errkit.Blocking {
			out = append(out, e)
		}
	}
	return out
}

func blockingPresent(envelopes []errkit.Envelope) bool {
	return len(blockingEnvelopes(envelopes)) > 0
}

func cloneMap(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }
