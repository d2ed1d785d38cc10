// Package envelope implements the Provenance Envelope: the per-run sink for
// every cross-layer metadata record a workflow run accumulates (field
// provenance, the logical clock, the event log, capability snapshots,
// budget consumption, and lineage records).
//
// Per spec.md §9's design note, the envelope is a sibling structure owned by
// the runtime guard, not a hidden key inside the caller's context map. The
// sentinel name from the source system is kept only as a documented
// historical reference for callers migrating an old on-context envelope.
package envelope

import (
	"sync"

	"github.com/neil-the-nowledgeable/contextcore/pkg/clock"
)

// LegacyProvenanceKey documents the sentinel key name used by the source
// system to stash the envelope inside the context map itself. This runtime
// never reads or writes it; it is kept only so operators migrating old
// dumps know what to strip.
const LegacyProvenanceKey = "__propagation__"

// FieldStatus is the provenance status of a single context field.
type FieldStatus string

const (
	StatusPropagated FieldStatus = "propagated"
	StatusDefaulted  FieldStatus = "defaulted"
	StatusPartial    FieldStatus = "partial"
	StatusFailed     FieldStatus = "failed"
)

// FieldProvenance records where a field's current value came from.
type FieldProvenance struct {
	OriginPhase     string
	LogicalTS       int64
	Status          FieldStatus
	Transformations []string
}

// Event is a single entry in the envelope's event log.
type Event struct {
	Phase      string
	Name       string
	LogicalTS  int64
	WallClock  string // RFC3339
	CausalDeps []string
}

// Envelope is the single sink for all cross-layer metadata for one workflow
// run. It is created by the runtime guard on first use and is not safe for
// concurrent mutation from more than one goroutine — each run owns one.
type Envelope struct {
	mu sync.Mutex

	Clock *clock.LamportClock

	fieldProvenance map[string]FieldProvenance
	eventLog        []Event
	capabilities    map[string]map[string]struct{} // phase -> capability ids held
	budgetConsumed  map[budgetKey]float64
	lineage         map[string][]TransformationRecord
}

type budgetKey struct {
	BudgetID string
	Phase    string
}

// TransformationRecord is a single recorded lineage stage for a field.
type TransformationRecord struct {
	Phase      string
	Op         string
	InputHash  string
	OutputHash string
	WallClock  string
	LogicalTS  int64
}

// New creates an empty envelope with a fresh Lamport clock.
func New() *Envelope {
	return &Envelope{
		Clock:           clock.New(),
		fieldProvenance: make(map[string]FieldProvenance),
		capabilities:    make(map[string]map[string]struct{}),
		budgetConsumed:  make(map[budgetKey]float64),
		lineage:         make(map[string][]TransformationRecord),
	}
}

// SetFieldProvenance records (or overwrites) a field's provenance.
func (e *Envelope) SetFieldProvenance(field string, p FieldProvenance) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fieldProvenance[field] = p
}

// FieldProvenance returns a field's provenance and whether it is known.
func (e *Envelope) FieldProvenance(field string) (FieldProvenance, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.fieldProvenance[field]
	return p, ok
}

// AllFieldProvenance returns a snapshot copy of every recorded field's
// provenance, keyed by field name.
func (e *Envelope) AllFieldProvenance() map[string]FieldProvenance {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]FieldProvenance, len(e.fieldProvenance))
	for k, v := range e.fieldProvenance {
		out[k] = v
	}
	return out
}

// RecordEvent appends an event to the log, ticking the clock first so every
// logged event gets a strictly increasing logical timestamp.
func (e *Envelope) RecordEvent(phase, name string, wallClock string, causalDeps ...string) Event {
	ts := e.Clock.Tick()
	ev := Event{Phase: phase, Name: name, LogicalTS: ts, WallClock: wallClock, CausalDeps: causalDeps}
	e.mu.Lock()
	e.eventLog = append(e.eventLog, ev)
	e.mu.Unlock()
	return ev
}

// EventLog returns a snapshot copy of the recorded events in order.
func (e *Envelope) EventLog() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Event, len(e.eventLog))
	copy(out, e.eventLog)
	return out
}

// SetCapabilitySnapshot replaces the capability set held at a phase.
func (e *Envelope) SetCapabilitySnapshot(phase string, ids []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	e.capabilities[phase] = set
}

// CapabilitySnapshot returns the capability ids held at a phase and whether
// that phase ever had a snapshot recorded at all. The second return
// distinguishes "phase never visited" (ok=false) from "phase visited with
// zero capabilities granted" (ok=true, empty slice) — callers checking
// capability chains need that distinction to tell a missing phase from an
// attenuated-to-nothing one.
func (e *Envelope) CapabilitySnapshot(phase string) ([]string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	set, ok := e.capabilities[phase]
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out, true
}

// ConsumeBudget accumulates consumption for a (budgetID, phase) pair and
// returns the new running total. Consumption is monotonic non-decreasing by
// construction: amounts are always added, never replaced.
func (e *Envelope) ConsumeBudget(budgetID, phase string, amount float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := budgetKey{BudgetID: budgetID, Phase: phase}
	e.budgetConsumed[key] += amount
	return e.budgetConsumed[key]
}

// BudgetConsumed returns the running total for a (budgetID, phase) pair.
func (e *Envelope) BudgetConsumed(budgetID, phase string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.budgetConsumed[budgetKey{BudgetID: budgetID, Phase: phase}]
}

// TotalBudgetConsumed sums consumption for budgetID across every phase that
// has consumed against it so far, for callers checking a budget's overall
// total rather than one phase's slice of it.
func (e *Envelope) TotalBudgetConsumed(budgetID string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var sum float64
	for key, amount := range e.budgetConsumed {
		if key.BudgetID == budgetID {
			sum += amount
		}
	}
	return sum
}

// RecordLineage appends a transformation record for a field, assigning it a
// fresh logical timestamp.
func (e *Envelope) RecordLineage(field string, rec TransformationRecord) TransformationRecord {
	rec.LogicalTS = e.Clock.Tick()
	e.mu.Lock()
	e.lineage[field] = append(e.lineage[field], rec)
	e.mu.Unlock()
	return rec
}

// LineageFor returns the recorded transformation stages for a field, in
// the order they were recorded.
func (e *Envelope) LineageFor(field string) []TransformationRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]TransformationRecord, len(e.lineage[field]))
	copy(out, e.lineage[field])
	return out
}
