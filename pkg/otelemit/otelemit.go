// Package otelemit collapses the per-layer OTel span-event helpers the
// source system scattered across seven packages into one namespaced
// emitter. The boundary validator, post-execution validator, alert
// evaluator, and regression gate emit through it; the capability,
// ordering, budget, lineage, semantic-convention, schema-compatibility,
// and preflight packages emit no events. Event names follow spec.md §6.2.
package otelemit

import (
	"context"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Event is a namespaced span event name, one constant per spec.md §6.2 entry.
type Event string

const (
	ConventionValidationComplete Event = "convention.validation.complete"

	PropagationBoundaryResult  Event = "propagation.boundary.result"
	PropagationChainResult     Event = "propagation.chain.result"
	PropagationSummary         Event = "propagation.summary"

	SchemaCompatibilityCheck    Event = "schema.compatibility.check"
	SchemaCompatibilityDrift    Event = "schema.compatibility.drift"
	SchemaCompatibilityBreaking Event = "schema.compatibility.breaking"

	CapabilityBoundaryEntry Event = "capability.boundary.entry"
	CapabilityBoundaryExit  Event = "capability.boundary.exit"
	CapabilityChainIntact             Event = "capability.chain.intact"
	CapabilityChainAttenuated         Event = "capability.chain.attenuated"
	CapabilityChainEscalationBlocked  Event = "capability.chain.escalation_blocked"
	CapabilityChainBroken             Event = "capability.chain.broken"

	CausalOrderingComplete  Event = "causal.ordering.complete"
	CausalOrderingViolation Event = "causal.ordering.violation"

	ContextPreflightResult    Event = "context.preflight.result"
	ContextPreflightViolation Event = "context.preflight.violation"

	ContextPostexecReport       Event = "context.postexec.report"
	ContextPostexecDiscrepancy  Event = "context.postexec.discrepancy"

	ContextObservabilityHealth          Event = "context.observability.health"
	ContextObservabilityAlert           Event = "context.observability.alert"
	ContextObservabilityAlertEvaluation Event = "context.observability.alert_evaluation"

	ContextRegressionDrift     Event = "context.regression.drift"
	ContextRegressionGate      Event = "context.regression.gate"
	ContextRegressionGateCheck Event = "context.regression.gate_check"

	LineageStageRecorded      Event = "lineage.stage.recorded"
	LineageChainVerified      Event = "lineage.chain.verified"
	LineageChainMutationDetected Event = "lineage.chain.mutation_detected"
	LineageChainBroken        Event = "lineage.chain.broken"
	LineageChainIncomplete    Event = "lineage.chain.incomplete"
	LineageAuditComplete      Event = "lineage.audit.complete"

	BudgetCheckWithinBudget   Event = "budget.check.within_budget"
	BudgetCheckAtRisk         Event = "budget.check.at_risk"
	BudgetCheckExhausted      Event = "budget.check.exhausted"
	BudgetCheckOverAllocated  Event = "budget.check.over_allocated"
	BudgetSummary             Event = "budget.summary"
)

// Attr is a scalar attribute value; OTel span attributes only carry
// scalars, so the emitter builds string/int/float64/bool values via
// String, Int, Float, and Bool.
type Attr = attribute.KeyValue

// Emitter emits namespaced span events onto the caller's current span, and
// falls back to a structured log line when no span is recording — "absence
// of an OTel provider must be a no-op" per spec.md §5, with the log acting
// as the best-effort side channel rather than true silence.
type Emitter struct {
	log logr.Logger
}

// New builds an Emitter. log may be logr.Discard() for a silent fallback.
func New(log logr.Logger) *Emitter {
	return &Emitter{log: log}
}

// Emit adds a namespaced event to the span recording on ctx, if any. Keys in
// attrs should already be namespaced as "<layer>.<field>" per spec.md §6.2.
func (m *Emitter) Emit(ctx context.Context, event Event, attrs ...Attr) {
	span := trace.SpanFromContext(ctx)
	if span != nil && span.IsRecording() {
		span.AddEvent(string(event), trace.WithAttributes(attrs...))
		return
	}
	m.log.V(1).Info(string(event), attrsToKV(attrs)...)
}

func attrsToKV(attrs []Attr) []any {
	kv := make([]any, 0, len(attrs)*2)
	for _, a := range attrs {
		kv = append(kv, string(a.Key), a.Value.Emit())
	}
	return kv
}

// String builds a string-valued attribute with a namespaced key.
func String(key, value string) Attr { return attribute.String(key, value) }

// Int builds an int-valued attribute with a namespaced key.
func Int(key string, value int) Attr { return attribute.Int(key, value) }

// Float builds a float64-valued attribute with a namespaced key.
func Float(key string, value float64) Attr { return attribute.Float64(key, value) }

// Bool builds a bool-valued attribute with a namespaced key.
func Bool(key string, value bool) Attr { return attribute.Bool(key, value) }
