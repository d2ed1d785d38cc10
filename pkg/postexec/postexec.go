// Package postexec implements the Post-Execution Validator (component 13
// of spec.md §4.11): after a run completes, re-checks each declared
// propagation chain against the envelope's final field state and
// cross-references it against what was recorded during the run, flagging
// two specific discrepancies the boundary guard cannot see in the moment:
// late corruption (a field that some phase's boundary defaulted ends up
// with final provenance propagated; whether any phase recorded producing
// it is not checked) and late healing (a chain ends intact despite a
// blocking violation somewhere mid-run).
package postexec

import (
	"context"
	"strings"

	"github.com/neil-the-nowledgeable/contextcore/internal/errkit"
	"github.com/neil-the-nowledgeable/contextcore/pkg/boundary"
	"github.com/neil-the-nowledgeable/contextcore/pkg/contracts"
	"github.com/neil-the-nowledgeable/contextcore/pkg/envelope"
	"github.com/neil-the-nowledgeable/contextcore/pkg/guard"
	"github.com/neil-the-nowledgeable/contextcore/pkg/otelemit"
)

// DiscrepancyKind classifies a RuntimeDiscrepancy.
type DiscrepancyKind string

const (
	LateCorruption DiscrepancyKind = "late_corruption"
	LateHealing    DiscrepancyKind = "late_healing"
)

// RuntimeDiscrepancy is one reconciliation finding for a propagation chain.
type RuntimeDiscrepancy struct {
	ChainID string
	Field   string
	Kind    DiscrepancyKind
	Detail  string
}

// Validator reconciles a run's final envelope state against its recorded
// phase execution history.
type Validator struct {
	contractType string
}

// NewValidator builds a post-execution Validator.
func NewValidator() *Validator {
	return &Validator{contractType: "context_propagation"}
}

// Reconcile re-runs every declared propagation chain against env's final
// field provenance and phases' recorded execution history. emit may be nil
// (no span events are emitted in that case).
func (v *Validator) Reconcile(ctx context.Context, emit *otelemit.Emitter, env *envelope.Envelope, chains []contracts.PropagationChainSpec, phases []guard.PhaseExecutionRecord) []RuntimeDiscrepancy {
	var discrepancies []RuntimeDiscrepancy

	for _, chain := range chains {
		field := chain.Destination.Field
		prov, ok := env.FieldProvenance(field)
		if !ok {
			continue
		}

		if prov.Status == envelope.StatusPropagated {
			if wasDefaultedSomewhere(phases, field) {
				d := RuntimeDiscrepancy{
					ChainID: chain.ChainID, Field: field, Kind: LateCorruption,
					Detail: "field was defaulted at a boundary but its final provenance reports propagated",
				}
				discrepancies = append(discrepancies, d)
				v.emitDiscrepancy(ctx, emit, d)
			}
			if hadBlockingViolation(phases, field) {
				d := RuntimeDiscrepancy{
					ChainID: chain.ChainID, Field: field, Kind: LateHealing,
					Detail: "chain ended intact despite a recorded blocking violation for this field mid-run",
				}
				discrepancies = append(discrepancies, d)
				v.emitDiscrepancy(ctx, emit, d)
			}
		}
	}

	if emit != nil {
		emit.Emit(ctx, otelemit.ContextPostexecReport, otelemit.Int("postexec.discrepancy_count", len(discrepancies)))
	}

	return discrepancies
}

func (v *Validator) emitDiscrepancy(ctx context.Context, emit *otelemit.Emitter, d RuntimeDiscrepancy) {
	if emit == nil {
		return
	}
	emit.Emit(ctx, otelemit.ContextPostexecDiscrepancy,
		otelemit.String("postexec.chain_id", d.ChainID),
		otelemit.String("postexec.field", d.Field),
		otelemit.String("postexec.kind", string(d.Kind)))
}

func wasDefaultedSomewhere(phases []guard.PhaseExecutionRecord, field string) bool {
	for _, rec := range phases {
		for _, f := range rec.DefaultsApplied {
			if f == field {
				return true
			}
		}
	}
	return false
}

func hadBlockingViolation(phases []guard.PhaseExecutionRecord, field string) bool {
	for _, rec := range phases {
		if resultMentionsBlockingField(rec.EntryResult, field) || resultMentionsBlockingField(rec.ExitResult, field) {
			return true
		}
	}
	return false
}

func resultMentionsBlockingField(result *boundary.Result, field string) bool {
	if result == nil {
		return false
	}
	for _, e := range result.Envelopes {
		if e.Severity == errkit.Blocking && strings.Contains(e.Message, "\""+field+"\"") {
			return true
		}
	}
	return false
}
