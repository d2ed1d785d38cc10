// Package budget implements the Budget-Propagation layer (component 9,
// Layer 6 of spec.md §3/§4.7): tracking cumulative consumption of a
// resource (latency, cost, tokens, error rate) across phases, classifying
// budget health, and tripping a circuit breaker once a budget has been
// exhausted repeatedly.
package budget

import (
	"fmt"
	"sync"

	"github.com/sony/gobreaker"

	"github.com/neil-the-nowledgeable/contextcore/internal/errkit"
	"github.com/neil-the-nowledgeable/contextcore/pkg/contracts"
	"github.com/neil-the-nowledgeable/contextcore/pkg/envelope"
)

// Health classifies a budget's current state, mirroring the otelemit
// budget.check.* event names.
type Health string

const (
	WithinBudget  Health = "within_budget"
	AtRisk        Health = "at_risk"
	Exhausted     Health = "exhausted"
	OverAllocated Health = "over_allocated"
)

// atRiskRatio is the fraction of total budget consumed at which health
// downgrades from within_budget to at_risk (spec.md §4.7).
const atRiskRatio = 0.8

// Tracker checks consumption against a loaded BudgetPropagationSpec and
// trips a per-budget circuit breaker once a budget has been exhausted
// across consecutive checks, so a persistently over-budget phase fails
// fast instead of re-evaluating the same exhausted budget every call.
type Tracker struct {
	contractType string

	mu       sync.Mutex
	budgets  map[string]contracts.BudgetSpec
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewTracker indexes a BudgetPropagationSpec's budgets and returns any
// over-allocation violations detected at load time (per-phase allocations
// summing to more than the budget's total), alongside the Tracker.
func NewTracker(spec contracts.BudgetPropagationSpec) (*Tracker, []errkit.Envelope) {
	t := &Tracker{
		contractType: "budget_propagation",
		budgets:      make(map[string]contracts.BudgetSpec, len(spec.Budgets)),
		breakers:     make(map[string]*gobreaker.CircuitBreaker, len(spec.Budgets)),
	}

	var violations []errkit.Envelope
	for _, b := range spec.Budgets {
		t.budgets[b.ID] = b
		t.breakers[b.ID] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: b.ID,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		})
		if b.SumAllocated() > b.Total {
			violations = append(violations, errkit.New(t.contractType, b.ID, errkit.OverAllocated, errkit.Blocking,
				fmt.Sprintf("budget %q allocates %.2f across phases but declares a total of %.2f", b.ID, b.SumAllocated(), b.Total)))
		}
	}
	return t, violations
}

// Consume records amount against budgetID at phase, returning the
// resulting health classification and, when the health is at_risk,
// exhausted, or over_allocated, a violation envelope at the appropriate
// severity. Over-allocation is re-checked here (in addition to load time,
// in NewTracker) so a caller that only inspects Consume results still sees
// it; an over-allocated budget records no consumption.
func (t *Tracker) Consume(env *envelope.Envelope, budgetID, phase string, amount float64) (Health, *errkit.Envelope, error) {
	t.mu.Lock()
	spec, known := t.budgets[budgetID]
	breaker := t.breakers[budgetID]
	t.mu.Unlock()
	if !known {
		return "", nil, fmt.Errorf("budget %q is not declared in this contract", budgetID)
	}

	if spec.SumAllocated() > spec.Total {
		e := errkit.New(t.contractType, budgetID, errkit.OverAllocated, errkit.Blocking,
			fmt.Sprintf("budget %q allocates %.2f across phases but declares a total of %.2f", budgetID, spec.SumAllocated(), spec.Total))
		return OverAllocated, &e, nil
	}

	env.ConsumeBudget(budgetID, phase, amount)
	total := env.TotalBudgetConsumed(budgetID)

	_, breakerErr := breaker.Execute(func() (any, error) {
		if total >= spec.Total {
			return nil, fmt.Errorf("budget %q exhausted", budgetID)
		}
		return nil, nil
	})

	ratio := 0.0
	if spec.Total > 0 {
		ratio = total / spec.Total
	}

	switch {
	case total >= spec.Total:
		e := errkit.New(t.contractType, budgetID, errkit.Exhausted, errkit.Blocking,
			fmt.Sprintf("budget %q exhausted: consumed %.2f of %.2f at phase %q", budgetID, total, spec.Total, phase))
		return Exhausted, &e, breakerErr
	case ratio >= atRiskRatio:
		e := errkit.New(t.contractType, budgetID, errkit.Exhausted, errkit.Warning,
			fmt.Sprintf("budget %q at risk: consumed %.2f of %.2f (%.0f%%) at phase %q", budgetID, total, spec.Total, ratio*100, phase))
		return AtRisk, &e, nil
	default:
		return WithinBudget, nil, nil
	}
}

// BreakerState reports the gobreaker state ("closed", "half-open", "open")
// for a budget's circuit breaker.
func (t *Tracker) BreakerState(budgetID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.breakers[budgetID]
	if !ok {
		return "", false
	}
	return b.State().String(), true
}
