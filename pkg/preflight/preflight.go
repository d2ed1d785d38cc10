// Package preflight implements the Preflight Checker (component 11,
// Layer 3 of spec.md §4.9): a static, pre-run analysis of a context
// propagation contract's phase graph and field readiness, run once before
// any phase executes.
package preflight

import (
	"fmt"

	"github.com/neil-the-nowledgeable/contextcore/internal/errkit"
	"github.com/neil-the-nowledgeable/contextcore/pkg/contracts"
)

// FieldReadinessDetail reports a required entry field that no phase exit,
// enrichment default, or seed value provides.
type FieldReadinessDetail struct {
	Field  string
	Phase  string
	Reason string
}

// GraphResult is the outcome of a static phase-graph check.
type GraphResult struct {
	Order          []string // topological order, valid only when Cycle is false
	Cycle          bool
	CycleViolation *errkit.Envelope
	Unreachable    []string
}

// Checker runs the static phase-graph and field-readiness checks.
type Checker struct {
	contractType string
}

// NewChecker builds a preflight Checker.
func NewChecker() *Checker {
	return &Checker{contractType: "context_propagation"}
}

// CheckGraph builds the declared phase graph — edges implied by
// propagation_chains plus any explicit PhaseOrder sequence — and detects
// cycles and phases unreachable from any phase that has no declared
// predecessor but at least one successor. A phase with no edges at all is
// unreachable whenever the graph has edges elsewhere.
func (c *Checker) CheckGraph(contract contracts.ContextContract) GraphResult {
	nodes := make(map[string]struct{})
	edges := make(map[string]map[string]struct{}) // from -> set of to
	inDegree := make(map[string]int)

	addNode := func(name string) {
		if _, ok := nodes[name]; !ok {
			nodes[name] = struct{}{}
			edges[name] = make(map[string]struct{})
			inDegree[name] = 0
		}
	}
	addEdge := func(from, to string) {
		addNode(from)
		addNode(to)
		if _, exists := edges[from][to]; !exists {
			edges[from][to] = struct{}{}
			inDegree[to]++
		}
	}

	for name := range contract.Phases {
		addNode(name)
	}
	for _, chain := range contract.PropagationChains {
		addEdge(chain.Source.Phase, chain.Destination.Phase)
	}
	for i := 0; i+1 < len(contract.PhaseOrder); i++ {
		addEdge(contract.PhaseOrder[i], contract.PhaseOrder[i+1])
	}

	order, starts := kahnSort(nodes, edges, inDegree)
	if len(order) != len(nodes) {
		e := errkit.New(c.contractType, contract.PipelineID, errkit.PhaseGraphCycle, errkit.Blocking,
			"the declared phase graph contains a cycle")
		return GraphResult{Cycle: true, CycleViolation: &e}
	}

	// A start phase with no successors only seeds the sweep when no start
	// phase has any; otherwise it is disconnected and reported unreachable.
	reachable := make(map[string]struct{})
	var stack []string
	for _, s := range starts {
		if len(edges[s]) > 0 {
			stack = append(stack, s)
		}
	}
	if len(stack) == 0 {
		stack = append(stack, starts...)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := reachable[n]; seen {
			continue
		}
		reachable[n] = struct{}{}
		for to := range edges[n] {
			stack = append(stack, to)
		}
	}

	var unreachable []string
	for name := range nodes {
		if _, ok := reachable[name]; !ok {
			unreachable = append(unreachable, name)
		}
	}

	return GraphResult{Order: order, Unreachable: unreachable}
}

// kahnSort runs Kahn's algorithm, returning a topological order (shorter
// than len(nodes) iff a cycle exists) and the zero-in-degree start nodes.
func kahnSort(nodes map[string]struct{}, edges map[string]map[string]struct{}, inDegree map[string]int) ([]string, []string) {
	remaining := make(map[string]int, len(inDegree))
	var queue, starts []string
	for n, d := range inDegree {
		remaining[n] = d
		if d == 0 {
			queue = append(queue, n)
			starts = append(starts, n)
		}
	}

	var order []string
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for to := range edges[n] {
			remaining[to]--
			if remaining[to] == 0 {
				queue = append(queue, to)
			}
		}
	}
	return order, starts
}

// CheckFieldReadiness checks every phase's entry.required fields against
// what any phase's exit.required declares, any phase's entry enrichment
// default, or a caller-supplied seed field provides. A field satisfied by
// none of these is reported as an orphan requirement. Phase order is not
// considered: a field provided only by a later phase, or by the same
// phase, counts as provided.
func (c *Checker) CheckFieldReadiness(contract contracts.ContextContract, seedFields []string) []FieldReadinessDetail {
	seed := toSet(seedFields)

	providedSomewhere := make(map[string]struct{})
	for _, pc := range contract.Phases {
		for _, f := range pc.Exit.Required {
			providedSomewhere[f.Name] = struct{}{}
		}
		for _, f := range pc.Entry.Enrichment {
			if f.HasDefault() {
				providedSomewhere[f.Name] = struct{}{}
			}
		}
	}

	var details []FieldReadinessDetail
	for phaseName, pc := range contract.Phases {
		for _, f := range pc.Entry.Required {
			if _, ok := seed[f.Name]; ok {
				continue
			}
			if _, ok := providedSomewhere[f.Name]; ok {
				continue
			}
			details = append(details, FieldReadinessDetail{
				Field:  f.Name,
				Phase:  phaseName,
				Reason: fmt.Sprintf("field %q is required at phase %q but no phase exit, enrichment default, or seed value provides it", f.Name, phaseName),
			})
		}
	}
	return details
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
