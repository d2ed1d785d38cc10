// Package ordering implements the Causal-Ordering layer (component 8,
// Layer 4 of spec.md §3/§4.6): checking that declared causal dependencies
// between (phase, event) pairs hold against the envelope's recorded Lamport
// timestamps.
package ordering

import (
	"fmt"

	"github.com/neil-the-nowledgeable/contextcore/internal/errkit"
	"github.com/neil-the-nowledgeable/contextcore/pkg/contracts"
	"github.com/neil-the-nowledgeable/contextcore/pkg/envelope"
)

// Checker evaluates CausalDependency constraints against an envelope's
// event log.
type Checker struct {
	contractType string
}

// NewChecker builds a Checker. Constraints are stateless against the event
// log, so one Checker serves every dependency in a loaded
// OrderingConstraintSpec.
func NewChecker() *Checker {
	return &Checker{contractType: "causal_ordering"}
}

// CheckDependency verifies dep.Before happened strictly before dep.After
// in env's event log, by logical timestamp. A dependency naming an event
// that was never recorded cannot be evaluated and is reported as
// FieldMissing at advisory severity rather than silently passing — an
// unevaluated constraint is not the same as a satisfied one.
func (c *Checker) CheckDependency(env *envelope.Envelope, dep contracts.CausalDependency) *errkit.Envelope {
	events := env.EventLog()

	beforeTS, beforeOK := earliestTimestamp(events, dep.Before)
	afterTS, afterOK := earliestTimestamp(events, dep.After)

	if !beforeOK || !afterOK {
		missing := dep.Before
		if beforeOK {
			missing = dep.After
		}
		e := errkit.New(c.contractType, endpointLabel(missing), errkit.FieldMissing, errkit.Advisory,
			fmt.Sprintf("event %q at phase %q was never recorded; causal dependency cannot be evaluated", missing.Event, missing.Phase))
		return &e
	}

	if beforeTS >= afterTS {
		e := errkit.New(c.contractType, endpointLabel(dep.After), errkit.OrderingViolation, dep.Severity,
			fmt.Sprintf("expected %q at %q (ts=%d) before %q at %q (ts=%d)",
				dep.Before.Event, dep.Before.Phase, beforeTS, dep.After.Event, dep.After.Phase, afterTS))
		return &e
	}

	return nil
}

func earliestTimestamp(events []envelope.Event, endpoint contracts.CausalEndpoint) (int64, bool) {
	for _, ev := range events {
		if ev.Phase == endpoint.Phase && ev.Name == endpoint.Event {
			return ev.LogicalTS, true
		}
	}
	return 0, false
}

func endpointLabel(endpoint contracts.CausalEndpoint) string {
	return endpoint.Phase + "/" + endpoint.Event
}
