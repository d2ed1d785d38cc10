// Package capability implements the Capability Propagation layer
// (component 7, Layer 5 of spec.md §3/§4.5): enforcing the attenuation
// invariant across a phase chain (capabilities may only narrow unless
// escalated through a declared authority) and classifying each chain's
// resulting status.
package capability

import (
	"fmt"

	"github.com/neil-the-nowledgeable/contextcore/internal/errkit"
	"github.com/neil-the-nowledgeable/contextcore/pkg/contracts"
	"github.com/neil-the-nowledgeable/contextcore/pkg/envelope"
)

// ChainStatus classifies the outcome of a single capability chain check,
// mirroring the otelemit capability.chain.* event names.
type ChainStatus string

const (
	ChainIntact            ChainStatus = "intact"
	ChainAttenuated        ChainStatus = "attenuated"
	ChainEscalationBlocked ChainStatus = "escalation_blocked"
	ChainBroken            ChainStatus = "broken"
)

// Tracker resolves capability definitions and escalation authorities from a
// loaded CapabilityContract.
type Tracker struct {
	contractType string
	attenuable   map[string]bool
	escalateVia  map[string]string // capability id -> authority that may grant it
	grants       map[string][]string // phase -> granted capability ids
}

// NewTracker indexes a CapabilityContract's definitions, attenuations, and
// per-phase grants.
func NewTracker(contract contracts.CapabilityContract) *Tracker {
	t := &Tracker{
		contractType: "capability_propagation",
		attenuable:   make(map[string]bool, len(contract.Capabilities)),
		escalateVia:  make(map[string]string, len(contract.Attenuations)),
		grants:       make(map[string][]string, len(contract.Phases)),
	}
	for _, c := range contract.Capabilities {
		t.attenuable[c.ID] = c.Attenuable
	}
	for _, a := range contract.Attenuations {
		t.escalateVia[a.CapabilityID] = a.CanEscalateVia
	}
	for _, p := range contract.Phases {
		t.grants[p.Phase] = p.Granted
	}
	return t
}

// GrantedAt returns the capability ids a phase is declared to grant, for
// the caller to stamp onto the envelope via SetCapabilitySnapshot.
func (t *Tracker) GrantedAt(phase string) []string {
	return t.grants[phase]
}

// CheckChain compares the capability snapshots env recorded at the chain's
// source and destination phases and classifies the result. Capabilities
// present at the source but absent at the destination are attenuation
// (allowed only when the capability is declared attenuable); capabilities
// present at the destination but absent at the source are escalation
// (allowed only when a can_escalate_via authority is declared for them).
func (t *Tracker) CheckChain(env *envelope.Envelope, chain contracts.CapabilityChainSpec) (ChainStatus, []errkit.Envelope) {
	sourceIDs, sourceSeen := env.CapabilitySnapshot(chain.Source)
	destIDs, destSeen := env.CapabilitySnapshot(chain.Destination)

	if !sourceSeen || !destSeen {
		return ChainBroken, []errkit.Envelope{errkit.New(t.contractType, chain.ChainID, errkit.Escalation, errkit.Blocking,
			fmt.Sprintf("capability chain %q is missing a snapshot at %q or %q", chain.ChainID, chain.Source, chain.Destination))}
	}

	source := toSet(sourceIDs)
	dest := toSet(destIDs)

	var violations []errkit.Envelope
	broken := false
	attenuated := false
	escalationBlocked := false

	for id := range source {
		if _, ok := dest[id]; ok {
			continue
		}
		if t.attenuable[id] {
			attenuated = true
			continue
		}
		broken = true
		violations = append(violations, errkit.New(t.contractType, chain.ChainID, errkit.Escalation, errkit.Blocking,
			fmt.Sprintf("capability %q was dropped between %q and %q without being declared attenuable", id, chain.Source, chain.Destination)))
	}

	for id := range dest {
		if _, ok := source[id]; ok {
			continue
		}
		if authority, ok := t.escalateVia[id]; ok && authority != "" {
			attenuated = true // an escalation is still a narrowing-chain deviation worth surfacing, just an allowed one
			continue
		}
		escalationBlocked = true
		violations = append(violations, errkit.New(t.contractType, chain.ChainID, errkit.Escalation, errkit.Blocking,
			fmt.Sprintf("capability %q appeared at %q without a declared escalation authority", id, chain.Destination)))
	}

	switch {
	case broken:
		return ChainBroken, violations
	case escalationBlocked:
		return ChainEscalationBlocked, violations
	case attenuated:
		return ChainAttenuated, violations
	default:
		return ChainIntact, nil
	}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

