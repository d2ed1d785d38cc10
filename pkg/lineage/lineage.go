// Package lineage implements the Data-Lineage layer (component 10,
// Layer 7 of spec.md §3/§4.8): recording each transformation stage a field
// passes through as a content-hash-linked chain, and auditing the
// recorded chain against what a contract declares it should look like.
package lineage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/neil-the-nowledgeable/contextcore/internal/errkit"
	"github.com/neil-the-nowledgeable/contextcore/pkg/contracts"
	"github.com/neil-the-nowledgeable/contextcore/pkg/envelope"
)

// ChainStatus classifies a verified lineage chain, mirroring the otelemit
// lineage.chain.* event names.
type ChainStatus string

const (
	ChainVerified           ChainStatus = "verified"
	ChainIncomplete         ChainStatus = "incomplete"
	ChainMutationDetected   ChainStatus = "mutation_detected"
	ChainBroken             ChainStatus = "broken"
)

// ContentHash computes the canonical content hash of value (spec.md §9's
// resolved Open Question): values of type map[string]any or []any hash
// their canonical JSON encoding — encoding/json already sorts map keys, so
// two equal maps always produce identical bytes regardless of construction
// order. Every other value, including other map and slice types, hashes
// its Go type and %v formatting.
func ContentHash(value any) string {
	switch value.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(value)
		if err != nil {
			return hashBytes([]byte(fmt.Sprintf("%T:%v", value)))
		}
		return hashBytes(data)
	default:
		return hashBytes([]byte(fmt.Sprintf("%T:%v", value)))
	}
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Tracker resolves a field's declared lineage chain and records/verifies
// its stages against a loaded LineageContract.
type Tracker struct {
	contractType string
	chainByField map[string]contracts.LineageChainSpec
}

// NewTracker indexes a LineageContract's chains by field.
func NewTracker(contract contracts.LineageContract) *Tracker {
	t := &Tracker{
		contractType: "data_lineage",
		chainByField: make(map[string]contracts.LineageChainSpec, len(contract.Chains)),
	}
	for _, c := range contract.Chains {
		t.chainByField[c.Field] = c
	}
	return t
}

// RecordStage appends a transformation record for field, hashing before and
// after with ContentHash so a later VerifyChain can detect tampering
// between recorded stages.
func (t *Tracker) RecordStage(env *envelope.Envelope, field, phase string, op contracts.TransformOp, before, after any, wallClock string) envelope.TransformationRecord {
	return env.RecordLineage(field, envelope.TransformationRecord{
		Phase:      phase,
		Op:         string(op),
		InputHash:  ContentHash(before),
		OutputHash: ContentHash(after),
		WallClock:  wallClock,
	})
}

// VerifyChain checks the stages env recorded for field against the
// field's declared chain (if any) and against themselves: each recorded
// stage's InputHash must equal the previous stage's OutputHash, since a
// stage's input is, by construction, the prior stage's output.
func (t *Tracker) VerifyChain(env *envelope.Envelope, field string) (ChainStatus, []errkit.Envelope) {
	recorded := env.LineageFor(field)
	declared, hasDeclaration := t.chainByField[field]

	if len(recorded) == 0 {
		return ChainIncomplete, []errkit.Envelope{errkit.New(t.contractType, field, errkit.StageMismatch, errkit.Warning,
			fmt.Sprintf("field %q has no recorded lineage stages", field))}
	}

	var violations []errkit.Envelope

	for i := 1; i < len(recorded); i++ {
		if recorded[i].InputHash != recorded[i-1].OutputHash {
			violations = append(violations, errkit.New(t.contractType, field, errkit.HashBreak, errkit.Blocking,
				fmt.Sprintf("stage %d input hash does not match stage %d output hash for field %q", i, i-1, field)))
		}
	}
	if len(violations) > 0 {
		return ChainMutationDetected, violations
	}

	if !hasDeclaration {
		return ChainVerified, nil
	}

	if len(recorded) < len(declared.Stages) {
		return ChainIncomplete, []errkit.Envelope{errkit.New(t.contractType, field, errkit.StageMismatch, errkit.Warning,
			fmt.Sprintf("field %q recorded %d of %d declared lineage stages", field, len(recorded), len(declared.Stages)))}
	}

	for i, stage := range declared.Stages {
		if recorded[i].Phase != stage.Phase || recorded[i].Op != string(stage.Operation) {
			violations = append(violations, errkit.New(t.contractType, field, errkit.StageMismatch, errkit.Blocking,
				fmt.Sprintf("recorded stage %d (%s/%s) does not match declared stage (%s/%s) for field %q",
					i, recorded[i].Phase, recorded[i].Op, stage.Phase, stage.Operation, field)))
		}
	}
	if len(violations) > 0 {
		return ChainBroken, violations
	}

	return ChainVerified, nil
}

// Auditor runs VerifyChain across every field a LineageContract declares a
// chain for, producing a single pass/fail summary for the whole contract.
type Auditor struct {
	tracker *Tracker
	fields  []string
}

// NewAuditor builds an Auditor covering every field NewTracker's contract
// declared a chain for.
func NewAuditor(contract contracts.LineageContract) *Auditor {
	tracker := NewTracker(contract)
	fields := make([]string, 0, len(contract.Chains))
	for _, c := range contract.Chains {
		fields = append(fields, c.Field)
	}
	return &Auditor{tracker: tracker, fields: fields}
}

// AuditResult is one field's chain status from a full audit pass.
type AuditResult struct {
	Field      string
	Status     ChainStatus
	Violations []errkit.Envelope
}

// Audit verifies every declared field's chain and reports whether the
// whole contract's lineage is intact (every chain ChainVerified).
func (a *Auditor) Audit(env *envelope.Envelope) (bool, []AuditResult) {
	results := make([]AuditResult, 0, len(a.fields))
	allVerified := true
	for _, field := range a.fields {
		status, violations := a.tracker.VerifyChain(env, field)
		if status != ChainVerified {
			allVerified = false
		}
		results = append(results, AuditResult{Field: field, Status: status, Violations: violations})
	}
	return allVerified, results
}
