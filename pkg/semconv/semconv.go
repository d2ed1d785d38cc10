// Package semconv implements the Semantic-Convention layer (component 6,
// Layer 3 of spec.md §3/§4.4): resolving attribute aliases to their
// canonical name, checking requirement levels and allowed-value sets, and
// validating enum values against closed or extensible enum declarations.
package semconv

import (
	"fmt"

	"github.com/neil-the-nowledgeable/contextcore/internal/errkit"
	"github.com/neil-the-nowledgeable/contextcore/pkg/boundary"
	"github.com/neil-the-nowledgeable/contextcore/pkg/contracts"
)

// BuildAliasIndex maps every declared alias, and every canonical name, to
// its canonical name. Built once per contract load (spec.md §4.4) and
// reused for the lifetime of the contract.
func BuildAliasIndex(contract contracts.ConventionContract) contracts.AliasIndex {
	idx, _ := BuildAliasIndexChecked(contract)
	return idx
}

// BuildAliasIndexChecked is BuildAliasIndex plus alias-conflict detection
// (spec.md §8 invariant 6): if two aliases — or an alias and a canonical
// name — resolve to distinct canonical names in the same namespace, that
// is a contract defect reported as AliasConflict, not a silent
// last-write-wins overwrite.
func BuildAliasIndexChecked(contract contracts.ConventionContract) (contracts.AliasIndex, []errkit.Envelope) {
	idx := make(contracts.AliasIndex)
	var conflicts []errkit.Envelope

	bind := func(name, canonical string) {
		if existing, ok := idx[name]; ok && existing != canonical {
			conflicts = append(conflicts, errkit.New("semantic_conventions", contract.Namespace+"."+name, errkit.AliasConflict, errkit.Blocking,
				fmt.Sprintf("alias %q resolves to both %q and %q in namespace %q", name, existing, canonical, contract.Namespace)))
			return
		}
		idx[name] = canonical
	}

	for _, attr := range contract.Attributes {
		bind(attr.Name, attr.Name)
		for _, alias := range attr.Aliases {
			bind(alias, attr.Name)
		}
	}
	return idx, conflicts
}

// Resolve looks up name (canonical or alias) in idx, returning the
// canonical name and whether it is known.
func Resolve(idx contracts.AliasIndex, name string) (string, bool) {
	canonical, ok := idx[name]
	return canonical, ok
}

// Validator checks attribute and enum values against a loaded
// ConventionContract.
type Validator struct {
	contractType string
	namespace    string
	aliases      contracts.AliasIndex
	conflicts    []errkit.Envelope
	attributes   map[string]contracts.AttributeConvention // canonical name -> convention
	enums        map[string]contracts.EnumConvention
}

// NewValidator indexes a ConventionContract's attributes and enums for
// repeated lookups, detecting alias conflicts up front.
func NewValidator(contract contracts.ConventionContract) *Validator {
	idx, conflicts := BuildAliasIndexChecked(contract)
	v := &Validator{
		contractType: "semantic_conventions",
		namespace:    contract.Namespace,
		aliases:      idx,
		conflicts:    conflicts,
		attributes:   make(map[string]contracts.AttributeConvention, len(contract.Attributes)),
		enums:        make(map[string]contracts.EnumConvention, len(contract.Enums)),
	}
	for _, attr := range contract.Attributes {
		v.attributes[attr.Name] = attr
	}
	for _, enum := range contract.Enums {
		v.enums[enum.Name] = enum
	}
	return v
}

// AliasConflicts returns any alias-conflict violations detected when this
// Validator was built.
func (v *Validator) AliasConflicts() []errkit.Envelope {
	return v.conflicts
}

// CheckAttribute resolves attrName (canonical or alias) against data,
// enforcing its requirement level, declared type, and allowed-value set.
// An unrecognized attribute name is reported as Unmapped at advisory
// severity — an undeclared attribute is not itself a contract violation,
// only something worth surfacing.
func (v *Validator) CheckAttribute(data map[string]any, attrName string) *errkit.Envelope {
	canonical, known := Resolve(v.aliases, attrName)
	if !known {
		e := errkit.New(v.contractType, v.namespace+"."+attrName, errkit.Unmapped, errkit.Advisory,
			fmt.Sprintf("attribute %q is not declared in namespace %q", attrName, v.namespace))
		return &e
	}
	conv := v.attributes[canonical]

	value, present := data[canonical]
	if !present {
		switch conv.RequirementLevel {
		case contracts.RequirementRequired:
			e := errkit.New(v.contractType, v.namespace+"."+canonical, errkit.FieldMissing, errkit.Blocking,
				fmt.Sprintf("required attribute %q is missing", canonical))
			return &e
		case contracts.RequirementRecommended:
			e := errkit.New(v.contractType, v.namespace+"."+canonical, errkit.FieldMissing, errkit.Warning,
				fmt.Sprintf("recommended attribute %q is missing", canonical))
			return &e
		default:
			return nil
		}
	}

	if conv.Type != "" && conv.Type != contracts.TypeAny && !boundary.TypeMatches(value, conv.Type) {
		e := errkit.New(v.contractType, v.namespace+"."+canonical, errkit.TypeMismatch, errkit.Blocking,
			fmt.Sprintf("attribute %q expected type %s, got %T", canonical, conv.Type, value))
		return &e
	}

	if len(conv.AllowedValues) > 0 {
		s, ok := value.(string)
		if !ok || !contains(conv.AllowedValues, s) {
			e := errkit.New(v.contractType, v.namespace+"."+canonical, errkit.QualityFail, errkit.Warning,
				fmt.Sprintf("attribute %q value %v is not in the allowed value set", canonical, value))
			return &e
		}
	}

	return nil
}

// CheckEnum validates value against a declared enum. A closed enum
// (Extensible == false) rejects any value outside Values at blocking
// severity; an extensible enum only reports unknown values as advisory,
// per spec.md §4.4's "extensible enums gain new values without breaking
// old consumers" rule.
func (v *Validator) CheckEnum(enumName, value string) *errkit.Envelope {
	enum, known := v.enums[enumName]
	if !known {
		e := errkit.New(v.contractType, v.namespace+"."+enumName, errkit.Unmapped, errkit.Advisory,
			fmt.Sprintf("enum %q is not declared in namespace %q", enumName, v.namespace))
		return &e
	}
	if contains(enum.Values, value) {
		return nil
	}
	severity := errkit.Blocking
	if enum.Extensible {
		severity = errkit.Advisory
	}
	e := errkit.New(v.contractType, v.namespace+"."+enumName, errkit.QualityFail, severity,
		fmt.Sprintf("value %q is not a declared member of enum %q", value, enumName))
	return &e
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
