// Package contracts defines the typed YAML contract models for all seven
// validation layers (spec.md §3.1, §6.1) and the shared primitives they are
// built from: severities, field types, quality/evaluation specs, and the
// `contract_type` discriminator every contract YAML file carries.
package contracts

import "github.com/neil-the-nowledgeable/contextcore/internal/errkit"

// Severity re-exports errkit.Severity so contract schema files need only
// import this package.
type Severity = errkit.Severity

const (
	Blocking Severity = errkit.Blocking
	Warning  Severity = errkit.Warning
	Advisory Severity = errkit.Advisory
)

// ContractType is the `contract_type` discriminator every contract YAML
// document carries (spec.md §6.1).
type ContractType string

const (
	TypeContextPropagation    ContractType = "context_propagation"
	TypeSchemaCompatibility   ContractType = "schema_compatibility"
	TypeSemanticConventions   ContractType = "semantic_conventions"
	TypeCapabilityPropagation ContractType = "capability_propagation"
	TypeCausalOrdering        ContractType = "causal_ordering"
	TypeBudgetPropagation     ContractType = "budget_propagation"
	TypeDataLineage           ContractType = "data_lineage"
)

// FieldType is the coarse type tag a FieldSpec declares (spec.md §4.2, §9).
// A field with no declared type, or a declared type of Any, accepts any
// value and only gets presence/quality checks.
type FieldType string

const (
	TypeString FieldType = "str"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
	TypeList   FieldType = "list"
	TypeDict   FieldType = "dict"
	TypeAny    FieldType = "any"
)

// EvaluationSpec compares a value (or a derived metric) against a threshold
// using a declared operator (spec.md §4.2).
type EvaluationSpec struct {
	Metric    string   `yaml:"metric,omitempty"`
	Operator  string   `yaml:"operator"` // one of: eq, ne, lt, lte, gt, gte
	Threshold float64  `yaml:"threshold"`
	Severity  Severity `yaml:"severity"`
}

// QualitySpec declares length/pattern/range checks or a named policy to run
// against a field's value.
type QualitySpec struct {
	MinLength *int            `yaml:"min_length,omitempty"`
	MaxLength *int            `yaml:"max_length,omitempty"`
	Pattern   string          `yaml:"pattern,omitempty"`
	Min       *float64        `yaml:"min,omitempty"`
	Max       *float64        `yaml:"max,omitempty"`
	Policy    string          `yaml:"policy,omitempty"`
	Eval      *EvaluationSpec `yaml:"eval,omitempty"`
}

// FieldSpec declares a single context field and how it must be validated at
// a phase boundary (spec.md §3.1).
type FieldSpec struct {
	Name     string       `yaml:"name"`
	Type     FieldType    `yaml:"type,omitempty"`
	Severity Severity     `yaml:"severity"`
	Default  any          `yaml:"default,omitempty"`
	Quality  *QualitySpec `yaml:"quality,omitempty"`
	Eval     *EvaluationSpec `yaml:"eval,omitempty"`
}

// HasDefault reports whether the field declares a default value.
func (f FieldSpec) HasDefault() bool { return f.Default != nil }
