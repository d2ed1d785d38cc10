package contracts

// CausalEndpoint identifies a (phase, event) pair on the event timeline.
type CausalEndpoint struct {
	Phase string `yaml:"phase"`
	Event string `yaml:"event"`
}

// CausalDependency declares that `Before` must have a strictly lower
// logical timestamp than `After` (Layer 4, spec.md §4.6).
type CausalDependency struct {
	Before      CausalEndpoint `yaml:"before"`
	After       CausalEndpoint `yaml:"after"`
	Severity    Severity       `yaml:"severity"`
	Description string         `yaml:"description,omitempty"`
}

// OrderingConstraintSpec is the root model for a causal_ordering contract.
type OrderingConstraintSpec struct {
	SchemaVersion string             `yaml:"schema_version" validate:"required"`
	ContractType  ContractType       `yaml:"contract_type" validate:"required,eq=causal_ordering"`
	PipelineID    string             `yaml:"pipeline_id" validate:"required"`
	Dependencies  []CausalDependency `yaml:"dependencies"`
	Description   string             `yaml:"description,omitempty"`
}
