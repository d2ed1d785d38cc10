package contracts

// CapabilityDefinition declares one capability id and whether it is
// attenuable (Layer 5, spec.md §3.1).
type CapabilityDefinition struct {
	ID                 string   `yaml:"id"`
	DeclaredOperations []string `yaml:"declared_operations,omitempty"`
	DeclaredResources  []string `yaml:"declared_resources,omitempty"`
	Attenuable         bool     `yaml:"attenuable"`
}

// AttenuationSpec marks a capability as escalatable through a named
// authority. An escalation through that authority is allowed: the chain
// check reports it as attenuated, with no violation, and no separate
// escalation event is logged or recorded.
type AttenuationSpec struct {
	CapabilityID   string `yaml:"capability_id"`
	CanEscalateVia string `yaml:"can_escalate_via"`
}

// PhaseCapabilityContract declares the capabilities granted, consumed, and
// produced at a phase.
type PhaseCapabilityContract struct {
	Phase    string   `yaml:"phase"`
	Granted  []string `yaml:"granted,omitempty"`
	Consumed []string `yaml:"consumed,omitempty"`
	Produced []string `yaml:"produced,omitempty"`
}

// CapabilityChainSpec declares a source→destination edge that must satisfy
// the attenuation invariant.
type CapabilityChainSpec struct {
	ChainID     string `yaml:"chain_id"`
	Source      string `yaml:"source"` // phase
	Destination string `yaml:"destination"`
}

// CapabilityContract is the root model for a capability_propagation
// contract (Layer 5).
type CapabilityContract struct {
	SchemaVersion string                     `yaml:"schema_version" validate:"required"`
	ContractType  ContractType               `yaml:"contract_type" validate:"required,eq=capability_propagation"`
	PipelineID    string                     `yaml:"pipeline_id" validate:"required"`
	Capabilities  []CapabilityDefinition     `yaml:"capabilities,omitempty"`
	Phases        []PhaseCapabilityContract  `yaml:"phases,omitempty"`
	Chains        []CapabilityChainSpec      `yaml:"chains,omitempty"`
	Attenuations  []AttenuationSpec          `yaml:"attenuations,omitempty"`
	Description   string                     `yaml:"description,omitempty"`
}
