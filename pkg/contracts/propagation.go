package contracts

// PhaseEntryContract declares what a phase requires and enriches on entry.
type PhaseEntryContract struct {
	Required   []FieldSpec `yaml:"required,omitempty"`
	Enrichment []FieldSpec `yaml:"enrichment,omitempty"`
	Quality    []FieldSpec `yaml:"quality,omitempty"`
}

// PhaseExitContract declares what a phase guarantees on exit.
type PhaseExitContract struct {
	Required []FieldSpec `yaml:"required,omitempty"`
	Quality  []FieldSpec `yaml:"quality,omitempty"`
}

// PhaseContract is the entry/exit pair declared for one phase.
type PhaseContract struct {
	Entry PhaseEntryContract `yaml:"entry,omitempty"`
	Exit  PhaseExitContract  `yaml:"exit,omitempty"`
}

// ChainEndpoint identifies a (phase, field) pair.
type ChainEndpoint struct {
	Phase string `yaml:"phase"`
	Field string `yaml:"field"`
}

// PropagationChainSpec declares a field that must survive from a source
// phase to a destination phase.
type PropagationChainSpec struct {
	ChainID     string        `yaml:"chain_id"`
	Source      ChainEndpoint `yaml:"source"`
	Destination ChainEndpoint `yaml:"destination"`
	Severity    Severity      `yaml:"severity"`
}

// ContextContract is the root model for a context_propagation contract
// (Layer 1, spec.md §6.1).
type ContextContract struct {
	SchemaVersion     string                   `yaml:"schema_version" validate:"required"`
	ContractType      ContractType             `yaml:"contract_type" validate:"required,eq=context_propagation"`
	PipelineID        string                   `yaml:"pipeline_id" validate:"required"`
	Phases            map[string]PhaseContract `yaml:"phases"`
	PropagationChains []PropagationChainSpec   `yaml:"propagation_chains,omitempty"`
	// PhaseOrder declares an explicit run order when it cannot be inferred
	// purely from propagation_chains edges (spec.md §4.9's "explicit phase
	// ordering metadata"). Optional: a contract with no ambiguity can omit it.
	PhaseOrder  []string `yaml:"phase_order,omitempty"`
	Description string   `yaml:"description,omitempty"`
}
