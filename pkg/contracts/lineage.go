package contracts

// TransformOp is the kind of transformation a lineage stage records
// (spec.md §3.1).
type TransformOp string

const (
	OpIngest      TransformOp = "ingest"
	OpTransform   TransformOp = "transform"
	OpAggregate   TransformOp = "aggregate"
	OpDerive      TransformOp = "derive"
	OpPassthrough TransformOp = "passthrough"
)

// StageSpec is one declared transformation stage in a lineage chain.
type StageSpec struct {
	Phase       string      `yaml:"phase"`
	Operation   TransformOp `yaml:"operation"`
	Description string      `yaml:"description,omitempty"`
}

// LineageChainSpec declares the full transformation chain for one field.
type LineageChainSpec struct {
	ChainID     string      `yaml:"chain_id"`
	Field       string      `yaml:"field"`
	Stages      []StageSpec `yaml:"stages"`
	Description string      `yaml:"description,omitempty"`
}

// LineageContract is the root model for a data_lineage contract (Layer 7).
type LineageContract struct {
	SchemaVersion string             `yaml:"schema_version" validate:"required"`
	ContractType  ContractType       `yaml:"contract_type" validate:"required,eq=data_lineage"`
	PipelineID    string             `yaml:"pipeline_id" validate:"required"`
	Chains        []LineageChainSpec `yaml:"chains,omitempty"`
	Description   string             `yaml:"description,omitempty"`
}
