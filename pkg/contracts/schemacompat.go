package contracts

// FieldMapping declares how a source service's field/value translates to a
// target service's field/value (Layer 2, spec.md §4.3).
type FieldMapping struct {
	SourceService string            `yaml:"source_service"`
	SourceField   string            `yaml:"source_field"`
	SourceValues  []string          `yaml:"source_values,omitempty"`
	TargetService string            `yaml:"target_service"`
	TargetField   string            `yaml:"target_field"`
	TargetValues  []string          `yaml:"target_values,omitempty"`
	SourceType    FieldType         `yaml:"source_type,omitempty"`
	TargetType    FieldType         `yaml:"target_type,omitempty"`
	Mapping       map[string]string `yaml:"mapping,omitempty"`
}

// SchemaVersion declares a point in a service's schema evolution timeline,
// keyed by the fields it carries.
type SchemaVersion struct {
	Service string              `yaml:"service"`
	Version string              `yaml:"version"`
	Fields  map[string]FieldType `yaml:"fields"`
}

// EvolutionPolicy names the schema evolution rule a pair of versions must
// satisfy.
type EvolutionPolicy string

const (
	PolicyAdditiveOnly        EvolutionPolicy = "additive_only"
	PolicyBreakingAllowed     EvolutionPolicy = "breaking_allowed"
	PolicyMajorVersionRequired EvolutionPolicy = "major_version_required"
)

// SchemaEvolutionRule binds an evolution policy to a pair of schema
// versions for the same service.
type SchemaEvolutionRule struct {
	Service    string          `yaml:"service"`
	FromVersion string         `yaml:"from_version"`
	ToVersion   string         `yaml:"to_version"`
	Policy      EvolutionPolicy `yaml:"policy"`
}

// SchemaCompatibilitySpec is the root model for a schema_compatibility
// contract (Layer 2).
type SchemaCompatibilitySpec struct {
	SchemaVersion  string                `yaml:"schema_version" validate:"required"`
	ContractType   ContractType          `yaml:"contract_type" validate:"required,eq=schema_compatibility"`
	PipelineID     string                `yaml:"pipeline_id" validate:"required"`
	Mappings       []FieldMapping        `yaml:"mappings,omitempty"`
	Versions       []SchemaVersion       `yaml:"versions,omitempty"`
	EvolutionRules []SchemaEvolutionRule `yaml:"evolution_rules,omitempty"`
	Description    string                `yaml:"description,omitempty"`
}
