package contracts

// RequirementLevel mirrors OTel's semantic-convention requirement levels.
type RequirementLevel string

const (
	RequirementRequired    RequirementLevel = "required"
	RequirementRecommended RequirementLevel = "recommended"
	RequirementOptIn       RequirementLevel = "opt_in"
)

// AttributeConvention declares a canonical attribute name, its aliases, and
// its allowed value set (Layer 3, spec.md §4.4).
type AttributeConvention struct {
	Name             string           `yaml:"name"`
	Type             FieldType        `yaml:"type,omitempty"`
	RequirementLevel RequirementLevel `yaml:"requirement_level,omitempty"`
	Aliases          []string         `yaml:"aliases,omitempty"`
	AllowedValues    []string         `yaml:"allowed_values,omitempty"`
	Description      string           `yaml:"description,omitempty"`
}

// EnumConvention declares a named enum with a fixed or extensible value set.
type EnumConvention struct {
	Name       string   `yaml:"name"`
	Values     []string `yaml:"values"`
	Extensible bool     `yaml:"extensible,omitempty"`
}

// ConventionContract is the root model for a semantic_conventions contract.
type ConventionContract struct {
	SchemaVersion string                `yaml:"schema_version" validate:"required"`
	ContractType  ContractType          `yaml:"contract_type" validate:"required,eq=semantic_conventions"`
	Namespace     string                `yaml:"namespace" validate:"required"`
	Attributes    []AttributeConvention `yaml:"attributes,omitempty"`
	Enums         []EnumConvention      `yaml:"enums,omitempty"`
	Description   string                `yaml:"description,omitempty"`
}

// AliasIndex is a resolved namespace → canonical-name lookup built once per
// contract load and reused by the validator.
type AliasIndex map[string]string
