// Package schemacompat implements the Schema-Compatibility layer
// (component 5, Layer 2 of spec.md §3/§4.3): translating a field between a
// source and target service's representation, and checking that a
// service's schema evolves under its declared policy across versions.
package schemacompat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/neil-the-nowledgeable/contextcore/internal/errkit"
	"github.com/neil-the-nowledgeable/contextcore/pkg/boundary"
	"github.com/neil-the-nowledgeable/contextcore/pkg/contracts"
)

// MappingResult is the outcome of translating one field across a
// FieldMapping.
type MappingResult struct {
	Mapping        contracts.FieldMapping
	Translated     bool
	TranslatedValue any
	Violation      *errkit.Envelope
}

// CheckMapping looks up mapping.SourceField in data and translates it to
// the target representation. A missing source field is not itself a
// violation — mappings are only checked for fields that are actually
// present, per spec.md §4.3's "mappings apply where both sides are live".
func CheckMapping(data map[string]any, contractType string, mapping contracts.FieldMapping) MappingResult {
	value, present := data[mapping.SourceField]
	if !present {
		return MappingResult{Mapping: mapping, Translated: false}
	}

	if mapping.SourceType != "" && mapping.SourceType != contracts.TypeAny && !boundary.TypeMatches(value, mapping.SourceType) {
		e := errkit.New(contractType, mapping.SourceService+"."+mapping.SourceField, errkit.TypeMismatch, errkit.Warning,
			fmt.Sprintf("source field %q expected type %s, got %T", mapping.SourceField, mapping.SourceType, value))
		return MappingResult{Mapping: mapping, Violation: &e}
	}

	if len(mapping.Mapping) == 0 {
		return MappingResult{Mapping: mapping, Translated: true, TranslatedValue: value}
	}

	translated, ok := mapping.Mapping[stringify(value)]
	if !ok {
		e := errkit.New(contractType, mapping.SourceService+"."+mapping.SourceField, errkit.Unmapped, errkit.Warning,
			fmt.Sprintf("value %v has no mapping entry from %s.%s to %s.%s",
				value, mapping.SourceService, mapping.SourceField, mapping.TargetService, mapping.TargetField))
		return MappingResult{Mapping: mapping, Violation: &e}
	}
	return MappingResult{Mapping: mapping, Translated: true, TranslatedValue: translated}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// EvolutionTracker checks a service's schema evolution rules against its
// declared version timeline (spec.md §4.3's compatibility matrix).
type EvolutionTracker struct {
	versions map[versionKey]contracts.SchemaVersion
}

type versionKey struct {
	Service string
	Version string
}

// NewEvolutionTracker indexes a contract's declared schema versions by
// (service, version).
func NewEvolutionTracker(spec contracts.SchemaCompatibilitySpec) *EvolutionTracker {
	t := &EvolutionTracker{versions: make(map[versionKey]contracts.SchemaVersion, len(spec.Versions))}
	for _, v := range spec.Versions {
		t.versions[versionKey{Service: v.Service, Version: v.Version}] = v
	}
	return t
}

// CheckRule evaluates a single SchemaEvolutionRule against the indexed
// version timeline, diffing the from/to field sets under the rule's
// declared policy. A missing from/to version is reported as ContractShape
// rather than silently skipped — an evolution rule naming a version the
// contract never declares is itself a contract defect.
func (t *EvolutionTracker) CheckRule(contractType string, rule contracts.SchemaEvolutionRule) *errkit.Envelope {
	from, fromOK := t.versions[versionKey{Service: rule.Service, Version: rule.FromVersion}]
	to, toOK := t.versions[versionKey{Service: rule.Service, Version: rule.ToVersion}]
	if !fromOK || !toOK {
		e := errkit.New(contractType, rule.Service, errkit.ContractShape, errkit.Blocking,
			fmt.Sprintf("evolution rule %s %s->%s names an undeclared schema version",
				rule.Service, rule.FromVersion, rule.ToVersion))
		return &e
	}

	removed, typeChanged := diffFields(from.Fields, to.Fields)
	breaking := len(removed) > 0 || len(typeChanged) > 0

	switch rule.Policy {
	case contracts.PolicyBreakingAllowed:
		return nil

	case contracts.PolicyAdditiveOnly:
		if len(removed) > 0 {
			e := errkit.New(contractType, rule.Service, errkit.FieldMissing, errkit.Blocking,
				fmt.Sprintf("%s %s->%s removed field(s) %s under additive_only policy",
					rule.Service, rule.FromVersion, rule.ToVersion, strings.Join(removed, ", ")))
			return &e
		}
		if len(typeChanged) > 0 {
			e := errkit.New(contractType, rule.Service, errkit.TypeMismatch, errkit.Blocking,
				fmt.Sprintf("%s %s->%s changed the type of field(s) %s under additive_only policy",
					rule.Service, rule.FromVersion, rule.ToVersion, strings.Join(typeChanged, ", ")))
			return &e
		}
		return nil

	case contracts.PolicyMajorVersionRequired:
		if !breaking {
			return nil
		}
		if sameMajor(rule.FromVersion, rule.ToVersion) {
			e := errkit.New(contractType, rule.Service, errkit.ContractShape, errkit.Blocking,
				fmt.Sprintf("%s %s->%s made a breaking change without a major version bump",
					rule.Service, rule.FromVersion, rule.ToVersion))
			return &e
		}
		return nil

	default:
		e := errkit.New(contractType, rule.Service, errkit.ContractShape, errkit.Blocking,
			fmt.Sprintf("unrecognized evolution policy %q", rule.Policy))
		return &e
	}
}

// diffFields reports fields present in from but absent from to (removed),
// and fields present in both whose declared type differs (typeChanged).
func diffFields(from, to map[string]contracts.FieldType) (removed, typeChanged []string) {
	for name, fromType := range from {
		toType, ok := to[name]
		if !ok {
			removed = append(removed, name)
			continue
		}
		if toType != fromType {
			typeChanged = append(typeChanged, name)
		}
	}
	return removed, typeChanged
}

// sameMajor reports whether two "MAJOR.MINOR.PATCH"-shaped version strings
// share the same leading major component. Non-numeric or malformed
// components are compared as their raw strings.
func sameMajor(a, b string) bool {
	return majorOf(a) == majorOf(b)
}

func majorOf(version string) string {
	parts := strings.SplitN(version, ".", 2)
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return parts[0]
	}
	return parts[0]
}
