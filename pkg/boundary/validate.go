// Package boundary implements the Boundary Validator (component 4, Layer 1
// of spec.md §3/§4.2): the entry/exit check every phase of a workflow run
// passes through, enforcing required fields, applying entry-side
// enrichment defaults, and running declared quality checks.
package boundary

import (
	"context"
	"fmt"
	"reflect"
	"regexp"

	"github.com/neil-the-nowledgeable/contextcore/internal/errkit"
	"github.com/neil-the-nowledgeable/contextcore/pkg/contracts"
	"github.com/neil-the-nowledgeable/contextcore/pkg/envelope"
	"github.com/neil-the-nowledgeable/contextcore/pkg/otelemit"
)

// Direction is which side of a phase boundary is being checked.
type Direction string

const (
	Entry Direction = "entry"
	Exit  Direction = "exit"
)

// FieldResult is the per-field outcome of a boundary check.
type FieldResult struct {
	Field     string
	Satisfied bool
	Severity  contracts.Severity
	Reason    string
}

// QualityViolation is a single failed QualitySpec or EvaluationSpec check.
type QualityViolation struct {
	Field    string
	Severity contracts.Severity
	Message  string
}

// Result aggregates a single boundary check (spec.md §4.2's
// ContractValidationResult).
type Result struct {
	Phase             string
	Direction         Direction
	Passed            bool
	FieldResults      []FieldResult
	QualityViolations []QualityViolation
	DefaultsApplied   []string
	Envelopes         []errkit.Envelope
}

// Validate runs the declared required/enrichment/quality checks for one
// phase boundary against data, mutating data in place when an enrichment
// default is applied and stamping provenance on env for every default.
// Passed is false as soon as any blocking-severity violation is observed;
// warning and advisory violations are recorded but never fail the check.
func Validate(
	ctx context.Context,
	data map[string]any,
	env *envelope.Envelope,
	emit *otelemit.Emitter,
	registry *PolicyRegistry,
	contractType, phase string,
	direction Direction,
	pc contracts.PhaseContract,
) Result {
	var required, enrichment, quality []contracts.FieldSpec
	switch direction {
	case Entry:
		required = pc.Entry.Required
		enrichment = pc.Entry.Enrichment
		quality = pc.Entry.Quality
	case Exit:
		required = pc.Exit.Required
		quality = pc.Exit.Quality
	}

	res := Result{Phase: phase, Direction: direction, Passed: true}

	checkField := func(spec contracts.FieldSpec, allowDefault bool) {
		value, present := data[spec.Name]
		if !present {
			if allowDefault && spec.HasDefault() {
				data[spec.Name] = spec.Default
				ts := env.Clock.Tick()
				env.SetFieldProvenance(spec.Name, envelope.FieldProvenance{
					OriginPhase: phase,
					LogicalTS:   ts,
					Status:      envelope.StatusDefaulted,
				})
				res.DefaultsApplied = append(res.DefaultsApplied, spec.Name)
				res.FieldResults = append(res.FieldResults, FieldResult{
					Field: spec.Name, Satisfied: true, Severity: spec.Severity, Reason: "default applied",
				})
				return
			}
			e := errkit.New(contractType, phase+"/"+string(direction), errkit.FieldMissing, spec.Severity,
				fmt.Sprintf("field %q is missing", spec.Name))
			res.Envelopes = append(res.Envelopes, e)
			res.FieldResults = append(res.FieldResults, FieldResult{
				Field: spec.Name, Satisfied: false, Severity: spec.Severity, Reason: e.Message,
			})
			if spec.Severity == contracts.Blocking {
				res.Passed = false
			}
			return
		}
		if spec.Type != "" && spec.Type != contracts.TypeAny && !TypeMatches(value, spec.Type) {
			e := errkit.New(contractType, phase+"/"+string(direction), errkit.TypeMismatch, spec.Severity,
				fmt.Sprintf("field %q expected type %s, got %T", spec.Name, spec.Type, value))
			res.Envelopes = append(res.Envelopes, e)
			res.FieldResults = append(res.FieldResults, FieldResult{
				Field: spec.Name, Satisfied: false, Severity: spec.Severity, Reason: e.Message,
			})
			if spec.Severity == contracts.Blocking {
				res.Passed = false
			}
			return
		}
		ts := env.Clock.Tick()
		env.SetFieldProvenance(spec.Name, envelope.FieldProvenance{
			OriginPhase: phase,
			LogicalTS:   ts,
			Status:      envelope.StatusPropagated,
		})
		res.FieldResults = append(res.FieldResults, FieldResult{Field: spec.Name, Satisfied: true, Severity: spec.Severity})
	}

	for _, spec := range required {
		checkField(spec, false)
	}
	for _, spec := range enrichment {
		checkField(spec, true)
	}

	for _, spec := range quality {
		value, present := data[spec.Name]
		if !present {
			continue
		}
		for _, v := range evaluateQuality(ctx, registry, spec, value) {
			res.QualityViolations = append(res.QualityViolations, v)
			if v.Severity == contracts.Blocking {
				res.Passed = false
			}
		}
		if spec.Eval != nil {
			if v, violated := evaluateThreshold(spec.Name, value, *spec.Eval); violated {
				res.QualityViolations = append(res.QualityViolations, v)
				if v.Severity == contracts.Blocking {
					res.Passed = false
				}
			}
		}
	}

	if emit != nil {
		emit.Emit(ctx, otelemit.PropagationBoundaryResult,
			otelemit.String("propagation.phase", phase),
			otelemit.String("propagation.direction", string(direction)),
			otelemit.Bool("propagation.passed", res.Passed),
			otelemit.Int("propagation.defaults_applied", len(res.DefaultsApplied)),
		)
	}

	return res
}

// TypeMatches reports whether value satisfies the coarse FieldType tag t.
// Exported so other layers (schemacompat in particular) can reuse the same
// type-compatibility rules boundary checks use.
func TypeMatches(value any, t contracts.FieldType) bool {
	switch t {
	case contracts.TypeString:
		_, ok := value.(string)
		return ok
	case contracts.TypeInt:
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		default:
			return false
		}
	case contracts.TypeFloat:
		switch value.(type) {
		case float32, float64:
			return true
		default:
			return false
		}
	case contracts.TypeBool:
		_, ok := value.(bool)
		return ok
	case contracts.TypeList:
		return reflect.ValueOf(value).Kind() == reflect.Slice
	case contracts.TypeDict:
		return reflect.ValueOf(value).Kind() == reflect.Map
	default:
		return true
	}
}

func evaluateQuality(ctx context.Context, registry *PolicyRegistry, spec contracts.FieldSpec, value any) []QualityViolation {
	q := spec.Quality
	if q == nil {
		return nil
	}
	var out []QualityViolation

	if q.MinLength != nil || q.MaxLength != nil {
		if s, ok := value.(string); ok {
			n := len(s)
			if q.MinLength != nil && n < *q.MinLength {
				out = append(out, QualityViolation{Field: spec.Name, Severity: spec.Severity,
					Message: fmt.Sprintf("length %d below min_length %d", n, *q.MinLength)})
			}
			if q.MaxLength != nil && n > *q.MaxLength {
				out = append(out, QualityViolation{Field: spec.Name, Severity: spec.Severity,
					Message: fmt.Sprintf("length %d exceeds max_length %d", n, *q.MaxLength)})
			}
		}
	}

	if q.Pattern != "" {
		if s, ok := value.(string); ok {
			if re, err := regexp.Compile(q.Pattern); err == nil && !re.MatchString(s) {
				out = append(out, QualityViolation{Field: spec.Name, Severity: spec.Severity,
					Message: fmt.Sprintf("value does not match pattern %q", q.Pattern)})
			}
		}
	}

	if q.Min != nil || q.Max != nil {
		if n, ok := numeric(value); ok {
			if q.Min != nil && n < *q.Min {
				out = append(out, QualityViolation{Field: spec.Name, Severity: spec.Severity,
					Message: fmt.Sprintf("value %v below min %v", n, *q.Min)})
			}
			if q.Max != nil && n > *q.Max {
				out = append(out, QualityViolation{Field: spec.Name, Severity: spec.Severity,
					Message: fmt.Sprintf("value %v exceeds max %v", n, *q.Max)})
			}
		}
	}

	if q.Policy != "" && registry != nil {
		ok, found, reason := registry.Evaluate(ctx, q.Policy, value)
		switch {
		case !found:
			out = append(out, QualityViolation{Field: spec.Name, Severity: contracts.Advisory,
				Message: fmt.Sprintf("policy %q is not registered", q.Policy)})
		case !ok:
			out = append(out, QualityViolation{Field: spec.Name, Severity: spec.Severity, Message: reason})
		}
	}

	return out
}

func evaluateThreshold(field string, value any, eval contracts.EvaluationSpec) (QualityViolation, bool) {
	n, ok := numeric(value)
	if !ok {
		return QualityViolation{}, false
	}
	var pass bool
	switch eval.Operator {
	case "eq":
		pass = n == eval.Threshold
	case "ne":
		pass = n != eval.Threshold
	case "lt":
		pass = n < eval.Threshold
	case "lte":
		pass = n <= eval.Threshold
	case "gt":
		pass = n > eval.Threshold
	case "gte":
		pass = n >= eval.Threshold
	default:
		return QualityViolation{}, false
	}
	if pass {
		return QualityViolation{}, false
	}
	return QualityViolation{Field: field, Severity: eval.Severity,
		Message: fmt.Sprintf("value %v fails %s %v", n, eval.Operator, eval.Threshold)}, true
}

func numeric(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
