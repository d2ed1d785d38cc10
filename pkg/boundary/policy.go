package boundary

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/open-policy-agent/opa/rego"
)

// PolicyFunc evaluates a named QualitySpec policy against a field's current
// value. It returns whether the policy passed and a human-readable reason
// for a failure.
type PolicyFunc func(value any) (ok bool, reason string)

// builtinPolicies is the small closed registry spec.md §4.2/§9 calls for:
// a handful of policies known up front, with everything else routed to the
// OPA-backed plugin point (or, failing that, reported as advisory).
func builtinPolicies() map[string]PolicyFunc {
	return map[string]PolicyFunc{
		"non_empty": func(value any) (bool, string) {
			s, ok := value.(string)
			if !ok {
				return true, ""
			}
			if strings.TrimSpace(s) == "" {
				return false, "value must not be empty or whitespace"
			}
			return true, ""
		},
		"positive_number": func(value any) (bool, string) {
			switch v := value.(type) {
			case int:
				if v <= 0 {
					return false, "value must be positive"
				}
			case float64:
				if v <= 0 {
					return false, "value must be positive"
				}
			}
			return true, ""
		},
		"no_leading_whitespace": func(value any) (bool, string) {
			s, ok := value.(string)
			if !ok {
				return true, ""
			}
			if len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
				return false, "value must not start with whitespace"
			}
			return true, ""
		},
	}
}

// PolicyRegistry resolves a QualitySpec's named policy, first against the
// built-in set, then against any OPA rego modules registered for this run.
// An unresolved name is reported by the caller (boundary.Validate) as
// advisory, per spec.md §4.2's "unknown policies -> advisory" rule.
type PolicyRegistry struct {
	mu       sync.RWMutex
	builtins map[string]PolicyFunc
	opa      map[string]rego.PreparedEvalQuery
}

// NewPolicyRegistry builds a registry seeded with the built-in policies.
func NewPolicyRegistry() *PolicyRegistry {
	return &PolicyRegistry{
		builtins: builtinPolicies(),
		opa:      make(map[string]rego.PreparedEvalQuery),
	}
}

// RegisterRego compiles a rego module and binds it to policyName. The
// module must define `allow` as a boolean under package `policy.<name>`
// consuming `input.value`. This is the plugin registration point spec.md
// §9's Open Question calls for: a contract can name a policy the built-in
// registry does not know, and the caller wires it here before validation.
func (r *PolicyRegistry) RegisterRego(ctx context.Context, policyName, module string) error {
	query := fmt.Sprintf("data.policy.%s.allow", policyName)
	pq, err := rego.New(
		rego.Query(query),
		rego.Module(policyName+".rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("compiling rego policy %q: %w", policyName, err)
	}
	r.mu.Lock()
	r.opa[policyName] = pq
	r.mu.Unlock()
	return nil
}

// Evaluate resolves and runs a named policy. found is false when no
// built-in or registered rego policy matches the name.
func (r *PolicyRegistry) Evaluate(ctx context.Context, name string, value any) (ok bool, found bool, reason string) {
	r.mu.RLock()
	fn, isBuiltin := r.builtins[name]
	pq, isOPA := r.opa[name]
	r.mu.RUnlock()

	if isBuiltin {
		ok, reason := fn(value)
		return ok, true, reason
	}
	if isOPA {
		rs, err := pq.Eval(ctx, rego.EvalInput(map[string]any{"value": value}))
		if err != nil || len(rs) == 0 || len(rs[0].Expressions) == 0 {
			return false, true, fmt.Sprintf("policy %q evaluation error: %v", name, err)
		}
		allow, _ := rs[0].Expressions[0].Value.(bool)
		if !allow {
			return false, true, fmt.Sprintf("policy %q denied the value", name)
		}
		return true, true, ""
	}
	return false, false, ""
}
