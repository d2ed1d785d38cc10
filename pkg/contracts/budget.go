package contracts

// BudgetKind is the resource a Budget tracks (Layer 6, spec.md §3.1).
type BudgetKind string

const (
	KindLatencyMS BudgetKind = "latency_ms"
	KindCostUSD   BudgetKind = "cost_usd"
	KindTokens    BudgetKind = "tokens"
	KindErrorRate BudgetKind = "error_rate"
)

// PhaseAllocation declares a budget slice allotted to one phase.
type PhaseAllocation struct {
	Phase  string  `yaml:"phase"`
	Amount float64 `yaml:"amount"`
}

// BudgetSpec declares one budget: its kind, total, and per-phase split.
type BudgetSpec struct {
	ID                  string            `yaml:"id"`
	Kind                BudgetKind        `yaml:"kind"`
	Total               float64           `yaml:"total"`
	PerPhaseAllocation  []PhaseAllocation `yaml:"per_phase_allocation"`
}

// SumAllocated returns the sum of all per-phase allocations.
func (b BudgetSpec) SumAllocated() float64 {
	var sum float64
	for _, a := range b.PerPhaseAllocation {
		sum += a.Amount
	}
	return sum
}

// BudgetPropagationSpec is the root model for a budget_propagation
// contract (Layer 6).
type BudgetPropagationSpec struct {
	SchemaVersion string       `yaml:"schema_version" validate:"required"`
	ContractType  ContractType `yaml:"contract_type" validate:"required,eq=budget_propagation"`
	PipelineID    string       `yaml:"pipeline_id" validate:"required"`
	Budgets       []BudgetSpec `yaml:"budgets"`
	Description   string       `yaml:"description,omitempty"`
}
