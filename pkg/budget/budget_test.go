package budget_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/neil-the-nowledgeable/contextcore/pkg/budget"
	"github.com/neil-the-nowledgeable/contextcore/pkg/contracts"
	"github.com/neil-the-nowledgeable/contextcore/pkg/envelope"
)

func TestBudget(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Budget Propagation Suite")
}

var _ = Describe("NewTracker", func() {
	It("flags an over-allocated budget at load time", func() {
		spec := contracts.BudgetPropagationSpec{
			Budgets: []contracts.BudgetSpec{
				{
					ID: "latency", Kind: contracts.KindLatencyMS, Total: 100,
					PerPhaseAllocation: []contracts.PhaseAllocation{{Phase: "plan", Amount: 60}, {Phase: "build", Amount: 60}},
				},
			},
		}
		_, violations := budget.NewTracker(spec)
		Expect(violations).To(HaveLen(1))
	})

	It("reports no violations for a properly allocated budget", func() {
		spec := contracts.BudgetPropagationSpec{
			Budgets: []contracts.BudgetSpec{
				{
					ID: "latency", Kind: contracts.KindLatencyMS, Total: 100,
					PerPhaseAllocation: []contracts.PhaseAllocation{{Phase: "plan", Amount: 40}, {Phase: "build", Amount: 40}},
				},
			},
		}
		_, violations := budget.NewTracker(spec)
		Expect(violations).To(BeEmpty())
	})
})

var _ = Describe("Tracker.Consume", func() {
	spec := contracts.BudgetPropagationSpec{
		Budgets: []contracts.BudgetSpec{
			{
				ID: "latency", Kind: contracts.KindLatencyMS, Total: 100,
				PerPhaseAllocation: []contracts.PhaseAllocation{{Phase: "plan", Amount: 50}, {Phase: "build", Amount: 50}},
			},
		},
	}

	It("classifies consumption well under the at-risk ratio as within budget", func() {
		tracker, _ := budget.NewTracker(spec)
		env := envelope.New()
		health, violation, err := tracker.Consume(env, "latency", "plan", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(health).To(Equal(budget.WithinBudget))
		Expect(violation).To(BeNil())
	})

	It("classifies consumption above the at-risk ratio as at risk", func() {
		tracker, _ := budget.NewTracker(spec)
		env := envelope.New()
		health, violation, err := tracker.Consume(env, "latency", "plan", 85)
		Expect(err).NotTo(HaveOccurred())
		Expect(health).To(Equal(budget.AtRisk))
		Expect(violation).NotTo(BeNil())
		Expect(violation.Severity).To(Equal(contracts.Warning))
	})

	It("classifies consumption past the total as exhausted", func() {
		tracker, _ := budget.NewTracker(spec)
		env := envelope.New()
		health, violation, _ := tracker.Consume(env, "latency", "plan", 150)
		Expect(health).To(Equal(budget.Exhausted))
		Expect(violation).NotTo(BeNil())
		Expect(violation.Severity).To(Equal(contracts.Blocking))
	})

	It("classifies consumption at exactly the total as exhausted, not at risk", func() {
		tracker, _ := budget.NewTracker(spec)
		env := envelope.New()
		health, violation, _ := tracker.Consume(env, "latency", "plan", 100)
		Expect(health).To(Equal(budget.Exhausted))
		Expect(violation).NotTo(BeNil())
		Expect(violation.Severity).To(Equal(contracts.Blocking))
	})

	It("errors for an undeclared budget id", func() {
		tracker, _ := budget.NewTracker(spec)
		env := envelope.New()
		_, _, err := tracker.Consume(env, "nonexistent", "plan", 1)
		Expect(err).To(HaveOccurred())
	})

	It("accumulates consumption across phases on the same budget", func() {
		tracker, _ := budget.NewTracker(spec)
		env := envelope.New()
		_, _, _ = tracker.Consume(env, "latency", "plan", 40)
		health, _, _ := tracker.Consume(env, "latency", "build", 45)
		Expect(health).To(Equal(budget.AtRisk))
		Expect(env.BudgetConsumed("latency", "plan")).To(Equal(40.0))
		Expect(env.BudgetConsumed("latency", "build")).To(Equal(45.0))
	})
})
