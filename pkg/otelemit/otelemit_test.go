package otelemit_test

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/neil-the-nowledgeable/contextcore/pkg/otelemit"
)

func TestOtelemit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Namespaced Span-Event Emitter Suite")
}

var _ = Describe("Emitter.Emit", func() {
	It("falls back to the structured logger when no span is recording", func() {
		emit := otelemit.New(logr.Discard())
		Expect(func() {
			emit.Emit(context.Background(), otelemit.ConventionValidationComplete, otelemit.String("convention.namespace", "payments"))
		}).NotTo(Panic())
	})

	It("accepts every attribute constructor without panicking", func() {
		emit := otelemit.New(logr.Discard())
		Expect(func() {
			emit.Emit(context.Background(), otelemit.BudgetSummary,
				otelemit.String("budget.id", "latency"),
				otelemit.Int("budget.phase_count", 3),
				otelemit.Float("budget.consumed", 42.5),
				otelemit.Bool("budget.over_allocated", false))
		}).NotTo(Panic())
	})
})

var _ = Describe("Event namespacing", func() {
	It("matches spec.md §6.2's exact event names", func() {
		Expect(string(otelemit.ContextPreflightViolation)).To(Equal("context.preflight.violation"))
		Expect(string(otelemit.CapabilityChainEscalationBlocked)).To(Equal("capability.chain.escalation_blocked"))
		Expect(string(otelemit.ContextRegressionGateCheck)).To(Equal("context.regression.gate_check"))
	})
})

var _ = Describe("New with a discarding test logger", func() {
	It("does not error when logging the fallback path", func() {
		log := testr.New(GinkgoT())
		emit := otelemit.New(log)
		emit.Emit(context.Background(), otelemit.LineageAuditComplete, otelemit.String("lineage.status", "verified"))
	})
})
