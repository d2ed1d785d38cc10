package preflight_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/neil-the-nowledgeable/contextcore/pkg/contracts"
	"github.com/neil-the-nowledgeable/contextcore/pkg/preflight"
)

func TestPreflight(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Preflight Checker Suite")
}

var _ = Describe("Checker.CheckGraph", func() {
	checker := preflight.NewChecker()

	It("topologically orders an acyclic graph and reports no unreachable phases", func() {
		contract := contracts.ContextContract{
			Phases: map[string]contracts.PhaseContract{"plan": {}, "build": {}, "deploy": {}},
			PropagationChains: []contracts.PropagationChainSpec{
				{Source: contracts.ChainEndpoint{Phase: "plan"}, Destination: contracts.ChainEndpoint{Phase: "build"}},
				{Source: contracts.ChainEndpoint{Phase: "build"}, Destination: contracts.ChainEndpoint{Phase: "deploy"}},
			},
		}
		result := checker.CheckGraph(contract)
		Expect(result.Cycle).To(BeFalse())
		Expect(result.Order).To(Equal([]string{"plan", "build", "deploy"}))
		Expect(result.Unreachable).To(BeEmpty())
	})

	It("detects a cycle", func() {
		contract := contracts.ContextContract{
			Phases: map[string]contracts.PhaseContract{"a": {}, "b": {}},
			PropagationChains: []contracts.PropagationChainSpec{
				{Source: contracts.ChainEndpoint{Phase: "a"}, Destination: contracts.ChainEndpoint{Phase: "b"}},
				{Source: contracts.ChainEndpoint{Phase: "b"}, Destination: contracts.ChainEndpoint{Phase: "a"}},
			},
		}
		result := checker.CheckGraph(contract)
		Expect(result.Cycle).To(BeTrue())
		Expect(result.CycleViolation).NotTo(BeNil())
	})

	It("reports a disconnected phase as unreachable", func() {
		contract := contracts.ContextContract{
			Phases: map[string]contracts.PhaseContract{"plan": {}, "build": {}, "orphan": {}},
			PropagationChains: []contracts.PropagationChainSpec{
				{Source: contracts.ChainEndpoint{Phase: "plan"}, Destination: contracts.ChainEndpoint{Phase: "build"}},
			},
		}
		result := checker.CheckGraph(contract)
		Expect(result.Cycle).To(BeFalse())
		Expect(result.Unreachable).To(ConsistOf("orphan"))
	})

	It("honors an explicit phase_order edge even with no propagation_chains", func() {
		contract := contracts.ContextContract{
			Phases:     map[string]contracts.PhaseContract{"plan": {}, "build": {}},
			PhaseOrder: []string{"plan", "build"},
		}
		result := checker.CheckGraph(contract)
		Expect(result.Cycle).To(BeFalse())
		Expect(result.Order).To(Equal([]string{"plan", "build"}))
	})
})

var _ = Describe("Checker.CheckFieldReadiness", func() {
	checker := preflight.NewChecker()

	contract := contracts.ContextContract{
		Phases: map[string]contracts.PhaseContract{
			"plan": {
				Exit: contracts.PhaseExitContract{
					Required: []contracts.FieldSpec{{Name: "domain", Type: contracts.TypeString, Severity: contracts.Blocking}},
				},
			},
			"build": {
				Entry: contracts.PhaseEntryContract{
					Required: []contracts.FieldSpec{{Name: "domain", Type: contracts.TypeString, Severity: contracts.Blocking}},
				},
			},
			"deploy": {
				Entry: contracts.PhaseEntryContract{
					Required: []contracts.FieldSpec{{Name: "region", Type: contracts.TypeString, Severity: contracts.Blocking}},
				},
			},
		},
	}

	It("finds no orphan when a prior phase's exit provides the field", func() {
		details := checker.CheckFieldReadiness(contract, nil)
		var forBuild []preflight.FieldReadinessDetail
		for _, d := range details {
			if d.Phase == "build" {
				forBuild = append(forBuild, d)
			}
		}
		Expect(forBuild).To(BeEmpty())
	})

	It("reports an orphan when nothing provides the required field", func() {
		details := checker.CheckFieldReadiness(contract, nil)
		found := false
		for _, d := range details {
			if d.Phase == "deploy" && d.Field == "region" {
				found = true
			}
		}
		Expect(found).To(BeTrue())
	})

	It("treats a seed field as satisfying the requirement", func() {
		details := checker.CheckFieldReadiness(contract, []string{"region"})
		for _, d := range details {
			Expect(d.Field).NotTo(Equal("region"))
		}
	})
})
