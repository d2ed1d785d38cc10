package guard_test

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/neil-the-nowledgeable/contextcore/internal/errkit"
	"github.com/neil-the-nowledgeable/contextcore/pkg/contracts"
	"github.com/neil-the-nowledgeable/contextcore/pkg/guard"
	"github.com/neil-the-nowledgeable/contextcore/pkg/otelemit"
)

func TestGuard(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Runtime Boundary Guard Suite")
}

var propagationContract = contracts.ContextContract{
	PipelineID: "my-pipe",
	Phases: map[string]contracts.PhaseContract{
		"plan": {
			Exit: contracts.PhaseExitContract{
				Required: []contracts.FieldSpec{{Name: "domain", Type: contracts.TypeString, Severity: contracts.Blocking}},
			},
		},
		"build": {
			Entry: contracts.PhaseEntryContract{
				Enrichment: []contracts.FieldSpec{{Name: "domain", Type: contracts.TypeString, Severity: contracts.Warning, Default: "unknown"}},
			},
		},
	},
}

var _ = Describe("Guard in strict mode", func() {
	It("returns a BoundaryViolationError on a blocking exit failure", func() {
		g := guard.New(guard.Strict, logr.Discard(), otelemit.New(logr.Discard()), propagationContract)
		_, err := g.ExitPhase(context.Background(), "plan", map[string]any{})
		Expect(err).To(HaveOccurred())
		var bve *errkit.BoundaryViolationError
		Expect(err).To(BeAssignableToTypeOf(bve))
	})

	It("passes cleanly when the required field is present", func() {
		g := guard.New(guard.Strict, logr.Discard(), otelemit.New(logr.Discard()), propagationContract)
		_, err := g.ExitPhase(context.Background(), "plan", map[string]any{"domain": "payments"})
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("Guard in permissive mode", func() {
	It("applies enrichment defaults and does not error on a blocking violation", func() {
		g := guard.New(guard.Permissive, logr.Discard(), otelemit.New(logr.Discard()), propagationContract)
		data := map[string]any{}
		_, err := g.EnterPhase(context.Background(), "build", data)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(HaveKeyWithValue("domain", "unknown"))

		_, err = g.ExitPhase(context.Background(), "plan", map[string]any{})
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("Guard in audit mode", func() {
	It("computes but does not apply enrichment defaults", func() {
		g := guard.New(guard.Audit, logr.Discard(), otelemit.New(logr.Discard()), propagationContract)
		data := map[string]any{}
		_, err := g.EnterPhase(context.Background(), "build", data)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).NotTo(HaveKey("domain"))
	})
})

var _ = Describe("Guard.Summary", func() {
	It("marks the run failed when any exited phase had a blocking violation", func() {
		g := guard.New(guard.Permissive, logr.Discard(), otelemit.New(logr.Discard()), propagationContract)
		_, _ = g.ExitPhase(context.Background(), "plan", map[string]any{})
		summary := g.Summary()
		Expect(summary.Passed).To(BeFalse())
		Expect(summary.Phases).To(HaveLen(1))
	})

	It("marks the run passed when every exited phase was clean", func() {
		g := guard.New(guard.Permissive, logr.Discard(), otelemit.New(logr.Discard()), propagationContract)
		_, _ = g.ExitPhase(context.Background(), "plan", map[string]any{"domain": "payments"})
		summary := g.Summary()
		Expect(summary.Passed).To(BeTrue())
	})
})

var _ = Describe("Guard.Cancel", func() {
	It("rejects further boundary calls after cancellation", func() {
		g := guard.New(guard.Permissive, logr.Discard(), otelemit.New(logr.Discard()), propagationContract)
		g.Cancel()
		Expect(g.Cancelled()).To(BeTrue())
		_, err := g.EnterPhase(context.Background(), "build", map[string]any{})
		Expect(err).To(HaveOccurred())
	})
})
