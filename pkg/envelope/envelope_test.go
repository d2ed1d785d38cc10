package envelope_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/neil-the-nowledgeable/contextcore/pkg/envelope"
)

func TestEnvelope(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Provenance Envelope Suite")
}

var _ = Describe("Envelope", func() {
	It("records field provenance and retrieves it back", func() {
		e := envelope.New()
		e.SetFieldProvenance("domain", envelope.FieldProvenance{
			OriginPhase: "plan",
			LogicalTS:   1,
			Status:      envelope.StatusPropagated,
		})

		p, ok := e.FieldProvenance("domain")
		Expect(ok).To(BeTrue())
		Expect(p.Status).To(Equal(envelope.StatusPropagated))
	})

	It("gives every recorded event a strictly greater logical timestamp than the last", func() {
		e := envelope.New()
		ev1 := e.RecordEvent("plan", "started", "2026-01-01T00:00:00Z")
		ev2 := e.RecordEvent("plan", "committed", "2026-01-01T00:00:01Z")
		Expect(ev2.LogicalTS).To(BeNumerically(">", ev1.LogicalTS))
	})

	It("accumulates budget consumption monotonically", func() {
		e := envelope.New()
		Expect(e.ConsumeBudget("latency", "plan", 10)).To(Equal(10.0))
		Expect(e.ConsumeBudget("latency", "plan", 5)).To(Equal(15.0))
		Expect(e.BudgetConsumed("latency", "plan")).To(Equal(15.0))
	})

	It("sums budget consumption for a budget id across every phase", func() {
		e := envelope.New()
		e.ConsumeBudget("latency", "plan", 10)
		e.ConsumeBudget("latency", "build", 25)
		e.ConsumeBudget("cost_usd", "plan", 100)
		Expect(e.TotalBudgetConsumed("latency")).To(Equal(35.0))
		Expect(e.TotalBudgetConsumed("cost_usd")).To(Equal(100.0))
	})

	It("stamps lineage records with a fresh logical timestamp each time", func() {
		e := envelope.New()
		r1 := e.RecordLineage("domain", envelope.TransformationRecord{Phase: "plan", Op: "ingest"})
		r2 := e.RecordLineage("domain", envelope.TransformationRecord{Phase: "build", Op: "transform"})
		Expect(r2.LogicalTS).To(BeNumerically(">", r1.LogicalTS))
		Expect(e.LineageFor("domain")).To(HaveLen(2))
	})

	It("snapshots capability sets per phase independently", func() {
		e := envelope.New()
		e.SetCapabilitySnapshot("plan", []string{"read:all", "write:self"})
		e.SetCapabilitySnapshot("build", []string{"read:all"})
		plan, planOK := e.CapabilitySnapshot("plan")
		build, buildOK := e.CapabilitySnapshot("build")
		Expect(planOK).To(BeTrue())
		Expect(buildOK).To(BeTrue())
		Expect(plan).To(ConsistOf("read:all", "write:self"))
		Expect(build).To(ConsistOf("read:all"))
	})

	It("distinguishes a phase never snapshotted from one snapshotted empty", func() {
		e := envelope.New()
		e.SetCapabilitySnapshot("plan", []string{})
		ids, ok := e.CapabilitySnapshot("plan")
		Expect(ok).To(BeTrue())
		Expect(ids).To(BeEmpty())

		_, neverSeen := e.CapabilitySnapshot("never_visited")
		Expect(neverSeen).To(BeFalse())
	})
})
