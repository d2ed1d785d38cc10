package observability_test

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/neil-the-nowledgeable/contextcore/internal/errkit"
	"github.com/neil-the-nowledgeable/contextcore/pkg/observability"
	"github.com/neil-the-nowledgeable/contextcore/pkg/otelemit"
)

func TestObservability(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Alert Evaluator & Health Scorer Suite")
}

var _ = Describe("Score", func() {
	It("computes overall 100 for a perfectly clean run", func() {
		m := observability.Metrics{ChainsIntact: 2, ChainsTotal: 2, PassedPhases: 2, TotalPhases: 2}
		scores := observability.Score(m)
		Expect(scores.Completeness).To(Equal(100.0))
		Expect(scores.Boundary).To(Equal(100.0))
		Expect(scores.Preflight).To(Equal(100.0))
		Expect(scores.Overall).To(Equal(100.0))
	})

	It("penalizes a silent default with a warning-level preflight finding", func() {
		m := observability.Metrics{ChainsIntact: 1, ChainsTotal: 1, PassedPhases: 1, TotalPhases: 1, PreflightWarning: 1}
		scores := observability.Score(m)
		Expect(scores.Preflight).To(Equal(98.0))
		Expect(scores.Overall).To(BeNumerically("~", 99.6, 0.001))
	})

	It("clamps overall at 0 when discrepancy penalties overwhelm the weighted sum", func() {
		m := observability.Metrics{ChainsIntact: 0, ChainsTotal: 2, PassedPhases: 0, TotalPhases: 2, LateCorruption: 30}
		scores := observability.Score(m)
		Expect(scores.Overall).To(Equal(0.0))
	})

	It("treats a zero-total ratio as fully intact rather than dividing by zero", func() {
		m := observability.Metrics{}
		scores := observability.Score(m)
		Expect(scores.Completeness).To(Equal(100.0))
		Expect(scores.Boundary).To(Equal(100.0))
	})
})

var _ = Describe("DefaultRules", func() {
	It("fires boundary_blocking_failure when a phase failed", func() {
		m := observability.Metrics{ChainsIntact: 1, ChainsTotal: 1, PassedPhases: 1, TotalPhases: 2}
		scores := observability.Score(m)
		fired := false
		for _, r := range observability.DefaultRules() {
			if r.Name == "boundary_blocking_failure" && r.Evaluate(scores, m) {
				fired = true
			}
		}
		Expect(fired).To(BeTrue())
	})

	It("does not fire any rule for a clean run", func() {
		m := observability.Metrics{ChainsIntact: 2, ChainsTotal: 2, PassedPhases: 2, TotalPhases: 2}
		scores := observability.Score(m)
		for _, r := range observability.DefaultRules() {
			Expect(r.Evaluate(scores, m)).To(BeFalse(), r.Name)
		}
	})
})

type capturingSink struct {
	alerts []observability.Alert
}

func (c *capturingSink) Send(_ context.Context, a observability.Alert) error {
	c.alerts = append(c.alerts, a)
	return nil
}

var _ = Describe("Evaluator.Evaluate", func() {
	It("fires and delivers alerts for a failing run", func() {
		sink := &capturingSink{}
		reg := prometheus.NewRegistry()
		eval := observability.NewEvaluator(observability.DefaultRules(), otelemit.New(logr.Discard()), sink, reg)

		m := observability.Metrics{ChainsIntact: 1, ChainsTotal: 2, PassedPhases: 1, TotalPhases: 2, PreflightCritical: 1}
		scores, alerts := eval.Evaluate(context.Background(), "my-pipe", m)

		Expect(scores.Overall).To(BeNumerically("<", 100))
		Expect(alerts).NotTo(BeEmpty())
		Expect(sink.alerts).To(HaveLen(len(alerts)))
	})

	It("fires no alerts for a clean run", func() {
		reg := prometheus.NewRegistry()
		eval := observability.NewEvaluator(observability.DefaultRules(), otelemit.New(logr.Discard()), &capturingSink{}, reg)
		m := observability.Metrics{ChainsIntact: 2, ChainsTotal: 2, PassedPhases: 2, TotalPhases: 2}
		_, alerts := eval.Evaluate(context.Background(), "my-pipe", m)
		Expect(alerts).To(BeEmpty())
	})
})

var _ = Describe("Severity constants used by AlertRule", func() {
	It("ranks blocking above warning", func() {
		Expect(errkit.Blocking.Rank()).To(BeNumerically(">", errkit.Warning.Rank()))
	})
})
