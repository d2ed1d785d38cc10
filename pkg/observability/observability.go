// Package observability implements the Alert Evaluator & Health Scorer
// (component 14 of spec.md §4.12): fuses per-layer validation counts into
// sub-scores and an overall health signal, then runs a declarative rule
// list against those scores to raise alerts.
package observability

import (
	"context"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/slack-go/slack"

	"github.com/neil-the-nowledgeable/contextcore/internal/errkit"
	"github.com/neil-the-nowledgeable/contextcore/pkg/otelemit"
)

// Metrics is the raw per-layer tally a run's guard, preflight checker, and
// post-execution validator accumulate, the scorer's only input.
type Metrics struct {
	ChainsIntact      int
	ChainsTotal       int
	PassedPhases      int
	TotalPhases       int
	PreflightCritical int
	PreflightWarning  int
	LateCorruption    int
	LateHealing       int
}

// Scores holds the sub-scores and overall health score spec.md §4.12
// defines.
type Scores struct {
	Completeness       float64
	Boundary           float64
	Preflight          float64
	DiscrepancyPenalty float64
	Overall            float64
}

// Score computes the sub-scores and clamped overall score for m.
func Score(m Metrics) Scores {
	completeness := ratioPercent(m.ChainsIntact, m.ChainsTotal)
	boundary := ratioPercent(m.PassedPhases, m.TotalPhases)
	preflight := math.Max(0, 100-10*float64(m.PreflightCritical)-2*float64(m.PreflightWarning))
	penalty := 5*float64(m.LateCorruption) + 2*float64(m.LateHealing)
	overall := 0.45*completeness + 0.35*boundary + 0.20*preflight - penalty
	overall = math.Max(0, math.Min(100, overall))

	return Scores{
		Completeness:       completeness,
		Boundary:           boundary,
		Preflight:          preflight,
		DiscrepancyPenalty: penalty,
		Overall:            overall,
	}
}

func ratioPercent(n, total int) float64 {
	if total == 0 {
		return 100
	}
	return 100 * float64(n) / float64(total)
}

// AlertRule names a metric to watch, a threshold, and the severity to raise
// when the rule's Evaluate predicate fires.
type AlertRule struct {
	Name     string
	Severity errkit.Severity
	Evaluate func(Scores, Metrics) bool
}

// DefaultRules returns spec.md §4.12's four default rules: low
// completeness, any blocking boundary failure, any critical preflight
// finding, any late-corruption discrepancy.
func DefaultRules() []AlertRule {
	return []AlertRule{
		{
			Name:     "low_completeness",
			Severity: errkit.Warning,
			Evaluate: func(s Scores, m Metrics) bool { return s.Completeness < 80 },
		},
		{
			Name:     "boundary_blocking_failure",
			Severity: errkit.Blocking,
			Evaluate: func(s Scores, m Metrics) bool { return m.PassedPhases < m.TotalPhases },
		},
		{
			Name:     "preflight_critical",
			Severity: errkit.Blocking,
			Evaluate: func(s Scores, m Metrics) bool { return m.PreflightCritical > 0 },
		},
		{
			Name:     "late_corruption",
			Severity: errkit.Blocking,
			Evaluate: func(s Scores, m Metrics) bool { return m.LateCorruption > 0 },
		},
	}
}

// Alert is one fired AlertRule against a specific scoring snapshot.
type Alert struct {
	RuleName string
	Severity errkit.Severity
	Message  string
}

// Sink delivers a fired Alert somewhere. LogSink emits alerts as span
// events; SlackSink is the optional production sink. An Evaluator built
// with a nil Sink still returns fired alerts but delivers none.
type Sink interface {
	Send(ctx context.Context, a Alert) error
}

// LogSink logs alerts via the Evaluator's otelemit.Emitter fallback path;
// it never returns an error.
type LogSink struct {
	emit *otelemit.Emitter
}

// NewLogSink builds a LogSink over emit.
func NewLogSink(emit *otelemit.Emitter) *LogSink { return &LogSink{emit: emit} }

// Send emits the alert as a context.observability.alert span event.
func (s *LogSink) Send(ctx context.Context, a Alert) error {
	if s.emit != nil {
		s.emit.Emit(ctx, otelemit.ContextObservabilityAlert,
			otelemit.String("observability.rule", a.RuleName),
			otelemit.String("observability.severity", string(a.Severity)),
			otelemit.String("observability.message", a.Message))
	}
	return nil
}

// SlackSink posts a fired alert to a Slack incoming webhook.
type SlackSink struct {
	webhookURL string
}

// NewSlackSink builds a SlackSink posting to webhookURL.
func NewSlackSink(webhookURL string) *SlackSink {
	return &SlackSink{webhookURL: webhookURL}
}

// Send posts a over a Slack incoming webhook.
func (s *SlackSink) Send(_ context.Context, a Alert) error {
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("[%s] %s: %s", a.Severity, a.RuleName, a.Message),
	}
	return slack.PostWebhook(s.webhookURL, msg)
}

// Evaluator scores runs and evaluates alert rules, exposing the scores as
// Prometheus gauges per pipeline.
type Evaluator struct {
	rules []AlertRule
	emit  *otelemit.Emitter
	sink  Sink

	overallGauge     *prometheus.GaugeVec
	completenessGauge *prometheus.GaugeVec
	boundaryGauge    *prometheus.GaugeVec
	preflightGauge   *prometheus.GaugeVec
}

// NewEvaluator builds an Evaluator with the given alert rules and delivery
// sink, registering its gauges against reg. With a nil reg the gauges are
// still set but registered with no registry.
func NewEvaluator(rules []AlertRule, emit *otelemit.Emitter, sink Sink, reg prometheus.Registerer) *Evaluator {
	factory := promauto.With(reg)
	return &Evaluator{
		rules: rules,
		emit:  emit,
		sink:  sink,
		overallGauge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "contextcore_health_overall",
			Help: "Overall context-propagation health score (0-100) for a pipeline run.",
		}, []string{"pipeline_id"}),
		completenessGauge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "contextcore_health_completeness",
			Help: "Chain-completeness sub-score (0-100) for a pipeline run.",
		}, []string{"pipeline_id"}),
		boundaryGauge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "contextcore_health_boundary",
			Help: "Boundary-pass sub-score (0-100) for a pipeline run.",
		}, []string{"pipeline_id"}),
		preflightGauge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "contextcore_health_preflight",
			Help: "Preflight sub-score (0-100) for a pipeline run.",
		}, []string{"pipeline_id"}),
	}
}

// Evaluate scores m, records the gauges for pipelineID, fires any matching
// alert rules through the sink, and returns both.
func (e *Evaluator) Evaluate(ctx context.Context, pipelineID string, m Metrics) (Scores, []Alert) {
	scores := Score(m)

	e.overallGauge.WithLabelValues(pipelineID).Set(scores.Overall)
	e.completenessGauge.WithLabelValues(pipelineID).Set(scores.Completeness)
	e.boundaryGauge.WithLabelValues(pipelineID).Set(scores.Boundary)
	e.preflightGauge.WithLabelValues(pipelineID).Set(scores.Preflight)

	if e.emit != nil {
		e.emit.Emit(ctx, otelemit.ContextObservabilityHealth,
			otelemit.String("observability.pipeline_id", pipelineID),
			otelemit.Float("observability.overall", scores.Overall))
	}

	var alerts []Alert
	for _, rule := range e.rules {
		if !rule.Evaluate(scores, m) {
			continue
		}
		a := Alert{
			RuleName: rule.Name,
			Severity: rule.Severity,
			Message:  fmt.Sprintf("rule %q fired for pipeline %q (overall=%.1f)", rule.Name, pipelineID, scores.Overall),
		}
		alerts = append(alerts, a)
		if e.sink != nil {
			_ = e.sink.Send(ctx, a)
		}
	}

	if e.emit != nil {
		e.emit.Emit(ctx, otelemit.ContextObservabilityAlertEvaluation,
			otelemit.String("observability.pipeline_id", pipelineID),
			otelemit.Int("observability.alert_count", len(alerts)))
	}

	return scores, alerts
}
