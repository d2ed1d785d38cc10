// Package regression implements the Regression Gate (component 15 of
// spec.md §4.13): compares a run's scores against a persisted JSON
// baseline (spec.md §6.3) using a declarative list of threshold policies,
// producing a pass/fail GateResult.
package regression

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/neil-the-nowledgeable/contextcore/pkg/otelemit"
)

// Baseline is the persisted JSON document spec.md §6.3 describes.
type Baseline struct {
	PipelineID      string             `json:"pipeline_id"`
	CapturedAt      string             `json:"captured_at"`
	OverallScore    float64            `json:"overall_score"`
	PerLayerMetrics map[string]float64 `json:"per_layer_metrics"`
}

// LoadBaseline decodes a Baseline from r.
func LoadBaseline(r io.Reader) (Baseline, error) {
	var b Baseline
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return Baseline{}, fmt.Errorf("decode regression baseline: %w", err)
	}
	return b, nil
}

// metric reads named ("overall" or a per_layer_metrics key) off b.
func (b Baseline) metric(name string) (float64, bool) {
	if name == "overall" {
		return b.OverallScore, true
	}
	v, ok := b.PerLayerMetrics[name]
	return v, ok
}

// Policy is a gate check's threshold rule.
type Policy string

const (
	NoWorseThanBaseline Policy = "no_worse_than_baseline"
	AbsoluteValue       Policy = ">=absolute_value"
	BreakingChangeCount Policy = "breaking_change_count==0"
)

// GateCheck declares one threshold policy against one metric.
type GateCheck struct {
	Name      string
	Policy    Policy
	Metric    string // "overall" or a per_layer_metrics key; unused by BreakingChangeCount
	Threshold float64
}

// CheckDetail is one GateCheck's evaluated outcome.
type CheckDetail struct {
	Name     string
	Passed   bool
	Baseline float64
	Current  float64
	Detail   string
}

// GateResult is the aggregate outcome of running every declared GateCheck.
type GateResult struct {
	Passed         bool
	FailedChecks   []string
	PerCheckDetail []CheckDetail
}

// Gate evaluates a current run's metrics against a baseline.
type Gate struct {
	baseline Baseline
	checks   []GateCheck
	emit     *otelemit.Emitter
}

// NewGate builds a Gate comparing future runs against baseline using
// checks.
func NewGate(baseline Baseline, checks []GateCheck, emit *otelemit.Emitter) *Gate {
	return &Gate{baseline: baseline, checks: checks, emit: emit}
}

// Evaluate runs every declared GateCheck against current and
// breakingChangeCount (the number of schema-compatibility breaking changes
// detected this run).
func (g *Gate) Evaluate(ctx context.Context, current Baseline, breakingChangeCount int) GateResult {
	result := GateResult{Passed: true}

	for _, check := range g.checks {
		detail := g.evaluateCheck(check, current, breakingChangeCount)
		result.PerCheckDetail = append(result.PerCheckDetail, detail)
		if !detail.Passed {
			result.Passed = false
			result.FailedChecks = append(result.FailedChecks, check.Name)
		}
		if g.emit != nil {
			g.emit.Emit(ctx, otelemit.ContextRegressionGateCheck,
				otelemit.String("regression.check", check.Name),
				otelemit.Bool("regression.passed", detail.Passed))
		}
	}

	if g.emit != nil {
		g.emit.Emit(ctx, otelemit.ContextRegressionGate,
			otelemit.String("regression.pipeline_id", current.PipelineID),
			otelemit.Bool("regression.passed", result.Passed),
			otelemit.Int("regression.failed_count", len(result.FailedChecks)))
	}

	return result
}

func (g *Gate) evaluateCheck(check GateCheck, current Baseline, breakingChangeCount int) CheckDetail {
	switch check.Policy {
	case BreakingChangeCount:
		passed := breakingChangeCount == 0
		return CheckDetail{
			Name: check.Name, Passed: passed, Current: float64(breakingChangeCount),
			Detail: fmt.Sprintf("breaking_change_count=%d", breakingChangeCount),
		}

	case AbsoluteValue:
		cur, ok := current.metric(check.Metric)
		passed := ok && cur >= check.Threshold
		return CheckDetail{
			Name: check.Name, Passed: passed, Current: cur,
			Detail: fmt.Sprintf("%s=%.2f must be >= %.2f", check.Metric, cur, check.Threshold),
		}

	default: // NoWorseThanBaseline
		base, baseOK := g.baseline.metric(check.Metric)
		cur, curOK := current.metric(check.Metric)
		passed := baseOK && curOK && cur >= base
		return CheckDetail{
			Name: check.Name, Passed: passed, Baseline: base, Current: cur,
			Detail: fmt.Sprintf("%s current=%.2f must be >= baseline=%.2f", check.Metric, cur, base),
		}
	}
}

// DriftReport summarizes the signed change of every per_layer_metrics key
// (plus overall) between a baseline and the current run, emitting a
// context.regression.drift event per metric that moved.
func (g *Gate) DriftReport(ctx context.Context, current Baseline) map[string]float64 {
	drift := make(map[string]float64)
	emitOne := func(name string, base, cur float64) {
		delta := cur - base
		drift[name] = delta
		if g.emit != nil && delta != 0 {
			g.emit.Emit(ctx, otelemit.ContextRegressionDrift,
				otelemit.String("regression.metric", name),
				otelemit.Float("regression.delta", delta))
		}
	}

	emitOne("overall", g.baseline.OverallScore, current.OverallScore)
	for name, base := range g.baseline.PerLayerMetrics {
		emitOne(name, base, current.PerLayerMetrics[name])
	}
	for name, cur := range current.PerLayerMetrics {
		if _, seen := g.baseline.PerLayerMetrics[name]; !seen {
			emitOne(name, 0, cur)
		}
	}

	return drift
}
