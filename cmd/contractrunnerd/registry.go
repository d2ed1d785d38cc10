package main

import (
	"sync"

	"github.com/neil-the-nowledgeable/contextcore/pkg/guard"
	"github.com/neil-the-nowledgeable/contextcore/pkg/observability"
	"github.com/neil-the-nowledgeable/contextcore/pkg/regression"
)

// runRecord is the last recorded outcome for one pipeline: its boundary
// guard summary, health scores, and (if a regression gate ran) gate
// result.
type runRecord struct {
	Summary guard.WorkflowRunSummary
	Scores  observability.Scores
	Gate    *regression.GateResult
}

// registry is a process-wide, read-mostly store of each pipeline's most
// recent run outcome. The ops HTTP surface only reads from it; whatever
// embeds the guard in its own workflow runner is responsible for calling
// Record after each run completes.
type registry struct {
	mu     sync.RWMutex
	byPipe map[string]runRecord
}

func newRegistry() *registry {
	return &registry{byPipe: make(map[string]runRecord)}
}

func (r *registry) Record(pipelineID string, rec runRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPipe[pipelineID] = rec
}

func (r *registry) Get(pipelineID string) (runRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byPipe[pipelineID]
	return rec, ok
}
