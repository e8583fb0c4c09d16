package project

import (
	"github.com/nibzard/atomgraph-go/internal/errs"
	"github.com/nibzard/atomgraph-go/internal/task"
)

// BatchResult is the outcome of one item of a batch operation.
type BatchResult struct {
	ID   string
	Task *task.Task // resulting task, when the item succeeded and one remains
	Err  error
}

// OK reports whether the item succeeded.
func (r BatchResult) OK() bool { return r.Err == nil }

// Failed counts the failed items.
func Failed(results []BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// TransitionBatch moves each task to status to. Failures are reported per
// item and do not stop the batch.
func (p *Project) TransitionBatch(ids []string, to task.Status) []BatchResult {
	results := make([]BatchResult, 0, len(ids))
	for _, id := range ids {
		t, err := p.Transition(id, to)
		results = append(results, BatchResult{ID: id, Task: t, Err: err})
	}
	return results
}

// RemoveBatch deletes each task. Without confirm the whole batch is refused
// before anything is touched; otherwise failures are reported per item.
func (p *Project) RemoveBatch(ids []string, confirm bool) ([]BatchResult, error) {
	if !confirm {
		return nil, errs.Invalid("project.remove_batch", "", "confirm",
			"refusing to remove %d tasks without confirmation", len(ids))
	}
	results := make([]BatchResult, 0, len(ids))
	for _, id := range ids {
		_, err := p.Remove(id)
		results = append(results, BatchResult{ID: id, Err: err})
	}
	p.logger.Info("batch removal", "requested", len(ids), "failed", Failed(results))
	return results, nil
}
