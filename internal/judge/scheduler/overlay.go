package scheduler

import (
	"fuzoj/internal/judge/model"
	appErr "fuzoj/pkg/errors"
)

// resolveOverlay walks a task's file_depends_on chain and returns the
// ancestor run directories, root-first, so the executor can mount them
// as a base-directory overlay stack beneath the task's own workspace.
// file_depends_on is deliberately independent of depends_on: a task can
// share a predecessor's working directory (to make re-used random data
// or an already-extracted archive visible) without that predecessor's
// verdict gating whether this task runs at all.
//
// If any task in the chain never produced a run directory because it
// was itself skipped, the whole chain is unsatisfiable and the caller
// must skip this task too (Open Question 2 in DESIGN.md): a task cannot
// overlay onto a directory that was never created.
func resolveOverlay(tasks []model.JudgeTask, results []model.JudgeTaskResult, task model.JudgeTask) ([]string, error) {
	if task.FileDependsOn == -1 {
		return nil, nil
	}
	var chain []string
	idx := task.FileDependsOn
	for idx != -1 {
		ancestor := results[idx]
		if ancestor.Skipped() || ancestor.RunDir == "" {
			return nil, appErr.New(appErr.DependencyNotSatisfied).
				WithMessage("file dependency ancestor produced no run directory").
				WithDetail("index", task.Index).
				WithDetail("file_depends_on", idx)
		}
		chain = append(chain, ancestor.RunDir)
		idx = tasks[idx].FileDependsOn
	}
	// chain was built from nearest ancestor outward; reverse to root-first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
