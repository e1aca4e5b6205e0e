// Package scheduler expands a submission's judge tasks into an
// execution order, enforces the dependency and file-dependency graphs,
// and drives task execution through the worker pool.
//
// This is the Go-idiom replacement for the original C++
// programming_judger's verify()/distribute()/judge() trio: instead of
// virtual dispatch over a judger base class, Scheduler is a plain struct
// parameterized by a small Executor interface, and the DAG itself is
// represented as backward-only integer indices rather than pointers,
// which makes Verify a linear scan instead of a graph walk.
package scheduler

import (
	"context"
	"math/big"

	"fuzoj/internal/judge/model"
	"fuzoj/internal/judge/sandbox/result"
	"fuzoj/internal/judge/workerpool"
	appErr "fuzoj/pkg/errors"
	"fuzoj/pkg/utils/logger"

	"go.uber.org/zap"
)

// Executor runs exactly one judge task to completion. overlayDirs is the
// file-dependency overlay stack, root-first, already resolved by the
// scheduler; an empty slice means the task has no file dependency.
type Executor interface {
	Run(ctx context.Context, sub model.Submission, task model.JudgeTask, overlayDirs []string) (model.JudgeTaskResult, error)
}

// Scheduler verifies, distributes and processes one submission's tasks.
type Scheduler struct {
	pool *workerpool.Pool
	exec Executor
}

// New creates a Scheduler backed by the given worker pool and executor.
func New(pool *workerpool.Pool, exec Executor) *Scheduler {
	return &Scheduler{pool: pool, exec: exec}
}

// Verify checks a submission's task graph against every admission
// invariant programming_judger::verify() enforces before a submission is
// ever dispatched: the graph is a DAG by construction (every DependsOn
// and FileDependsOn index is either -1 or strictly less than the task's
// own index, and Cores is positive), the submission has an entry task
// (some task with DependsOn == -1), a random task is only admitted when
// the problem supplies both a standard solution and a generator, and the
// submission carries a user program to run at all.
func Verify(sub model.Submission) error {
	if sub.SourcePath == "" {
		return appErr.New(appErr.ValidationFailed).WithMessage("submission is missing a user program")
	}

	hasEntryTask := false
	hasRandomCase := false
	for i, t := range sub.Tasks {
		if t.Index != i {
			return appErr.New(appErr.ValidationFailed).WithMessage("task index must match its position in the list").WithDetail("index", i)
		}
		if t.DependsOn != -1 && (t.DependsOn < 0 || t.DependsOn >= i) {
			return appErr.New(appErr.CycleDetected).WithMessage("depends_on must reference an earlier task").WithDetail("index", i).WithDetail("depends_on", t.DependsOn)
		}
		if t.FileDependsOn != -1 && (t.FileDependsOn < 0 || t.FileDependsOn >= i) {
			return appErr.New(appErr.CycleDetected).WithMessage("file_depends_on must reference an earlier task").WithDetail("index", i).WithDetail("file_depends_on", t.FileDependsOn)
		}
		if t.Cores <= 0 {
			return appErr.New(appErr.ValidationFailed).WithMessage("cores must be positive").WithDetail("index", i)
		}
		if t.DependsOn == -1 {
			hasEntryTask = true
		}
		if t.IsRandom {
			hasRandomCase = true
		}
	}

	if !hasEntryTask {
		return appErr.New(appErr.ValidationFailed).WithMessage("submission has no entry test task")
	}
	if hasRandomCase && (sub.StandardSolutionPath == "" || sub.GeneratorPath == "") {
		return appErr.New(appErr.ValidationFailed).WithMessage("random test case requires both a standard solution and a generator")
	}
	return nil
}

// Distribute groups task indices into waves such that every task in a
// wave is independent of every other task in the same wave (neither
// DependsOn nor FileDependsOn crosses within a wave), while tasks in
// later waves may depend on any task in an earlier wave. Waves are
// processed in order; tasks within a wave are dispatched concurrently.
func Distribute(tasks []model.JudgeTask) [][]int {
	layer := make([]int, len(tasks))
	maxLayer := 0
	for i, t := range tasks {
		l := 0
		if t.DependsOn != -1 && layer[t.DependsOn]+1 > l {
			l = layer[t.DependsOn] + 1
		}
		if t.FileDependsOn != -1 && layer[t.FileDependsOn]+1 > l {
			l = layer[t.FileDependsOn] + 1
		}
		layer[i] = l
		if l > maxLayer {
			maxLayer = l
		}
	}
	waves := make([][]int, maxLayer+1)
	for i, l := range layer {
		waves[l] = append(waves[l], i)
	}
	return waves
}

// Process runs every task in sub.Tasks to completion, respecting the
// dependency graph: a task whose dependency is unsatisfied is recorded
// as skipped without ever reaching the executor, and that skip
// propagates to its own dependents in turn.
func (s *Scheduler) Process(ctx context.Context, sub model.Submission) ([]model.JudgeTaskResult, error) {
	if err := Verify(sub); err != nil {
		return nil, err
	}
	results := make([]model.JudgeTaskResult, len(sub.Tasks))
	waves := Distribute(sub.Tasks)

	for _, wave := range waves {
		type outcome struct {
			idx int
			res model.JudgeTaskResult
			err error
		}
		out := make(chan outcome, len(wave))
		for _, idx := range wave {
			task := sub.Tasks[idx]
			go func(idx int, task model.JudgeTask) {
				res, err := s.runOne(ctx, sub, task, results)
				out <- outcome{idx: idx, res: res, err: err}
			}(idx, task)
		}
		for range wave {
			o := <-out
			if o.err != nil {
				logger.Warn(ctx, "judge task failed", zap.Int("index", o.idx), zap.Error(o.err))
			}
			results[o.idx] = o.res
		}
	}
	return results, nil
}

func (s *Scheduler) runOne(ctx context.Context, sub model.Submission, task model.JudgeTask, results []model.JudgeTaskResult) (model.JudgeTaskResult, error) {
	if task.DependsOn != -1 {
		ancestor := results[task.DependsOn]
		if ancestor.Skipped() || !satisfies(task.DependsCond, ancestor) {
			return skippedResult(task), nil
		}
	}

	overlayDirs, err := resolveOverlay(sub.Tasks, results, task)
	if err != nil {
		return skippedResult(task), nil
	}

	if task.IsRandom && task.DependsOn != -1 && sub.Tasks[task.DependsOn].IsRandom {
		task.SubcaseID = results[task.DependsOn].SubcaseID
	}

	lease, err := s.pool.Acquire(ctx, task.Cores)
	if err != nil {
		return model.JudgeTaskResult{Index: task.Index, Status: result.StatusFailed, Verdict: result.VerdictSE}, err
	}
	defer lease.Release()

	res, err := s.exec.Run(ctx, sub, task, overlayDirs)
	if err != nil {
		return model.JudgeTaskResult{Index: task.Index, Status: result.StatusFailed, Verdict: result.VerdictSE, ErrorLog: err.Error()}, err
	}
	return res, nil
}

// skippedResult is what a task gets when it never reaches the executor
// because its DependsOn predecessor didn't satisfy depends_cond, or its
// FileDependsOn overlay couldn't be resolved: DEPENDENCY_NOT_SATISFIED,
// not a system error, and RunDir left empty so overlay resolution and
// downstream satisfies() checks both see it as never-ran.
func skippedResult(task model.JudgeTask) model.JudgeTaskResult {
	return model.JudgeTaskResult{
		Index:   task.Index,
		Status:  result.StatusFinished,
		Verdict: result.VerdictDependencyNotSatisfied,
		Score:   model.NewZeroScore(),
	}
}

// nonTimeLimitExclusions are the verdicts programming.cpp's
// NON_TIME_LIMIT dependency condition rejects; every other verdict,
// including a plain WA or RE, satisfies it.
var nonTimeLimitExclusions = map[result.Verdict]bool{
	result.VerdictSE:                        true,
	result.VerdictCompareError:               true,
	result.VerdictCE:                         true,
	result.VerdictExecutableCompilationError: true,
	result.VerdictDependencyNotSatisfied:     true,
	result.VerdictTLE:                        true,
	result.VerdictOutOfContestTime:           true,
	result.VerdictRandomGenError:             true,
}

// satisfies reports whether an ancestor task's result meets the
// dependent's depends_cond, per spec.md's three conditions and
// programming.cpp:642-654.
func satisfies(cond model.DependsCond, ancestor model.JudgeTaskResult) bool {
	switch cond {
	case model.DependsAccepted:
		return ancestor.Verdict == result.VerdictAC
	case model.DependsPartialCorrect:
		return ancestor.Verdict == result.VerdictAC || ancestor.Verdict == result.VerdictPartialCorrect
	case model.DependsNonTimeLimit:
		return !nonTimeLimitExclusions[ancestor.Verdict]
	default:
		return false
	}
}

// SumScore adds every task's score, used by callers that need a
// submission-level total outside of any subtask-weighted scheme.
func SumScore(results []model.JudgeTaskResult) *big.Rat {
	total := model.NewZeroScore()
	for _, r := range results {
		if r.Score != nil {
			total.Add(total, r.Score)
		}
	}
	return total
}
