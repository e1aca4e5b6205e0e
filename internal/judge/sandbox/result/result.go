// Package result defines sandbox execution results and verdict mapping.
package result

import "math/big"

// JudgeStatus represents the lifecycle state of a submission.
type JudgeStatus string

const (
	StatusPending  JudgeStatus = "Pending"
	StatusRunning  JudgeStatus = "Running"
	StatusFinished JudgeStatus = "Finished"
	StatusFailed   JudgeStatus = "Failed"
)

// Verdict represents the final outcome of execution.
type Verdict string

const (
	// VerdictCompiling is a transient lifecycle state, not a final verdict:
	// the compile task is still running. See programming.cpp:299-300.
	VerdictCompiling Verdict = "COMPILING"

	VerdictAC      Verdict = "AC"
	VerdictWA      Verdict = "WA"
	VerdictTLE     Verdict = "TLE"
	VerdictMLE     Verdict = "MLE"
	VerdictOLE     Verdict = "OLE"
	VerdictRE      Verdict = "RE"
	VerdictCE      Verdict = "CE"
	VerdictSE      Verdict = "SE"

	// VerdictPartialCorrect is produced when the checker exits with code
	// 2; the fraction it leaves in score.txt is parsed by the runner's
	// readScoreFile into TestcaseResult.Fraction.
	VerdictPartialCorrect Verdict = "PARTIAL_CORRECT"
	// VerdictPresentationError is a checker verdict distinct from WA:
	// the answer matches modulo whitespace/formatting rules.
	VerdictPresentationError Verdict = "PRESENTATION_ERROR"
	// VerdictSegmentationFault and VerdictFloatingPointError refine RE
	// with the specific signal that killed the process.
	VerdictSegmentationFault Verdict = "SEGMENTATION_FAULT"
	VerdictFloatingPointError Verdict = "FLOATING_POINT_ERROR"
	// VerdictRestrictFunction is produced when the sandboxed program
	// invokes a syscall the security profile forbids.
	VerdictRestrictFunction Verdict = "RESTRICT_FUNCTION"
	// VerdictExecutableCompilationError distinguishes a checker/special
	// judge that fails to compile from the submission's own CE.
	VerdictExecutableCompilationError Verdict = "EXECUTABLE_COMPILATION_ERROR"
	// VerdictCompareError means the checker itself crashed or returned
	// an exit code the checker protocol doesn't define, as opposed to
	// reporting WA.
	VerdictCompareError Verdict = "COMPARE_ERROR"
	// VerdictDependencyNotSatisfied is surfaced on a task skipped
	// because its DependsOn predecessor didn't meet DependsCond (see
	// scheduler.satisfies), not a SYSTEM_ERROR.
	VerdictDependencyNotSatisfied Verdict = "DEPENDENCY_NOT_SATISFIED"
	// VerdictRandomGenError means the random-case generator itself
	// failed to produce input, distinct from the submission's own RE.
	VerdictRandomGenError Verdict = "RANDOM_GEN_ERROR"
	// VerdictOutOfContestTime is produced when a submission arrives
	// after the contest window a task belongs to has closed.
	VerdictOutOfContestTime Verdict = "OUT_OF_CONTEST_TIME"
)

// Terminal reports whether v is a final verdict rather than a transient
// lifecycle state like VerdictCompiling.
func (v Verdict) Terminal() bool {
	return v != VerdictCompiling && v != ""
}

// RunResult captures raw sandbox execution data.
type RunResult struct {
	ExitCode   int
	TimeMs     int64
	WallTimeMs int64
	MemoryKB   int64
	OutputKB   int64
	Stdout     string
	Stderr     string
	OomKilled  bool
}

// CompileResult contains compilation outcomes.
type CompileResult struct {
	OK       bool
	ExitCode int
	TimeMs   int64
	MemoryKB int64
	LogPath  string
	Error    string
}

// TestcaseResult contains per-testcase execution outcomes.
type TestcaseResult struct {
	TestID         string
	Verdict        Verdict
	TimeMs         int64
	MemoryKB       int64
	OutputKB       int64
	ExitCode       int
	RuntimeLogPath string
	CheckerLogPath string
	Stdout         string
	Stderr         string
	Score          int
	// Fraction is the checker-reported numerator/denominator backing a
	// PARTIAL_CORRECT verdict, parsed from score.txt; nil for every other
	// verdict.
	Fraction  *big.Rat
	SubtaskID string
}

// SummaryStat captures aggregate statistics across testcases.
type SummaryStat struct {
	TotalTimeMs  int64
	MaxMemoryKB  int64
	TotalScore   int
	FailedTestID string
}

// Timestamps captures submission lifecycle timestamps.
type Timestamps struct {
	ReceivedAt int64
	FinishedAt int64
}

// JudgeResult is the unified response structure for a submission.
type JudgeResult struct {
	SubmissionID string
	Status       JudgeStatus
	Verdict      Verdict
	Score        int
	Language     string
	Compile      *CompileResult
	Tests        []TestcaseResult
	Summary      SummaryStat
	Timestamps   Timestamps
}
