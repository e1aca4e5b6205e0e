package scheduler

import (
	"testing"

	"fuzoj/internal/judge/model"
	"fuzoj/internal/judge/sandbox/result"
)

func baseSubmission(tasks ...model.JudgeTask) model.Submission {
	return model.Submission{SourcePath: "/work/main.cpp", Tasks: tasks}
}

func TestVerifyRejectsMissingUserProgram(t *testing.T) {
	sub := model.Submission{Tasks: []model.JudgeTask{{Index: 0, DependsOn: -1, FileDependsOn: -1, Cores: 1}}}
	if err := Verify(sub); err == nil {
		t.Fatal("want error for submission with no SourcePath")
	}
}

func TestVerifyRejectsNoEntryTask(t *testing.T) {
	// An empty task list can never set hasEntryTask; any non-empty list
	// forces task 0's DependsOn to -1 to pass the backward-reference
	// check, so this is the only way to exercise the entry-task rule in
	// isolation.
	sub := baseSubmission()
	if err := Verify(sub); err == nil {
		t.Fatal("want error for a submission with no entry test task")
	}
}

func TestVerifyRejectsRandomTaskWithoutStandardAssets(t *testing.T) {
	sub := baseSubmission(model.JudgeTask{Index: 0, DependsOn: -1, FileDependsOn: -1, Cores: 1, IsRandom: true})
	if err := Verify(sub); err == nil {
		t.Fatal("want error for a random task with no standard solution/generator")
	}

	sub.StandardSolutionPath = "/cache/standard/run"
	sub.GeneratorPath = "/cache/random/run"
	if err := Verify(sub); err != nil {
		t.Fatalf("Verify() = %v, want nil once standard assets are supplied", err)
	}
}

func TestVerifyRejectsForwardDependency(t *testing.T) {
	sub := baseSubmission(
		model.JudgeTask{Index: 0, DependsOn: 1, FileDependsOn: -1, Cores: 1},
		model.JudgeTask{Index: 1, DependsOn: -1, FileDependsOn: -1, Cores: 1},
	)
	if err := Verify(sub); err == nil {
		t.Fatal("want error for depends_on pointing forward")
	}
}

func TestSatisfiesPartialCorrectAcceptsAcceptedOrPartial(t *testing.T) {
	cases := []struct {
		verdict result.Verdict
		want    bool
	}{
		{result.VerdictAC, true},
		{result.VerdictPartialCorrect, true},
		{result.VerdictWA, false},
	}
	for _, c := range cases {
		got := satisfies(model.DependsPartialCorrect, model.JudgeTaskResult{Verdict: c.verdict})
		if got != c.want {
			t.Errorf("satisfies(DependsPartialCorrect, %v) = %v, want %v", c.verdict, got, c.want)
		}
	}
}

func TestSatisfiesNonTimeLimitExcludesOnlyTheSpecSet(t *testing.T) {
	cases := []struct {
		verdict result.Verdict
		want    bool
	}{
		{result.VerdictWA, true},
		{result.VerdictRE, true},
		{result.VerdictMLE, true},
		{result.VerdictOLE, true},
		{result.VerdictSE, false},
		{result.VerdictTLE, false},
		{result.VerdictCE, false},
		{result.VerdictCompareError, false},
		{result.VerdictDependencyNotSatisfied, false},
		{result.VerdictOutOfContestTime, false},
		{result.VerdictRandomGenError, false},
	}
	for _, c := range cases {
		got := satisfies(model.DependsNonTimeLimit, model.JudgeTaskResult{Verdict: c.verdict})
		if got != c.want {
			t.Errorf("satisfies(DependsNonTimeLimit, %v) = %v, want %v", c.verdict, got, c.want)
		}
	}
}

func TestSkippedResultIsDependencyNotSatisfied(t *testing.T) {
	res := skippedResult(model.JudgeTask{Index: 3})
	if !res.Skipped() {
		t.Fatal("skippedResult() should report Skipped() == true")
	}
	if res.Verdict != result.VerdictDependencyNotSatisfied {
		t.Fatalf("Verdict = %v, want DEPENDENCY_NOT_SATISFIED", res.Verdict)
	}
	if res.RunDir != "" {
		t.Fatalf("RunDir = %q, want empty so overlay resolution treats it as never-ran", res.RunDir)
	}
}
