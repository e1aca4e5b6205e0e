package service

import (
	"math/big"
	"testing"

	"fuzoj/internal/judge/model"
	"fuzoj/internal/judge/sandbox/result"
)

func TestBuildTaskGraph(t *testing.T) {
	m := model.Manifest{
		Tests: []model.ManifestTest{
			{TestID: "1", Score: 40},
			{TestID: "2", Score: 60, IsRandom: true},
		},
	}
	defaults := model.ResourceLimit{CPUTimeMs: 1000}

	tasks := buildTaskGraph(m, defaults)

	if len(tasks) != 3 {
		t.Fatalf("len(tasks) = %d, want 3", len(tasks))
	}
	compile := tasks[0]
	if compile.CheckScript != "compile" || compile.DependsOn != -1 || compile.FileDependsOn != -1 {
		t.Fatalf("compile task malformed: %+v", compile)
	}
	for i, task := range tasks[1:] {
		want := m.Tests[i]
		if task.TestID != want.TestID {
			t.Fatalf("task[%d].TestID = %q, want %q", i+1, task.TestID, want.TestID)
		}
		if task.DependsOn != compileTaskIndex || task.DependsCond != model.DependsAccepted {
			t.Fatalf("task[%d] does not depend on compile succeeding: %+v", i+1, task)
		}
		if task.FileDependsOn != compileTaskIndex {
			t.Fatalf("task[%d] does not overlay the compiled binary: %+v", i+1, task)
		}
		if task.SubcaseID != -1 {
			t.Fatalf("task[%d].SubcaseID = %d, want -1 (allocate)", i+1, task.SubcaseID)
		}
		if task.IsRandom != want.IsRandom {
			t.Fatalf("task[%d].IsRandom = %v, want %v", i+1, task.IsRandom, want.IsRandom)
		}
	}
}

func TestBuildFinalStatusCompileFailureShortCircuits(t *testing.T) {
	m := model.Manifest{Tests: []model.ManifestTest{{TestID: "1", Score: 100}}}
	results := []model.JudgeTaskResult{
		{Index: 0, Verdict: result.VerdictCE, ErrorLog: "syntax error"},
		{}, // never ran
	}

	status := buildFinalStatus(model.JudgeMessage{SubmissionID: "s1"}, 0, m, results)

	if status.Verdict != result.VerdictCE {
		t.Fatalf("Verdict = %v, want CE", status.Verdict)
	}
	if status.Compile == nil || status.Compile.OK {
		t.Fatalf("Compile = %+v, want a non-OK compile result", status.Compile)
	}
	if len(status.Tests) != 0 {
		t.Fatalf("Tests = %+v, want none reported after a compile failure", status.Tests)
	}
}

func TestBuildFinalStatusWorstVerdictWins(t *testing.T) {
	m := model.Manifest{
		Tests: []model.ManifestTest{
			{TestID: "1", Score: 50},
			{TestID: "2", Score: 50},
		},
	}
	results := []model.JudgeTaskResult{
		{Index: 0, Verdict: result.VerdictAC},
		{Index: 1, Verdict: result.VerdictAC, RunTime: 100, MemoryKB: 1000},
		{Index: 2, Verdict: result.VerdictWA, RunTime: 200, MemoryKB: 2000},
	}

	status := buildFinalStatus(model.JudgeMessage{SubmissionID: "s1"}, 0, m, results)

	if status.Verdict != result.VerdictWA {
		t.Fatalf("Verdict = %v, want WA (worst verdict wins)", status.Verdict)
	}
	if status.Score != 50 {
		t.Fatalf("Score = %d, want 50 (only the AC test's share of 100)", status.Score)
	}
	if status.Summary.MaxMemoryKB != 2000 || status.Summary.TotalTimeMs != 200 {
		t.Fatalf("Summary = %+v, want max across tests", status.Summary)
	}
}

func TestBuildFinalStatusSkippedTestCountsAsDependencyNotSatisfied(t *testing.T) {
	m := model.Manifest{
		Tests: []model.ManifestTest{
			{TestID: "1", Score: 100},
		},
	}
	results := []model.JudgeTaskResult{
		{Index: 0, Verdict: result.VerdictAC},
		{Index: 1, Status: result.StatusFinished, Verdict: result.VerdictDependencyNotSatisfied, Score: model.NewZeroScore()},
	}

	status := buildFinalStatus(model.JudgeMessage{SubmissionID: "s1"}, 0, m, results)

	if status.Verdict != result.VerdictDependencyNotSatisfied {
		t.Fatalf("Verdict = %v, want DEPENDENCY_NOT_SATISFIED for a skipped dependent test", status.Verdict)
	}
	if status.Score != 0 {
		t.Fatalf("Score = %d, want 0", status.Score)
	}
}

func TestBuildFinalStatusPartialCorrectEarnsFractionalScore(t *testing.T) {
	m := model.Manifest{
		Tests: []model.ManifestTest{
			{TestID: "1", Score: 100},
		},
	}
	results := []model.JudgeTaskResult{
		{Index: 0, Verdict: result.VerdictAC},
		{Index: 1, Verdict: result.VerdictPartialCorrect, Score: big.NewRat(3, 4)},
	}

	status := buildFinalStatus(model.JudgeMessage{SubmissionID: "s1"}, 0, m, results)

	if status.Verdict != result.VerdictPartialCorrect {
		t.Fatalf("Verdict = %v, want PARTIAL_CORRECT", status.Verdict)
	}
	if status.Score != 75 {
		t.Fatalf("Score = %d, want 75 (100 * 3/4)", status.Score)
	}
}

func TestResolveLanguageConfigMergesDefaultAndPerLanguageLimits(t *testing.T) {
	cfg := model.ProblemConfig{
		DefaultLimits: model.ResourceLimit{CPUTimeMs: 1000, MemoryMB: 256},
		LanguageLimits: []model.LanguageLimits{
			{LanguageID: "java", Limits: &model.ResourceLimit{CPUTimeMs: 3000}, ExtraCompileFlags: []string{"-Xss8m"}},
		},
	}

	flags, limits := resolveLanguageConfig(cfg, "java")
	if len(flags) != 1 || flags[0] != "-Xss8m" {
		t.Fatalf("flags = %v, want [-Xss8m]", flags)
	}
	if limits.CPUTimeMs != 3000 {
		t.Fatalf("CPUTimeMs = %d, want 3000 (language override)", limits.CPUTimeMs)
	}
	if limits.MemoryMB != 256 {
		t.Fatalf("MemoryMB = %d, want 256 (default, no override)", limits.MemoryMB)
	}

	_, fallback := resolveLanguageConfig(cfg, "python3")
	if fallback.CPUTimeMs != 1000 {
		t.Fatalf("fallback CPUTimeMs = %d, want default 1000", fallback.CPUTimeMs)
	}
}
