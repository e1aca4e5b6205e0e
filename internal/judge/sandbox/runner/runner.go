package runner

import (
	"context"

	"fuzoj/internal/judge/sandbox/profile"
	"fuzoj/internal/judge/sandbox/result"
	"fuzoj/internal/judge/sandbox/spec"
)

// IOConfig describes how the program reads input and writes output.
// Mirrors sandbox.IOConfig; kept local so the runner package doesn't
// import its own caller.
type IOConfig struct {
	Mode           string
	InputFileName  string
	OutputFileName string
}

// CheckerSpec describes the special judge binary and its arguments.
type CheckerSpec struct {
	BinaryPath string
	Args       []string
	Env        []string
	Limits     spec.ResourceLimit
}

// CompileRequest describes one compilation task.
type CompileRequest struct {
	SubmissionID      string
	Language          profile.LanguageSpec
	Profile           profile.TaskProfile
	WorkDir           string
	SourcePath        string
	ExtraCompileFlags []string
}

// RunRequest describes one execution task.
type RunRequest struct {
	SubmissionID   string
	TestID         string
	Language       profile.LanguageSpec
	Profile        profile.TaskProfile
	WorkDir        string
	IOConfig       IOConfig
	InputPath      string
	AnswerPath     string
	Score          int
	SubtaskID      string
	Checker        *CheckerSpec
	CheckerProfile *profile.TaskProfile
}

// Runner orchestrates compile and run workflows.
type Runner interface {
	Compile(ctx context.Context, req CompileRequest) (result.CompileResult, error)
	Run(ctx context.Context, req RunRequest) (result.TestcaseResult, error)
}

// CppCompileRequest specializes CompileRequest for the C++ runner entrypoint.
type CppCompileRequest struct {
	CompileRequest
}

// CppRunRequest specializes RunRequest for the C++ runner entrypoint.
type CppRunRequest struct {
	RunRequest
}
