package program

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	appErr "fuzoj/pkg/errors"
)

// Program assembles a submission's files into a working directory ready
// for the sandbox to compile, the Go-idiom replacement for program.hpp's
// fetch()/get_run_path() virtual pair: Fetch materializes source, and
// EntryPath returns the path of the entry source file under dir. No
// build step runs here; compilation is left to the sandbox.
type Program interface {
	// Fetch writes every file the program needs under dir, cloning or
	// downloading as required.
	Fetch(ctx context.Context, dir string) error
	// EntryPath returns the compiler/runner's expected entry file, e.g.
	// the one named source file a single-file submission boils down to.
	EntryPath(dir string) string
}

// SourceCode is a multi-file submission: one or more compiled source
// files plus assist files that must be present on disk but never handed
// to the compiler directly (ground: program.hpp's submission_program +
// source_code, source.cpp being framework-included by framework.cpp
// rather than compiled standalone).
type SourceCode struct {
	Language     string
	EntryPoint   string
	SourceFiles  []Asset
	AssistFiles  []Asset
	CompileFlags []string
}

func (s SourceCode) Fetch(ctx context.Context, dir string) error {
	for _, a := range append(append([]Asset{}, s.SourceFiles...), s.AssistFiles...) {
		if err := a.Fetch(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}

func (s SourceCode) EntryPath(dir string) string {
	if s.EntryPoint != "" {
		return filepath.Join(dir, s.EntryPoint)
	}
	if len(s.SourceFiles) > 0 {
		return filepath.Join(dir, s.SourceFiles[0].Name())
	}
	return dir
}

// GitRepository clones a submission from a Git remote instead of an
// object-storage upload, with optional override files applied after
// clone — ground: program.hpp's git_repository ("学生可能会修改 Git 仓库
// 内部分不应该被修改的文件，此时通过文件覆盖恢复文件").
type GitRepository struct {
	URL       string
	Commit    string
	Username  string
	Password  string
	// EntryPoint names the single source file the compiler should use,
	// relative to the repository root. A repository that instead builds
	// via its own build.sh/Makefile (program.hpp's default when no
	// entry point is given) is out of scope here: the sandbox's compile
	// pipeline compiles one named source file, not an arbitrary build
	// script (see runner.CompileRequest.SourcePath / writeSourceFile).
	EntryPoint string
	Overrides  []Asset
}

func (g GitRepository) Fetch(ctx context.Context, dir string) error {
	url := g.authenticatedURL()
	args := []string{"clone", "--depth=1", url, dir}
	cmd := exec.CommandContext(ctx, "git", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return appErr.Wrapf(err, appErr.JudgeSystemError, "git clone failed: %s", strings.TrimSpace(string(out)))
	}
	if g.Commit != "" {
		checkout := exec.CommandContext(ctx, "git", "-C", dir, "checkout", g.Commit)
		if out, err := checkout.CombinedOutput(); err != nil {
			return appErr.Wrapf(err, appErr.JudgeSystemError, "git checkout failed: %s", strings.TrimSpace(string(out)))
		}
	}
	for _, a := range g.Overrides {
		if err := a.Fetch(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}

func (g GitRepository) EntryPath(dir string) string {
	if g.EntryPoint != "" {
		return filepath.Join(dir, g.EntryPoint)
	}
	return dir
}

func (g GitRepository) authenticatedURL() string {
	if g.Username == "" && g.Password == "" {
		return g.URL
	}
	scheme, rest, ok := strings.Cut(g.URL, "://")
	if !ok {
		return g.URL
	}
	return scheme + "://" + g.Username + ":" + g.Password + "@" + rest
}
