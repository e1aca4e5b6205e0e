package program_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fuzoj/internal/judge/program"
)

func TestSourceCodeFetchWritesSourceAndAssistFiles(t *testing.T) {
	dstDir := t.TempDir()
	sc := program.SourceCode{
		Language:   "cpp",
		EntryPoint: "framework.cpp",
		SourceFiles: []program.Asset{
			program.TextAsset{FileName: "framework.cpp", Text: "// framework\n"},
		},
		AssistFiles: []program.Asset{
			program.TextAsset{FileName: "source.cpp", Text: "// included by framework\n"},
		},
	}
	if err := sc.Fetch(context.Background(), dstDir); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	for _, name := range []string{"framework.cpp", "source.cpp"} {
		if _, err := os.Stat(filepath.Join(dstDir, name)); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}
	want := filepath.Join(dstDir, "framework.cpp")
	if got := sc.EntryPath(dstDir); got != want {
		t.Fatalf("EntryPath() = %q, want %q", got, want)
	}
}

func TestSourceCodeEntryPathFallsBackToFirstSourceFile(t *testing.T) {
	sc := program.SourceCode{
		SourceFiles: []program.Asset{
			program.TextAsset{FileName: "main.cpp"},
		},
	}
	dir := "/work/sub"
	want := filepath.Join(dir, "main.cpp")
	if got := sc.EntryPath(dir); got != want {
		t.Fatalf("EntryPath() = %q, want %q", got, want)
	}
}

func TestGitRepositoryEntryPathUsesEntryPoint(t *testing.T) {
	repo := program.GitRepository{URL: "https://example.com/user/repo.git", EntryPoint: "main.cpp"}
	dir := "/work/repo"
	want := filepath.Join(dir, "main.cpp")
	if got := repo.EntryPath(dir); got != want {
		t.Fatalf("EntryPath() = %q, want %q", got, want)
	}
}

func TestGitRepositoryFetchFailsForUnreachableRemote(t *testing.T) {
	repo := program.GitRepository{URL: "https://127.0.0.1:1/does-not-exist.git", EntryPoint: "main.cpp"}
	if err := repo.Fetch(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected error cloning an unreachable remote")
	}
}
