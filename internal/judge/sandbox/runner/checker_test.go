package runner

import (
	"os"
	"path/filepath"
	"testing"

	"fuzoj/internal/judge/sandbox/result"
)

func TestMapCheckerVerdict(t *testing.T) {
	cases := []struct {
		exitCode int
		want     result.Verdict
	}{
		{0, result.VerdictAC},
		{1, result.VerdictWA},
		{2, result.VerdictPartialCorrect},
		{3, result.VerdictPresentationError},
		{99, result.VerdictCompareError},
	}
	for _, c := range cases {
		if got := mapCheckerVerdict(c.exitCode); got != c.want {
			t.Errorf("mapCheckerVerdict(%d) = %v, want %v", c.exitCode, got, c.want)
		}
	}
}

func TestReadScoreFileParsesNumeratorDenominator(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "score.txt")
	if err := os.WriteFile(path, []byte("3 4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	frac := readScoreFile(path)
	if frac == nil {
		t.Fatal("readScoreFile() = nil, want 3/4")
	}
	if frac.Num().Int64() != 3 || frac.Denom().Int64() != 4 {
		t.Fatalf("readScoreFile() = %v, want 3/4", frac)
	}
}

func TestReadScoreFileMissingOrMalformed(t *testing.T) {
	if frac := readScoreFile(filepath.Join(t.TempDir(), "missing.txt")); frac != nil {
		t.Fatalf("readScoreFile(missing) = %v, want nil", frac)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "score.txt")
	os.WriteFile(path, []byte("not a fraction"), 0644)
	if frac := readScoreFile(path); frac != nil {
		t.Fatalf("readScoreFile(malformed) = %v, want nil", frac)
	}
}
