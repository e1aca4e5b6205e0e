//go:build linux

package engine

import (
	"os"
	"path/filepath"
	"syscall"
	"time"

	"fuzoj/internal/judge/sandbox/spec"
)

// resolveHostPath turns a run spec's (possibly relative) output path into
// an absolute path under the task's work directory, matching where the
// sandbox helper actually wrote the file.
func resolveHostPath(path string, runSpec spec.RunSpec) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(runSpec.WorkDir, path)
}

func stdoutSizeKB(path string) int64 {
	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size() / 1024
}

func readLimitedFile(path string, maxBytes int64) string {
	if path == "" || maxBytes <= 0 {
		return ""
	}
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	buf := make([]byte, maxBytes)
	n, _ := f.Read(buf)
	return string(buf[:n])
}

func durationFromMs(ms int64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func cpuTimeMs(state *os.ProcessState) int64 {
	if state == nil {
		return 0
	}
	if usage, ok := state.SysUsage().(*syscall.Rusage); ok {
		userMs := usage.Utime.Sec*1000 + int64(usage.Utime.Usec)/1000
		sysMs := usage.Stime.Sec*1000 + int64(usage.Stime.Usec)/1000
		return userMs + sysMs
	}
	return state.UserTime().Milliseconds() + state.SystemTime().Milliseconds()
}
