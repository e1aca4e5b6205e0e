package cache

import (
	"context"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	appErr "fuzoj/pkg/errors"
)

// dirLock coordinates concurrent access to one cache entry directory
// using an OS advisory file lock (flock(2) under the hood), rather than
// a Redis SETNX lock: the lock must hold across independent judge
// processes sharing one cache root, and must release automatically if a
// process is killed mid-fetch, which a Redis lock only gets with a TTL
// reaper on top. See DESIGN.md, Open Question 1.
type dirLock struct {
	fl *flock.Flock
}

// newDirLock opens (without creating cache content) the lock file for a
// cache entry directory. The lock file itself lives next to the entry,
// not inside it, so a failed fetch can safely os.RemoveAll the entry
// directory without destroying the lock.
func newDirLock(entryDir string) *dirLock {
	path := filepath.Clean(entryDir) + ".lock"
	return &dirLock{fl: flock.New(path)}
}

// withLock runs fn while holding the exclusive lock, waiting up to
// maxWait for it. If the lock cannot be taken before maxWait elapses
// (another process is fetching the same entry), waited is false and fn
// is not called.
func (l *dirLock) withLock(ctx context.Context, maxWait time.Duration, fn func() error) (waited bool, err error) {
	lockCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()
	ok, err := l.fl.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil {
		return false, appErr.Wrapf(err, appErr.LockFailed, "acquire cache directory lock failed")
	}
	if !ok {
		return true, appErr.New(appErr.Timeout).WithMessage("wait for cache directory lock timed out")
	}
	defer func() {
		_ = l.fl.Unlock()
	}()
	return false, fn()
}
