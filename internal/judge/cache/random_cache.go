package cache

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	appErr "fuzoj/pkg/errors"
)

const errorMarkerName = ".error"

// Generator produces the input/output pair for one random subcase. The
// runner implementation wires this to the generator + standard-solution
// programs; Generate must write into dir/input and dir/output.
type Generator interface {
	Generate(ctx context.Context, testcaseID string, subcaseID int, dir string) error
}

// RandomDataCache implements the random-test-data slot allocation
// algorithm: up to maxSubcases generated input/output pairs are kept per
// testcase; once that many exist, callers reuse a uniformly-picked
// existing subcase instead of generating a new one. Layout:
//
//	<root>/<testcaseID>/<subcaseID>/{input,output,.error}
//
// The allocation lock is exclusive, scoped to <root>/<testcaseID>, held
// only while deciding which subcase to use; the subcase's own content is
// then protected by a per-subcase lock (exclusive while generating,
// shared while reused), per spec.md §4.5.
type RandomDataCache struct {
	root        string
	maxSubcases int
	lockWait    time.Duration
}

// NewRandomDataCache creates a random-test-data cache rooted at root,
// allowing up to maxSubcases distinct generated cases per testcase.
func NewRandomDataCache(root string, maxSubcases int, lockWait time.Duration) *RandomDataCache {
	if maxSubcases <= 0 {
		maxSubcases = 1
	}
	if lockWait <= 0 {
		lockWait = 30 * time.Second
	}
	return &RandomDataCache{root: root, maxSubcases: maxSubcases, lockWait: lockWait}
}

// Allocate returns the (subcaseID, dir) pair to use for a random task
// against testcaseID, generating fresh data via gen when the slot table
// isn't yet full and reusing an existing subcase (regenerating it if its
// previous attempt failed) once it is.
func (c *RandomDataCache) Allocate(ctx context.Context, testcaseID string, gen Generator) (int, string, error) {
	testcaseDir := filepath.Join(c.root, testcaseID)
	if err := os.MkdirAll(testcaseDir, 0755); err != nil {
		return 0, "", appErr.Wrapf(err, appErr.CacheError, "create random testcase dir failed")
	}

	tableLock := newDirLock(testcaseDir)
	var subcaseID int
	var generate bool
	_, err := tableLock.withLock(ctx, c.lockWait, func() error {
		entries, err := os.ReadDir(testcaseDir)
		if err != nil {
			return appErr.Wrapf(err, appErr.CacheError, "list random testcase dir failed")
		}
		count := 0
		for _, e := range entries {
			if e.IsDir() {
				count++
			}
		}
		if count < c.maxSubcases {
			subcaseID = count
			generate = true
			return os.MkdirAll(filepath.Join(testcaseDir, strconv.Itoa(subcaseID)), 0755)
		}
		subcaseID = rand.Intn(c.maxSubcases)
		generate = false
		return nil
	})
	if err != nil {
		return 0, "", err
	}

	subcaseDir := filepath.Join(testcaseDir, strconv.Itoa(subcaseID))
	subcaseLock := newDirLock(subcaseDir)

	if generate {
		_, err := subcaseLock.withLock(ctx, c.lockWait, func() error {
			return c.runGenerator(ctx, gen, testcaseID, subcaseID, subcaseDir)
		})
		if err != nil {
			return 0, "", err
		}
		return subcaseID, subcaseDir, nil
	}

	// Reuse path: take a shared lock so we wait out any in-progress
	// generation, then check the error marker. flock's shared-lock mode
	// still blocks against a concurrent exclusive holder, so this
	// naturally waits for a generator that's currently writing.
	rl := subcaseLock.fl
	lockCtx, cancel := context.WithTimeout(ctx, c.lockWait)
	defer cancel()
	ok, err := rl.TryRLockContext(lockCtx, 50*time.Millisecond)
	if err != nil {
		return 0, "", appErr.Wrapf(err, appErr.LockFailed, "acquire random subcase shared lock failed")
	}
	if !ok {
		return 0, "", appErr.New(appErr.Timeout).WithMessage("wait for random subcase lock timed out")
	}
	_, markerErr := os.Stat(filepath.Join(subcaseDir, errorMarkerName))
	needsRegen := markerErr == nil
	_ = rl.Unlock()
	if !needsRegen {
		return subcaseID, subcaseDir, nil
	}

	_, err = subcaseLock.withLock(ctx, c.lockWait, func() error {
		if _, statErr := os.Stat(filepath.Join(subcaseDir, errorMarkerName)); statErr != nil {
			return nil
		}
		return c.runGenerator(ctx, gen, testcaseID, subcaseID, subcaseDir)
	})
	if err != nil {
		return 0, "", err
	}
	return subcaseID, subcaseDir, nil
}

func (c *RandomDataCache) runGenerator(ctx context.Context, gen Generator, testcaseID string, subcaseID int, dir string) error {
	markerPath := filepath.Join(dir, errorMarkerName)
	_ = os.Remove(markerPath)
	if err := gen.Generate(ctx, testcaseID, subcaseID, dir); err != nil {
		_ = os.WriteFile(markerPath, []byte(err.Error()), 0644)
		return appErr.Wrapf(err, appErr.RandomGenError, "random data generation failed")
	}
	return nil
}

// ReuseAncestor resolves the (testcaseID, subcaseID) a dependent random
// task must reuse from its dependency ancestor, per spec.md §4.5: memory
// or follow-up checks against the same random case must see identical
// input, not a freshly-allocated one.
func ReuseAncestor(root, testcaseID string, subcaseID int) string {
	return filepath.Join(root, testcaseID, strconv.Itoa(subcaseID))
}
