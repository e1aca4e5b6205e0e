// Package workerpool implements the CPU-pinned worker pool and dispatcher
// in front of the sandbox: a fixed set of CPU ids is carved up into
// per-task leases, a multi-core task blocks until enough CPUs are free to
// be reserved together (rather than racing several single-core leases),
// and shutdown is two-phase so in-flight judge tasks can drain before the
// process exits.
package workerpool

import (
	"context"
	"runtime"
	"sync"

	appErr "fuzoj/pkg/errors"
)

// Pool hands out CPU-core leases to the scheduler. It does not run tasks
// itself; Scheduler.Process dispatches goroutines that call Acquire,
// pin, run the sandboxed task, then Release.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	free    []int
	total   int
	judging bool // false once StopJudging has been called: no new leases
	stopped bool // true once StopWorkers has completed
}

// Lease reserves a set of CPU ids for the duration of one judge task.
type Lease struct {
	pool   *Pool
	cpus   []int
	pinned bool
}

// StartWorkers activates the pool over the given CPU set. It is the
// counterpart of spec's StartWorkers(cpuSet): nothing may be judged
// before this is called, and calling it twice replaces the CPU set only
// if the pool is fully idle.
func (p *Pool) StartWorkers(cpuSet []int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cond == nil {
		p.cond = sync.NewCond(&p.mu)
	}
	if len(p.free) != p.total {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("cannot restart worker pool while tasks are running")
	}
	if len(cpuSet) == 0 {
		return appErr.New(appErr.ValidationFailed).WithMessage("cpu set must not be empty")
	}
	cpus := make([]int, len(cpuSet))
	copy(cpus, cpuSet)
	p.free = cpus
	p.total = len(cpus)
	p.judging = true
	p.stopped = false
	return nil
}

// StopJudging begins phase one of shutdown: no further Acquire call will
// succeed, but leases already held keep running until released. Callers
// should stop pulling new submissions from the Fetcher once this
// returns, since Acquire will now always fail.
func (p *Pool) StopJudging() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.judging = false
	p.cond.Broadcast()
}

// StopWorkers completes phase two: it blocks until every outstanding
// lease has been released, then marks the pool stopped. Call StopJudging
// first; calling StopWorkers alone would block forever if new tasks keep
// arriving.
func (p *Pool) StopWorkers(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.free) != p.total {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.cond.Wait()
	}
	p.stopped = true
	return nil
}

// Acquire blocks until `cores` CPU ids can be reserved together, or the
// context is canceled, or the pool has stopped accepting new work.
// Reserving all requested cores atomically (rather than one at a time)
// is what lets a multi-core task get its whole CPU set in one step
// instead of racing single-core leases and risking starvation. The ids
// are the first free ones and need not be contiguous.
func (p *Pool) Acquire(ctx context.Context, cores int) (*Lease, error) {
	if cores <= 0 {
		cores = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cond == nil {
		return nil, appErr.New(appErr.ServiceUnavailable).WithMessage("worker pool is not started")
	}
	for {
		if !p.judging {
			return nil, appErr.New(appErr.JudgeQueueFull).WithMessage("worker pool is no longer accepting tasks")
		}
		if cores > p.total {
			return nil, appErr.New(appErr.ValidationFailed).WithMessage("task requests more cores than the pool has")
		}
		if len(p.free) >= cores {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		waitCh := make(chan struct{})
		go func() {
			<-ctx.Done()
			p.mu.Lock()
			p.cond.Broadcast()
			p.mu.Unlock()
			close(waitCh)
		}()
		p.cond.Wait()
		select {
		case <-waitCh:
		default:
		}
	}
	cpus := p.free[:cores]
	p.free = p.free[cores:]
	return &Lease{pool: p, cpus: append([]int(nil), cpus...)}, nil
}

// Pin locks the calling goroutine to its own OS thread and restricts
// that thread's CPU affinity to the lease's CPU set. Call this from the
// goroutine that will fork/exec the sandbox helper, since the child
// process inherits its parent thread's affinity at fork time; there is
// no need to keep the parent pinned once the child has started.
func (l *Lease) Pin() error {
	runtime.LockOSThread()
	l.pinned = true
	return setAffinity(l.cpus)
}

// CPUs returns the CPU ids reserved by this lease.
func (l *Lease) CPUs() []int {
	return append([]int(nil), l.cpus...)
}

// Release returns the lease's CPU ids to the pool.
func (l *Lease) Release() {
	if l.pinned {
		runtime.UnlockOSThread()
	}
	p := l.pool
	p.mu.Lock()
	p.free = append(p.free, l.cpus...)
	p.cond.Broadcast()
	p.mu.Unlock()
}
