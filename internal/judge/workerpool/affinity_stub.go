//go:build !linux

package workerpool

// setAffinity is a no-op off Linux: CPU pinning is a Linux-only
// scheduling primitive, and the lease bookkeeping above still provides
// exclusive reservation even without real affinity.
func setAffinity(cpus []int) error {
	return nil
}
