package model

import "fuzoj/internal/judge/sandbox/spec"

// ResourceLimit mirrors spec.ResourceLimit at the manifest/config level,
// so problem data packs don't need to import the sandbox package.
type ResourceLimit struct {
	CPUTimeMs  int64 `json:"timeMs"`
	WallTimeMs int64 `json:"wallTimeMs"`
	MemoryMB   int64 `json:"memoryMB"`
	StackMB    int64 `json:"stackMB"`
	OutputMB   int64 `json:"outputMB"`
	PIDs       int64 `json:"processes"`
}

// MergeLimits overlays non-zero fields of override onto defaults.
func MergeLimits(override *ResourceLimit, defaults ResourceLimit) ResourceLimit {
	if override == nil {
		return defaults
	}
	merged := defaults
	if override.CPUTimeMs > 0 {
		merged.CPUTimeMs = override.CPUTimeMs
	}
	if override.WallTimeMs > 0 {
		merged.WallTimeMs = override.WallTimeMs
	}
	if override.MemoryMB > 0 {
		merged.MemoryMB = override.MemoryMB
	}
	if override.StackMB > 0 {
		merged.StackMB = override.StackMB
	}
	if override.OutputMB > 0 {
		merged.OutputMB = override.OutputMB
	}
	if override.PIDs > 0 {
		merged.PIDs = override.PIDs
	}
	return merged
}

// ToSandboxLimit converts a manifest-level limit to the sandbox's own type.
func ToSandboxLimit(limit ResourceLimit) spec.ResourceLimit {
	return spec.ResourceLimit{
		CPUTimeMs:  limit.CPUTimeMs,
		WallTimeMs: limit.WallTimeMs,
		MemoryMB:   limit.MemoryMB,
		StackMB:    limit.StackMB,
		OutputMB:   limit.OutputMB,
		PIDs:       limit.PIDs,
	}
}
