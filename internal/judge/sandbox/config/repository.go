// Package config defines interfaces for loading sandbox configuration:
// language specs and task profiles, keyed so the runner and engine can
// resolve a submission's language and task type into concrete commands
// and isolation settings without hardcoding them.
package config

import (
	"context"

	"fuzoj/internal/judge/sandbox/profile"
)

// LanguageSpecRepository loads language specifications.
type LanguageSpecRepository interface {
	GetLanguageSpec(ctx context.Context, id string) (profile.LanguageSpec, error)
}

// TaskProfileRepository loads task profiles by type and language.
type TaskProfileRepository interface {
	GetTaskProfile(ctx context.Context, taskType profile.TaskType, languageID string) (profile.TaskProfile, error)
}
