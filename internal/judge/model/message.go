package model

// JudgeMessage represents the Kafka payload for judge tasks.
type JudgeMessage struct {
	SubmissionID      string   `json:"submission_id"`
	ProblemID         int64    `json:"problem_id"`
	LanguageID        string   `json:"language_id"`
	SourceKey         string   `json:"source_key"`
	SourceHash        string   `json:"source_hash"`
	ContestID         string   `json:"contest_id"`
	UserID            string   `json:"user_id"`
	Priority          int      `json:"priority"`
	ExtraCompileFlags []string `json:"extra_compile_flags"`

	// GitURL, when set, selects the Git-repository submission path
	// (internal/judge/program.GitRepository) instead of the default
	// object-storage download keyed by SourceKey.
	GitURL        string `json:"git_url,omitempty"`
	GitCommit     string `json:"git_commit,omitempty"`
	GitUsername   string `json:"git_username,omitempty"`
	GitPassword   string `json:"git_password,omitempty"`
	GitEntryPoint string `json:"git_entry_point,omitempty"`
}
