package model

import "fuzoj/internal/judge/sandbox/result"

// JudgeStatusResponse is returned to API clients polling submission status.
type JudgeStatusResponse struct {
	SubmissionID string                  `json:"submission_id"`
	Status       result.JudgeStatus      `json:"status"`
	Verdict      result.Verdict          `json:"verdict"`
	Score        int                     `json:"score"`
	Language     string                  `json:"language"`
	Summary      result.SummaryStat      `json:"summary"`
	Compile      *result.CompileResult   `json:"compile,omitempty"`
	Tests        []result.TestcaseResult `json:"tests,omitempty"`
	Timestamps   result.Timestamps       `json:"timestamps"`
	Progress     Progress                `json:"progress"`
	ErrorCode    int                     `json:"error_code,omitempty"`
	ErrorMessage string                  `json:"error_message,omitempty"`
}

// Progress represents judge progress across a submission's task list.
type Progress struct {
	TotalTests int `json:"total_tests"`
	DoneTests  int `json:"done_tests"`
}

// StatusEventType represents the status event type.
type StatusEventType string

const (
	// StatusEventFinal indicates the final status event.
	StatusEventFinal StatusEventType = "final"
)

// StatusEvent carries status updates for async processing.
type StatusEvent struct {
	Type      StatusEventType     `json:"type"`
	Status    JudgeStatusResponse `json:"status"`
	CreatedAt int64               `json:"created_at"`
}
