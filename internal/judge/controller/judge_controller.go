package controller

import (
	"net/http"

	"fuzoj/internal/judge/repository"
	appErr "fuzoj/pkg/errors"

	"github.com/zeromicro/go-zero/rest/httpx"
)

// getStatusRequest binds the "/judge/status/:id" path parameter, the
// same httpx.Parse-driven request-binding style the teacher's
// goctl-scaffolded getstatushandler.go uses for types.GetJudgeStatusRequest.
type getStatusRequest struct {
	SubmissionID string `path:"id"`
}

// JudgeController exposes the judge status query endpoint on go-zero's
// rest.Server, mirroring the teacher's goctl-scaffolded handler rather
// than the account service's gin router: the judging core carries no
// other gin-only concern (auth middleware, template rendering) to
// justify a second web framework living alongside go-zero's rest.
type JudgeController struct {
	repo *repository.StatusRepository
}

// NewJudgeController creates a new controller.
func NewJudgeController(repo *repository.StatusRepository) *JudgeController {
	return &JudgeController{repo: repo}
}

// GetStatus returns status for one submission.
func (h *JudgeController) GetStatus(w http.ResponseWriter, r *http.Request) {
	var req getStatusRequest
	if err := httpx.Parse(r, &req); err != nil || req.SubmissionID == "" {
		httpx.ErrorCtx(r.Context(), w, appErr.ValidationError("id", "required"))
		return
	}
	status, err := h.repo.Get(r.Context(), req.SubmissionID)
	if err != nil {
		httpx.ErrorCtx(r.Context(), w, err)
		return
	}
	httpx.OkJsonCtx(r.Context(), w, status)
}
