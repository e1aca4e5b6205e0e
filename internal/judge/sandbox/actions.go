package sandbox

import (
	"bytes"
	"context"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"fuzoj/internal/judge/model"
	"fuzoj/internal/judge/sandbox/result"
	appErr "fuzoj/pkg/errors"
)

const defaultActionFileLimit = 64 * 1024

// FireActions evaluates a task's action hooks against its own terminal
// verdict/score and the task's data/run directories, grounded on
// read_action::act: each action's path is macro-substituted, resolved to
// an absolute path, and rejected unless it falls under dataDir or
// runDir; for "text" mode the file content (truncated to fileLimit) is
// recorded, for "upload" it is POSTed, for "both" the content is recorded
// when the file is no larger than fileLimit and POSTed otherwise.
//
// verdict and score are independent axes, not a single combined state:
// a PARTIAL_CORRECT test is simultaneously NON_ACCEPTED (verdict != AC)
// and PARTIAL_CORRECT (score != 0), so both kinds of action must be
// eligible to fire on the same task.
func FireActions(ctx context.Context, httpClient *http.Client, actions []model.Action, verdict result.Verdict, score *big.Rat, dataDir, runDir string) []model.ActionResult {
	results := make([]model.ActionResult, 0, len(actions))
	for _, a := range actions {
		results = append(results, fireOne(ctx, httpClient, a, verdict, score, dataDir, runDir))
	}
	return results
}

func fireOne(ctx context.Context, httpClient *http.Client, a model.Action, verdict result.Verdict, score *big.Rat, dataDir, runDir string) model.ActionResult {
	if !conditionMet(a.Condition, verdict, score) {
		return model.ActionResult{Tag: a.Tag, Fired: false}
	}

	path, err := resolveActionPath(a.Path, dataDir, runDir)
	if err != nil {
		return model.ActionResult{Tag: a.Tag, Fired: false, Err: err}
	}

	limit := a.FileLimit
	if limit <= 0 {
		limit = defaultActionFileLimit
	}

	switch a.Mode {
	case model.ActionModeText:
		text, err := readCapped(path, limit)
		return model.ActionResult{Tag: a.Tag, Text: text, Path: path, Fired: err == nil, Err: err}
	case model.ActionModeUpload:
		err := uploadFile(ctx, httpClient, a.URL, path)
		return model.ActionResult{Tag: a.Tag, Path: path, Fired: err == nil, Err: err}
	case model.ActionModeBoth:
		info, statErr := os.Stat(path)
		if statErr == nil && info.Size() <= limit {
			text, err := readCapped(path, limit)
			return model.ActionResult{Tag: a.Tag, Text: text, Path: path, Fired: err == nil, Err: err}
		}
		err := uploadFile(ctx, httpClient, a.URL, path)
		return model.ActionResult{Tag: a.Tag, Path: path, Fired: err == nil, Err: err}
	default:
		return model.ActionResult{Tag: a.Tag, Fired: false, Err: appErr.New(appErr.ValidationFailed).WithMessage("unknown action mode")}
	}
}

// conditionMet evaluates one action's condition against the task's own
// verdict and score, per read_action::condition: ACCEPTED/NON_ACCEPTED
// test the verdict, PARTIAL_CORRECT/NON_PARTIAL_CORRECT test whether the
// score is zero, independently of each other.
func conditionMet(cond model.ActionCondition, verdict result.Verdict, score *big.Rat) bool {
	switch cond {
	case model.ActionAlways:
		return true
	case model.ActionAccepted:
		return verdict == result.VerdictAC
	case model.ActionNonAccepted:
		return verdict != result.VerdictAC
	case model.ActionPartialCorrect:
		return score != nil && score.Sign() != 0
	case model.ActionNonPartialCorrect:
		return score == nil || score.Sign() == 0
	default:
		return false
	}
}

// resolveActionPath substitutes $DATADIR/$RUNDIR, cleans the result, and
// rejects anything that escapes either directory.
func resolveActionPath(tpl, dataDir, runDir string) (string, error) {
	expanded := strings.ReplaceAll(tpl, "$DATADIR", dataDir)
	expanded = strings.ReplaceAll(expanded, "$RUNDIR", runDir)
	clean := filepath.Clean(expanded)
	if isUnder(clean, dataDir) || isUnder(clean, runDir) {
		return clean, nil
	}
	return "", appErr.New(appErr.ActionPathRejected).WithMessage("action path escapes data/run directory")
}

func isUnder(path, base string) bool {
	if base == "" {
		return false
	}
	base = filepath.Clean(base)
	return path == base || strings.HasPrefix(path, base+string(filepath.Separator))
}

func readCapped(path string, limit int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	buf := make([]byte, limit)
	n, _ := f.Read(buf)
	return string(buf[:n]), nil
}

func uploadFile(ctx context.Context, httpClient *http.Client, url, path string) error {
	if httpClient == nil {
		return appErr.New(appErr.InternalServerError).WithMessage("upload action requires an http client")
	}
	if url == "" {
		return appErr.ValidationError("url", "required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return appErr.Newf(appErr.InternalServerError, "upload action returned status %d", resp.StatusCode)
	}
	return nil
}
