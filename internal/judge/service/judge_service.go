// Package service ties a submission message to the scheduler: decode the
// message, resolve the problem's cached data pack, build the submission's
// judge-task graph from its manifest, run it through the scheduler, and
// report status. The Go-idiom replacement for programming_judger's own
// per-submission driver loop.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"fuzoj/internal/common/mq"
	"fuzoj/internal/common/storage"
	"fuzoj/internal/judge/cache"
	"fuzoj/internal/judge/model"
	"fuzoj/internal/judge/problemclient"
	"fuzoj/internal/judge/program"
	"fuzoj/internal/judge/repository"
	"fuzoj/internal/judge/sandbox/result"
	"fuzoj/internal/judge/scheduler"
	appErr "fuzoj/pkg/errors"
)

const compileTaskIndex = 0

// Service handles judge task messages end to end.
type Service struct {
	scheduler     *scheduler.Scheduler
	statusRepo    *repository.StatusRepository
	problemClient *problemclient.Client
	problemCache  *cache.ProblemCache
	randomRoot    string
	storageCli    storage.ObjectStorage
	sourceBucket  string
	workRoot      string

	workerTimeout  time.Duration
	problemTimeout time.Duration
	storageTimeout time.Duration
	statusTimeout  time.Duration
	metaTTL        time.Duration

	sem chan struct{}

	queue         mq.MessageQueue
	retryTopic    string
	deadLetter    string
	poolRetryMax  int
	poolRetryBase time.Duration
	poolRetryMaxD time.Duration

	metaMu    sync.Mutex
	metaCache map[int64]metaEntry
}

type metaEntry struct {
	meta      model.ProblemMeta
	expiresAt time.Time
}

// Config holds service dependencies and settings.
type Config struct {
	Scheduler     *scheduler.Scheduler
	StatusRepo    *repository.StatusRepository
	ProblemClient *problemclient.Client
	ProblemCache  *cache.ProblemCache
	// RandomRoot is the root directory random-data subcases are cached
	// under, one subtree per problem ID (see Submission.RandomRoot).
	RandomRoot string
	Storage    storage.ObjectStorage

	SourceBucket string
	WorkRoot     string

	WorkerTimeout  time.Duration
	ProblemTimeout time.Duration
	StorageTimeout time.Duration
	StatusTimeout  time.Duration
	MetaTTL        time.Duration
	WorkerPoolSize int

	Queue         mq.MessageQueue
	RetryTopic    string
	DeadLetter    string
	PoolRetryMax  int
	PoolRetryBase time.Duration
	PoolRetryMaxD time.Duration
}

// NewService creates a new judge service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if cfg.StatusRepo == nil {
		return nil, fmt.Errorf("status repository is required")
	}
	if cfg.ProblemClient == nil {
		return nil, fmt.Errorf("problem client is required")
	}
	if cfg.ProblemCache == nil {
		return nil, fmt.Errorf("problem cache is required")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.WorkRoot == "" {
		return nil, fmt.Errorf("work root is required")
	}
	poolSize := cfg.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Service{
		scheduler:      cfg.Scheduler,
		statusRepo:     cfg.StatusRepo,
		problemClient:  cfg.ProblemClient,
		problemCache:   cfg.ProblemCache,
		randomRoot:     cfg.RandomRoot,
		storageCli:     cfg.Storage,
		sourceBucket:   cfg.SourceBucket,
		workRoot:       cfg.WorkRoot,
		workerTimeout:  cfg.WorkerTimeout,
		problemTimeout: cfg.ProblemTimeout,
		storageTimeout: cfg.StorageTimeout,
		statusTimeout:  cfg.StatusTimeout,
		metaTTL:        cfg.MetaTTL,
		sem:            make(chan struct{}, poolSize),
		queue:          cfg.Queue,
		retryTopic:     cfg.RetryTopic,
		deadLetter:     cfg.DeadLetter,
		poolRetryMax:   cfg.PoolRetryMax,
		poolRetryBase:  cfg.PoolRetryBase,
		poolRetryMaxD:  cfg.PoolRetryMaxD,
		metaCache:      make(map[int64]metaEntry),
	}, nil
}

// HandleMessage processes a judge task message.
func (s *Service) HandleMessage(ctx context.Context, msg *mq.Message) error {
	if msg == nil {
		return appErr.New(appErr.InvalidParams).WithMessage("message is nil")
	}
	var payload model.JudgeMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		return appErr.Wrapf(err, appErr.InvalidParams, "decode message failed")
	}
	if payload.SubmissionID == "" || payload.ProblemID <= 0 || payload.LanguageID == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("message missing required fields")
	}
	if payload.SourceKey == "" && payload.GitURL == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("message carries neither source_key nor git_url")
	}

	if !s.tryAcquireSlot() {
		return s.requeueForPoolFull(ctx, msg)
	}
	defer s.releaseSlot()

	now := time.Now().Unix()
	pending := model.JudgeStatusResponse{
		SubmissionID: payload.SubmissionID,
		Status:       result.StatusPending,
		Timestamps:   result.Timestamps{ReceivedAt: now},
	}
	if err := s.persistStatus(ctx, pending); err != nil {
		return err
	}

	running := pending
	running.Status = result.StatusRunning
	if err := s.persistStatus(ctx, running); err != nil {
		return err
	}

	meta, err := s.getProblemMeta(ctx, payload.ProblemID)
	if err != nil {
		return s.handleFailure(ctx, payload.SubmissionID, err)
	}
	problemDir, err := s.problemCache.Get(ctx, meta)
	if err != nil {
		return s.handleFailure(ctx, payload.SubmissionID, err)
	}

	manifest, err := model.LoadManifest(filepath.Join(problemDir, "manifest.json"))
	if err != nil {
		return s.handleFailure(ctx, payload.SubmissionID, appErr.Wrapf(err, appErr.JudgeSystemError, "load manifest failed"))
	}
	cfg, err := model.LoadProblemConfig(filepath.Join(problemDir, "config.json"))
	if err != nil {
		return s.handleFailure(ctx, payload.SubmissionID, appErr.Wrapf(err, appErr.JudgeSystemError, "load config failed"))
	}
	compileFlags, defaultLimits := resolveLanguageConfig(cfg, payload.LanguageID)
	compileFlags = append(compileFlags, payload.ExtraCompileFlags...)

	sourcePath, err := s.resolveSource(ctx, payload)
	if err != nil {
		return s.handleFailure(ctx, payload.SubmissionID, err)
	}

	workRoot := filepath.Join(s.workRoot, payload.SubmissionID)
	if err := os.MkdirAll(workRoot, 0755); err != nil {
		return s.handleFailure(ctx, payload.SubmissionID, appErr.Wrapf(err, appErr.JudgeSystemError, "create work root failed"))
	}

	sub := model.Submission{
		ID:                   payload.SubmissionID,
		ProblemID:            payload.ProblemID,
		LanguageID:           payload.LanguageID,
		WorkRoot:             workRoot,
		SourcePath:           sourcePath,
		ProblemDir:           problemDir,
		RandomRoot:           filepath.Join(s.randomRoot, strconv.FormatInt(payload.ProblemID, 10)),
		StandardSolutionPath: existingOrEmpty(filepath.Join(problemDir, "standard", "run")),
		GeneratorPath:        existingOrEmpty(filepath.Join(problemDir, "random", "run")),
		CompileFlags:         compileFlags,
		Manifest:             manifest,
		Tasks:                buildTaskGraph(manifest, defaultLimits),
	}

	ctxWorker := ctx
	if s.workerTimeout > 0 {
		var cancel context.CancelFunc
		ctxWorker, cancel = context.WithTimeout(ctx, s.workerTimeout)
		defer cancel()
	}

	results, err := s.scheduler.Process(ctxWorker, sub)
	if err != nil {
		return s.handleFailure(ctx, payload.SubmissionID, err)
	}

	finished := buildFinalStatus(payload, running.Timestamps.ReceivedAt, manifest, results)
	if err := s.persistStatus(ctx, finished); err != nil {
		return err
	}
	return nil
}

// buildTaskGraph expands a manifest into a compile task followed by one
// run task per static test, each depending on the compile task succeeding
// and overlaying the compile task's run directory for its binary.
func buildTaskGraph(m model.Manifest, defaults model.ResourceLimit) []model.JudgeTask {
	tasks := make([]model.JudgeTask, 0, len(m.Tests)+1)
	tasks = append(tasks, model.JudgeTask{
		Index:         compileTaskIndex,
		Tag:           "compile",
		CheckScript:   "compile",
		DependsOn:     -1,
		FileDependsOn: -1,
		Cores:         1,
		Limits:        defaults,
		ActionDelay:   -1,
	})
	for i, tc := range m.Tests {
		limits := model.MergeLimits(tc.Limits, defaults)
		tasks = append(tasks, model.JudgeTask{
			Index:         i + 1,
			Tag:           tc.TestID,
			CheckScript:   "standard",
			IsRandom:      tc.IsRandom,
			TestID:        tc.TestID,
			SubcaseID:     -1,
			DependsOn:     compileTaskIndex,
			DependsCond:   model.DependsAccepted,
			FileDependsOn: compileTaskIndex,
			Cores:         1,
			Limits:        limits,
			ActionDelay:   -1,
		})
	}
	return tasks
}

// buildFinalStatus maps the scheduler's per-task results back into the
// submission-level status report: the compile task supplies the compile
// summary, every other task supplies one TestcaseResult, and the
// submission verdict is the first non-AC test verdict encountered (or AC
// if every test passed), matching the original judger's "worst verdict
// wins" rule.
func buildFinalStatus(payload model.JudgeMessage, receivedAt int64, m model.Manifest, results []model.JudgeTaskResult) model.JudgeStatusResponse {
	status := model.JudgeStatusResponse{
		SubmissionID: payload.SubmissionID,
		Language:     payload.LanguageID,
		Timestamps:   result.Timestamps{ReceivedAt: receivedAt, FinishedAt: time.Now().Unix()},
	}

	if len(results) == 0 {
		status.Status = result.StatusFailed
		status.Verdict = result.VerdictSE
		return status
	}

	compileRes := results[compileTaskIndex]
	status.Compile = &result.CompileResult{
		OK:       compileRes.Verdict == result.VerdictAC,
		TimeMs:   compileRes.RunTime,
		MemoryKB: compileRes.MemoryKB,
		Error:    compileRes.ErrorLog,
	}
	if !status.Compile.OK {
		status.Status = result.StatusFinished
		status.Verdict = result.VerdictCE
		return status
	}

	verdict := result.VerdictAC
	totalScore, gotScore := 0, 0
	tests := make([]result.TestcaseResult, 0, len(results)-1)
	var maxTime, maxMem int64
	for i := 1; i < len(results); i++ {
		r := results[i]
		tc := m.Tests[i-1]
		totalScore += tc.Score
		testVerdict := r.Verdict
		earned := testScore(testVerdict, tc.Score, r.Score)
		gotScore += earned
		if testVerdict != result.VerdictAC && verdict == result.VerdictAC {
			verdict = testVerdict
		}
		if r.RunTime > maxTime {
			maxTime = r.RunTime
		}
		if r.MemoryKB > maxMem {
			maxMem = r.MemoryKB
		}
		tests = append(tests, result.TestcaseResult{
			TestID:    tc.TestID,
			Verdict:   testVerdict,
			TimeMs:    r.RunTime,
			MemoryKB:  r.MemoryKB,
			Stderr:    r.Report,
			Score:     earned,
			SubtaskID: tc.SubtaskID,
		})
	}

	status.Status = result.StatusFinished
	status.Verdict = verdict
	status.Score = gotScore
	if totalScore > 0 {
		status.Score = gotScore * 100 / totalScore
	}
	status.Tests = tests
	status.Progress = model.Progress{TotalTests: len(tests), DoneTests: len(tests)}
	status.Summary = result.SummaryStat{TotalTimeMs: maxTime, MaxMemoryKB: maxMem, TotalScore: gotScore}
	return status
}

// testScore converts a task's rational score (exact, per JudgeTaskResult)
// into the integer point value this test earns out of its weight: full
// weight on AC, weight*numerator/denominator on PARTIAL_CORRECT (rounded
// down, matching the original's integer point tables), zero otherwise.
func testScore(verdict result.Verdict, weight int, frac *big.Rat) int {
	switch verdict {
	case result.VerdictAC:
		return weight
	case result.VerdictPartialCorrect:
		if frac == nil {
			return 0
		}
		earned := new(big.Rat).Mul(frac, big.NewRat(int64(weight), 1))
		num := new(big.Int).Quo(earned.Num(), earned.Denom())
		return int(num.Int64())
	default:
		return 0
	}
}

// resolveSource materializes a submission's source onto disk, either by
// downloading the object-storage upload (the common case) or by cloning
// a Git repository when the message carries one (program.hpp's
// git_repository, see internal/judge/program).
func (s *Service) resolveSource(ctx context.Context, payload model.JudgeMessage) (string, error) {
	if payload.GitURL == "" {
		return s.downloadSource(ctx, payload)
	}
	if payload.GitEntryPoint == "" {
		return "", appErr.New(appErr.InvalidParams).WithMessage("git_entry_point is required for git submissions")
	}
	repoDir := filepath.Join(s.workRoot, payload.SubmissionID, "source")
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		return "", appErr.Wrapf(err, appErr.JudgeSystemError, "create source dir failed")
	}
	repo := program.GitRepository{
		URL:        payload.GitURL,
		Commit:     payload.GitCommit,
		Username:   payload.GitUsername,
		Password:   payload.GitPassword,
		EntryPoint: payload.GitEntryPoint,
	}
	if err := repo.Fetch(ctx, repoDir); err != nil {
		return "", err
	}
	return repo.EntryPath(repoDir), nil
}

func (s *Service) downloadSource(ctx context.Context, payload model.JudgeMessage) (string, error) {
	submissionDir := filepath.Join(s.workRoot, payload.SubmissionID, "source")
	if err := os.MkdirAll(submissionDir, 0755); err != nil {
		return "", appErr.Wrapf(err, appErr.JudgeSystemError, "create source dir failed")
	}
	filePath := filepath.Join(submissionDir, "source.code")
	ctxStorage := ctx
	if s.storageTimeout > 0 {
		var cancel context.CancelFunc
		ctxStorage, cancel = context.WithTimeout(ctx, s.storageTimeout)
		defer cancel()
	}
	reader, err := s.storageCli.GetObject(ctxStorage, s.sourceBucket, payload.SourceKey)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.JudgeSystemError, "download source failed")
	}
	defer reader.Close()

	file, err := os.Create(filePath)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.JudgeSystemError, "create source file failed")
	}
	defer file.Close()

	hasher := sha256.New()
	tee := io.TeeReader(reader, hasher)
	if _, err := io.Copy(file, tee); err != nil {
		return "", appErr.Wrapf(err, appErr.JudgeSystemError, "write source file failed")
	}
	if payload.SourceHash != "" {
		actual := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(actual, payload.SourceHash) {
			return "", appErr.New(appErr.InvalidParams).WithMessage("source hash mismatch")
		}
	}
	return filePath, nil
}

func resolveLanguageConfig(cfg model.ProblemConfig, languageID string) ([]string, model.ResourceLimit) {
	base := cfg.DefaultLimits
	var extra []string
	for _, lim := range cfg.LanguageLimits {
		if lim.LanguageID == languageID {
			if lim.Limits != nil {
				base = model.MergeLimits(lim.Limits, base)
			}
			extra = append(extra, lim.ExtraCompileFlags...)
			break
		}
	}
	return extra, base
}

func existingOrEmpty(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

