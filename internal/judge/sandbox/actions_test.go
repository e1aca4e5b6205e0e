package sandbox

import (
	"math/big"
	"testing"

	"fuzoj/internal/judge/model"
	"fuzoj/internal/judge/sandbox/result"
)

func TestConditionMetIsPerAxisNotExclusive(t *testing.T) {
	// A PARTIAL_CORRECT test is simultaneously non-accepted and
	// partial-correct: both conditions must be eligible to fire on it.
	partial := result.VerdictPartialCorrect
	score := big.NewRat(3, 4)

	if !conditionMet(model.ActionNonAccepted, partial, score) {
		t.Error("NON_ACCEPTED should fire on a PARTIAL_CORRECT verdict")
	}
	if !conditionMet(model.ActionPartialCorrect, partial, score) {
		t.Error("PARTIAL_CORRECT should fire when score != 0")
	}
	if conditionMet(model.ActionAccepted, partial, score) {
		t.Error("ACCEPTED should not fire on a PARTIAL_CORRECT verdict")
	}
	if conditionMet(model.ActionNonPartialCorrect, partial, score) {
		t.Error("NON_PARTIAL_CORRECT should not fire when score != 0")
	}
}

func TestConditionMetZeroScoreWA(t *testing.T) {
	zero := model.NewZeroScore()
	if !conditionMet(model.ActionNonAccepted, result.VerdictWA, zero) {
		t.Error("NON_ACCEPTED should fire on WA")
	}
	if !conditionMet(model.ActionNonPartialCorrect, result.VerdictWA, zero) {
		t.Error("NON_PARTIAL_CORRECT should fire when score == 0")
	}
	if conditionMet(model.ActionPartialCorrect, result.VerdictWA, zero) {
		t.Error("PARTIAL_CORRECT should not fire when score == 0")
	}
}

func TestConditionMetAccepted(t *testing.T) {
	full := big.NewRat(1, 1)
	if !conditionMet(model.ActionAccepted, result.VerdictAC, full) {
		t.Error("ACCEPTED should fire on AC")
	}
	if !conditionMet(model.ActionPartialCorrect, result.VerdictAC, full) {
		t.Error("PARTIAL_CORRECT should also fire on AC: full marks is a nonzero score")
	}
	if conditionMet(model.ActionNonAccepted, result.VerdictAC, full) {
		t.Error("NON_ACCEPTED should not fire on AC")
	}
}

func TestConditionMetAlwaysIgnoresVerdict(t *testing.T) {
	if !conditionMet(model.ActionAlways, "", nil) {
		t.Error("ALWAYS should fire regardless of verdict/score")
	}
}
