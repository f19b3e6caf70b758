// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package quality grades the evidential trustworthiness of normalized
// records. Each evidence source has its own Model: a base score, additive
// adjustments driven by the record, and a score-to-grade Scale. The final
// grade is always the Scale's grade for the clamped score.
package quality

import (
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Model assesses one kind of normalized record.
type Model[R any] interface {
	Assess(r R) types.EvidenceQuality
}

// Scale holds the minimum score for grades A, B and C; anything lower is D.
type Scale struct {
	A, B, C int
}

// Grade maps a score onto the scale.
func (s Scale) Grade(score int) types.Grade {
	switch {
	case score >= s.A:
		return types.GradeA
	case score >= s.B:
		return types.GradeB
	case score >= s.C:
		return types.GradeC
	default:
		return types.GradeD
	}
}

// Clamp bounds a score to [0, 100].
func Clamp(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// Tally accumulates a score from a base and adjustments.
type Tally struct {
	score int
}

// NewTally starts a tally at base.
func NewTally(base int) *Tally { return &Tally{score: base} }

// Add applies an adjustment.
func (t *Tally) Add(delta int) { t.score += delta }

// Set replaces the running score (design classes that fix the score outright).
func (t *Tally) Set(score int) { t.score = score }

// Score returns the running, unclamped score.
func (t *Tally) Score() int { return t.score }

// Result clamps the score and grades it on s.
func (t *Tally) Result(s Scale, factors types.QualityFactors) types.EvidenceQuality {
	score := Clamp(t.score)
	return types.EvidenceQuality{
		Grade:   s.Grade(score),
		Score:   score,
		Factors: factors,
	}
}

// clock returns now, or the wall clock when now is nil.
func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}

// monthsSince counts whole months from t to now. Future dates count as 0.
func monthsSince(t, now time.Time) int {
	if t.IsZero() || !t.Before(now) {
		return 0
	}
	months := (now.Year()-t.Year())*12 + int(now.Month()-t.Month())
	if now.Day() < t.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
