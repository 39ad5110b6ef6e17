// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evidence aggregates directional, weighted evidence into the Net
// Evidence Ratio used to rank curation records.
//
//	NER = (S+ - S-) / (S+ + S- + S?)
//
// S+, S- and S? are the summed strengths of supporting, contradicting and
// uncertain evidence. Uncertain evidence widens the denominator without
// moving the score in either direction.
package evidence

import (
	"fmt"
	"math"
	"strings"

	"github.com/pdiddy/sieve/pkg/types"
)

// Label thresholds. Scores strictly above SupportThreshold read as
// supporting, strictly below ContradictThreshold as contradicting.
const (
	SupportThreshold    = 0.3
	ContradictThreshold = -0.3
)

// Breakdown holds the weighted sums behind a score.
type Breakdown struct {
	Supporting    float64 `json:"supporting" yaml:"supporting"`
	Contradicting float64 `json:"contradicting" yaml:"contradicting"`
	Uncertain     float64 `json:"uncertain" yaml:"uncertain"`
	Count         int     `json:"count" yaml:"count"`
	Score         float64 `json:"score" yaml:"score"`
}

// Total returns S+ + S- + S?.
func (b Breakdown) Total() float64 {
	return b.Supporting + b.Contradicting + b.Uncertain
}

// Explain sums evidence strengths by direction and computes the score.
// Strengths are clamped to [0, 1]. An empty direction is the SUPPORTS
// default; any other unknown direction counts as uncertain.
func Explain(items []types.EvidenceItem) Breakdown {
	b := Breakdown{Count: len(items)}
	for _, it := range items {
		w := weight(it.Strength)
		switch it.Direction {
		case types.DirectionSupports, "":
			b.Supporting += w
		case types.DirectionContradicts:
			b.Contradicting += w
		default:
			b.Uncertain += w
		}
	}

	total := b.Total()
	if total == 0 {
		return b
	}
	b.Score = (b.Supporting - b.Contradicting) / total
	return b
}

// Score returns the Net Evidence Ratio in [-1, 1]. No evidence, or evidence
// whose strengths sum to zero, scores exactly 0.
func Score(items []types.EvidenceItem) float64 {
	return Explain(items).Score
}

func weight(strength float64) float64 {
	switch {
	case math.IsNaN(strength) || strength <= 0:
		return 0
	case strength >= 1:
		return 1
	}
	return strength
}

// String renders the formula with the sums substituted in.
func (b Breakdown) String() string {
	if b.Count == 0 {
		return "No evidence available"
	}
	if b.Total() == 0 {
		return "No weighted evidence"
	}

	var sb strings.Builder
	sb.WriteString("Net Evidence Ratio (NER)\n")
	sb.WriteString("Formula: (S+ - S-) / (S+ + S- + S?)\n")
	fmt.Fprintf(&sb, "  S+ (supporting)    = %.2f\n", b.Supporting)
	fmt.Fprintf(&sb, "  S- (contradicting) = %.2f\n", b.Contradicting)
	fmt.Fprintf(&sb, "  S? (uncertain)     = %.2f\n", b.Uncertain)
	fmt.Fprintf(&sb, "Calculation: (%.2f - %.2f) / (%.2f + %.2f + %.2f)\n",
		b.Supporting, b.Contradicting, b.Supporting, b.Contradicting, b.Uncertain)
	fmt.Fprintf(&sb, "Result: %.2f (-1 all contradicting, +1 all supporting)", b.Score)
	return sb.String()
}

// Category is the display bucket for a score.
type Category string

const (
	Supports    Category = "Supports"
	Contradicts Category = "Contradicts"
	Mixed       Category = "Mixed"
)

// Label buckets a score using the ±0.3 thresholds.
func Label(score float64) Category {
	switch {
	case score > SupportThreshold:
		return Supports
	case score < ContradictThreshold:
		return Contradicts
	default:
		return Mixed
	}
}

// Color returns the display colour for a category.
func (c Category) Color() string {
	switch c {
	case Supports:
		return "green"
	case Contradicts:
		return "red"
	default:
		return "amber"
	}
}
