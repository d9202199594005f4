// Package risk computes bounded risk scores and maps them to severity tiers.
package risk

import "shelfguard/internal/model"

// Score adds weighted evidence factors onto a base value and clamps the
// result to [0, 100].
func Score(base float64, factors ...float64) float64 {
	score := base
	for _, f := range factors {
		score += f
	}
	return Clamp(score, 100)
}

// ScoreCapped is Score with a rule-specific ceiling below 100.
func ScoreCapped(base float64, cap float64, factors ...float64) float64 {
	score := base
	for _, f := range factors {
		score += f
	}
	return Clamp(score, cap)
}

func Clamp(score, max float64) float64 {
	if score < 0 {
		return 0
	}
	if score > max {
		return max
	}
	return score
}

// CapFactor bounds a single contributing factor from above.
func CapFactor(value, max float64) float64 {
	if value > max {
		return max
	}
	if value < 0 {
		return 0
	}
	return value
}

// Ladder maps a score to a severity tier. High must be >= Medium so the
// mapping is monotonic.
type Ladder struct {
	High   float64
	Medium float64
}

func (l Ladder) Severity(score float64) model.Severity {
	if score >= l.High {
		return model.SeverityHigh
	}
	if score >= l.Medium {
		return model.SeverityMedium
	}
	return model.SeverityLow
}

func (l Ladder) Valid() bool {
	return l.High >= l.Medium
}
