package risk

import (
	"testing"

	"shelfguard/internal/model"
)

func TestScoreClampsToHundred(t *testing.T) {
	if got := Score(75, 20, 5, 50); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
	if got := Score(0, -5); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := Score(55, 10, 5); got != 70 {
		t.Fatalf("expected 70, got %v", got)
	}
}

func TestScoreCapped(t *testing.T) {
	if got := ScoreCapped(48, 92, 200); got != 92 {
		t.Fatalf("expected cap 92, got %v", got)
	}
	if got := ScoreCapped(45, 90, 10); got != 55 {
		t.Fatalf("expected 55, got %v", got)
	}
}

func TestCapFactor(t *testing.T) {
	if got := CapFactor(30, 20); got != 20 {
		t.Fatalf("expected 20, got %v", got)
	}
	if got := CapFactor(-3, 20); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if got := CapFactor(7, 20); got != 7 {
		t.Fatalf("expected 7, got %v", got)
	}
}

func TestLadderSeverityMonotonic(t *testing.T) {
	ladder := Ladder{High: 85, Medium: 60}
	if !ladder.Valid() {
		t.Fatalf("ladder should be valid")
	}
	prev := -1
	for score := 0.0; score <= 100; score++ {
		rank := ladder.Severity(score).Rank()
		if rank < prev {
			t.Fatalf("severity rank decreased at score %v", score)
		}
		prev = rank
	}
}

func TestLadderBreakpoints(t *testing.T) {
	ladder := Ladder{High: 85, Medium: 60}
	cases := []struct {
		score float64
		want  model.Severity
	}{
		{59.9, model.SeverityLow},
		{60, model.SeverityMedium},
		{84.9, model.SeverityMedium},
		{85, model.SeverityHigh},
		{100, model.SeverityHigh},
	}
	for _, tc := range cases {
		if got := ladder.Severity(tc.score); got != tc.want {
			t.Fatalf("score %v: expected %s, got %s", tc.score, tc.want, got)
		}
	}
}

func TestInvalidLadder(t *testing.T) {
	if (Ladder{High: 50, Medium: 60}).Valid() {
		t.Fatalf("inverted ladder should be invalid")
	}
}
