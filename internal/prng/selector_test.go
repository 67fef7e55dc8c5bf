package prng

import "testing"

// Two selectors seeded with the same PRNG state must produce the same
// low/high choice sequence.
func TestSelector_SameSeedProducesSameChoices(t *testing.T) {
	a := NewSelector(NewDeterministicState())
	b := NewSelector(NewDeterministicState())

	for i := 0; i < 200; i++ {
		if a.ChooseHigh(37) != b.ChooseHigh(37) {
			t.Fatalf("choice %d diverged", i)
		}
	}
}

func TestSelector_RatioZeroAlwaysHigh(t *testing.T) {
	s := NewSelector(NewDeterministicState())
	for i := 0; i < 100; i++ {
		if !s.ChooseHigh(0) {
			t.Fatalf("ChooseHigh(0) returned false at draw %d", i)
		}
	}
}

func TestSelector_RatioHundredAlwaysLow(t *testing.T) {
	s := NewSelector(NewDeterministicState())
	for i := 0; i < 100; i++ {
		if s.ChooseHigh(100) {
			t.Fatalf("ChooseHigh(100) returned true at draw %d", i)
		}
	}
}

func TestRatioToPercent_RoundsAndClamps(t *testing.T) {
	cases := []struct {
		ratio float64
		want  int
	}{
		{0, 0},
		{1, 100},
		{0.5, 50},
		{0.375, 38},
		{-1, 0},
		{2, 100},
	}
	for _, c := range cases {
		if got := RatioToPercent(c.ratio); got != c.want {
			t.Fatalf("RatioToPercent(%v) = %d, want %d", c.ratio, got, c.want)
		}
	}
}

func TestPercentToRatio_IsInverseOfRatioToPercent(t *testing.T) {
	for pct := 0; pct <= 100; pct += 10 {
		ratio := PercentToRatio(pct)
		if got := RatioToPercent(ratio); got != pct {
			t.Fatalf("round trip for pct=%d: got %d", pct, got)
		}
	}
}
