package adaptive

import "testing"

func TestNew_AllCountsStartAtOne(t *testing.T) {
	s := New(5, 22)
	for i, c := range s.Counts {
		if c != 1 {
			t.Fatalf("Counts[%d] = %d, want 1", i, c)
		}
	}
	if s.Total() != 5 {
		t.Fatalf("Total() = %d, want 5", s.Total())
	}
}

func TestCumulative_BelowAndUpTo(t *testing.T) {
	s := New(4, 22)
	s.Counts = []uint32{2, 3, 5, 1}
	s.Sum = 11

	if got := s.CumulativeBelow(0); got != 0 {
		t.Fatalf("CumulativeBelow(0) = %d, want 0", got)
	}
	if got := s.CumulativeBelow(2); got != 5 {
		t.Fatalf("CumulativeBelow(2) = %d, want 5", got)
	}
	if got := s.CumulativeUpTo(2); got != 10 {
		t.Fatalf("CumulativeUpTo(2) = %d, want 10", got)
	}
	if got := s.CumulativeUpTo(3); got != s.Total() {
		t.Fatalf("CumulativeUpTo(last) = %d, want Total() = %d", got, s.Total())
	}
}

func TestUpdate_AddsStepAndTracksSum(t *testing.T) {
	s := New(4, 22)
	s.Update(1)
	if s.Counts[1] != 1+Step {
		t.Fatalf("Counts[1] = %d, want %d", s.Counts[1], 1+Step)
	}
	if s.Total() != uint32(4+Step) {
		t.Fatalf("Total() = %d, want %d", s.Total(), 4+Step)
	}
}

func TestUpdate_RescaleKeepsCountsAtLeastOneAndResetsSum(t *testing.T) {
	const m = 6 // threshold = 2^(6-3) = 8, small enough to trigger quickly
	s := New(2, m)
	for i := 0; i < 5; i++ {
		s.Update(0)
	}
	for i, c := range s.Counts {
		if c < 1 {
			t.Fatalf("Counts[%d] = %d, want >= 1 after rescale", i, c)
		}
	}
	var sum uint32
	for _, c := range s.Counts {
		sum += c
	}
	if sum != s.Total() {
		t.Fatalf("Sum field %d does not match recomputed total %d", s.Total(), sum)
	}
}

func TestFind_LocatesContainingOutcome(t *testing.T) {
	s := New(4, 22)
	s.Counts = []uint32{2, 3, 5, 1}
	s.Sum = 11

	cases := []struct {
		scaled uint32
		want   int
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{4, 1},
		{5, 2},
		{9, 2},
		{10, 3},
	}
	for _, c := range cases {
		if got := s.Find(c.scaled); got != c.want {
			t.Fatalf("Find(%d) = %d, want %d", c.scaled, got, c.want)
		}
	}
}
