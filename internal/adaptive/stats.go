// Package adaptive implements per-(column, context) adaptive count
// arrays used by the arithmetic coder.
//
// Counts start at 1 for every outcome in the applicable output alphabet
// (so every symbol stays codeable), each coded outcome adds Step, and
// crossing 2^(m-3) total triggers a halve-and-+1 rescale that keeps
// every count >= 1.
package adaptive

// Step is added to a symbol's count on every coded occurrence.
const Step = 8

// Stats is one adaptive count array over an output alphabet of a given
// size, plus the running sum used to decide when to rescale.
type Stats struct {
	Counts []uint32
	Sum    uint32
	m      uint32
}

// New allocates adaptive stats over `size` outcomes, coded with precision
// m bits. Every count starts at 1.
func New(size int, m uint32) *Stats {
	s := &Stats{Counts: make([]uint32, size), m: m}
	for i := range s.Counts {
		s.Counts[i] = 1
	}
	s.Sum = uint32(size)
	return s
}

// CumulativeBelow returns the cumulative count of all outcomes strictly
// below index (F[<x]).
func (s *Stats) CumulativeBelow(index int) uint32 {
	var sum uint32
	for i := 0; i < index; i++ {
		sum += s.Counts[i]
	}
	return sum
}

// CumulativeUpTo returns the cumulative count of all outcomes up to and
// including index (F[<=x]).
func (s *Stats) CumulativeUpTo(index int) uint32 {
	return s.CumulativeBelow(index) + s.Counts[index]
}

// Total returns N, the running sum of all counts.
func (s *Stats) Total() uint32 {
	return s.Sum
}

// Update adds Step to the count for index, then rescales if the running
// sum has crossed 2^(m-3).
func (s *Stats) Update(index int) {
	s.Counts[index] += Step
	s.Sum += Step

	threshold := uint32(1) << (s.m - 3)
	if s.Sum < threshold {
		return
	}

	s.Sum = 0
	for i := range s.Counts {
		s.Counts[i] = (s.Counts[i] >> 1) + 1
		s.Sum += s.Counts[i]
	}
}

// Find returns the smallest index x such that scaledSubRange is covered
// by the cumulative count up to and including x. It is the decoder's
// search over cumulative counts.
func (s *Stats) Find(scaledSubRange uint32) int {
	var cum uint32
	x := 0
	for {
		cum += s.Counts[x]
		if scaledSubRange < cum {
			return x
		}
		x++
	}
}
