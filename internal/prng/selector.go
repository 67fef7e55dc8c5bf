package prng

// Selector picks between a low and high quantizer at each coded symbol,
// driven by a shared State. Ratio is an integer percent in [0, 100],
// matching the container format's one-byte ratio*100 field so the
// serialized value round-trips exactly: draw % 100 >= ratioPct picks
// high, otherwise low.
type Selector struct {
	state *State
}

// NewSelector wraps state for use as a low/high selector. Multiple
// Selectors sharing the same *State are not safe for concurrent use, but
// encode and decode each own an independent State built from the same
// seed, so their Selectors advance in lockstep deterministically.
func NewSelector(state *State) *Selector {
	return &Selector{state: state}
}

// ChooseHigh draws the next PRNG value and reports whether the high
// quantizer should be used for ratioPct (an integer percent in [0,100]).
func (s *Selector) ChooseHigh(ratioPct int) bool {
	draw := s.state.Next() % 100
	return int(draw) >= ratioPct
}

// RatioToPercent converts a ratio in [0,1] to the integer percent stored
// in the container format.
func RatioToPercent(ratio float64) int {
	pct := int(ratio*100 + 0.5)
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}

// PercentToRatio converts a stored integer percent back to [0,1].
func PercentToRatio(pct int) float64 {
	return float64(pct) / 100.0
}
