package quantizer

import (
	"github.com/mrjoshuak/qvz/internal/distortion"
	"github.com/mrjoshuak/qvz/internal/pmf"
)

// Pair is a low/high quantizer pair and the mixing ratio between them.
type Pair struct {
	Low   *Quantizer
	High  *Quantizer
	Ratio float64
}

// Select designs quantizers of increasing state count against p until the
// induced entropy reaches comp*H(p), then returns the bracketing low/high
// pair and the mixing ratio that linearly interpolates between their
// entropies to hit the target exactly.
func Select(p *pmf.PMF, d *distortion.Table, comp float64) (Pair, error) {
	target := comp * pmf.Entropy(p)
	size := p.Alphabet.Size()

	var low, high *Quantizer
	var lowH, highH float64

	for states := 1; states <= size; states++ {
		q, err := Generate(p, d, states)
		if err != nil {
			return Pair{}, err
		}
		induced := Apply(q, p)
		h := pmf.Entropy(induced)

		if h >= target {
			high = q
			highH = h
			break
		}
		low = q
		lowH = h
	}

	if high == nil {
		// No state count reached the target; the full-size (identity)
		// quantizer is both the low and high bound.
		high = low
		highH = lowH
	}

	var ratio float64
	switch {
	case low == nil:
		ratio = 0
	case highH == lowH:
		ratio = 1
	default:
		ratio = (target - highH) / (lowH - highH)
		if ratio < 0 {
			ratio = 0
		}
		if ratio > 1 {
			ratio = 1
		}
	}

	if low == nil {
		low = high
	}

	low.Ratio = ratio
	high.Ratio = ratio

	return Pair{Low: low, High: high, Ratio: ratio}, nil
}
