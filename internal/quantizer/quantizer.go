// Package quantizer designs Lloyd-Max scalar quantizers against an
// empirical PMF and a distortion table, and selects low/high quantizer
// pairs that bracket a target entropy.
//
// A Quantizer owns its output alphabet and input->output map, computed
// from an input PMF it does not own. Design alternates reconstruction
// and boundary updates until fixpoint or MaxIter.
package quantizer

import (
	"math"

	"github.com/pkg/errors"

	"github.com/mrjoshuak/qvz/internal/alphabet"
	"github.com/mrjoshuak/qvz/internal/distortion"
	"github.com/mrjoshuak/qvz/internal/pmf"
)

// MaxIter bounds the Lloyd-Max alternation.
const MaxIter = 100

// ErrStateCount is returned when states is out of [1, alphabet size].
var ErrStateCount = errors.New("quantizer: state count out of range")

// Quantizer is a many-to-one map from an input alphabet to an owned output
// alphabet, built to minimize expected distortion under a PMF.
type Quantizer struct {
	Input  *alphabet.Alphabet
	Output *alphabet.Alphabet

	// Map[i] is the output alphabet value (not index) for input symbol i.
	Map []alphabet.Symbol

	// ExpectedDistortion is the MSE (or other distortion) achieved by this
	// quantizer against the PMF it was designed from.
	ExpectedDistortion float64

	// Ratio is the low/high mixing ratio this quantizer was paired with
	// by Select. It is 0 for a quantizer built standalone.
	Ratio float64
}

// Generate builds a quantizer with exactly `states` reconstruction points
// for p, using d as the distortion metric.
func Generate(p *pmf.PMF, d *distortion.Table, states int) (*Quantizer, error) {
	size := p.Alphabet.Size()
	if states < 1 || states > size {
		return nil, ErrStateCount
	}

	bounds := make([]int, states+1)
	recon := make([]int, states)

	bounds[0] = 0
	bounds[states] = size
	for j := 1; j < states; j++ {
		bounds[j] = (j * size) / states
	}
	for j := 0; j < states; j++ {
		recon[j] = (bounds[j] + bounds[j+1] - 1) / 2
	}

	changed := true
	for iter := 0; changed && iter < MaxIter; iter++ {
		changed = false

		// Reconstruction step: for fixed bounds, pick the point in each
		// region minimizing expected distortion.
		for j := 0; j < states; j++ {
			minR := bestReconstruction(p, d, bounds[j], bounds[j+1])
			if minR != recon[j] {
				changed = true
				recon[j] = minR
			}
		}

		// Boundary step: walk interior points left to right, moving a
		// boundary forward whenever the next reconstruction point is
		// strictly closer. Ties keep the current boundary.
		r := 0
		for j := 1; j < size-1 && r < states-1; j++ {
			mse := d.At(j, recon[r])
			nextMSE := d.At(j, recon[r+1])
			if nextMSE < mse {
				r++
				bounds[r] = j
			}
		}
	}

	// The boundary walk can leave a never-visited boundary at or below an
	// updated earlier one, producing empty regions whose reconstruction
	// points then collide. Restore strictly increasing bounds and re-pick
	// each reconstruction inside its own region, so the output alphabet
	// always holds exactly `states` distinct values.
	for j := 1; j < states; j++ {
		if bounds[j] <= bounds[j-1] {
			bounds[j] = bounds[j-1] + 1
		}
	}
	for j := states - 1; j >= 1; j-- {
		if bounds[j] > size-(states-j) {
			bounds[j] = size - (states - j)
		}
	}
	for j := 0; j < states; j++ {
		recon[j] = bestReconstruction(p, d, bounds[j], bounds[j+1])
	}

	q := &Quantizer{
		Input: p.Alphabet,
		Map:   make([]alphabet.Symbol, size),
	}
	out := alphabet.Empty()
	for j := 0; j < states; j++ {
		out.Add(alphabet.Symbol(recon[j]))
	}
	q.Output = out

	for j := 0; j < states; j++ {
		for i := bounds[j]; i < bounds[j+1]; i++ {
			q.Map[i] = alphabet.Symbol(recon[j])
		}
	}

	mse := 0.0
	for j := 0; j < states; j++ {
		for i := bounds[j]; i < bounds[j+1]; i++ {
			mse += d.At(i, recon[j]) * p.ProbabilityOf(i)
		}
	}
	q.ExpectedDistortion = mse

	return q, nil
}

// bestReconstruction returns the point in [lo, hi) with the lowest
// expected distortion for the region under p. Ties favor the smallest
// point, since a candidate only replaces the incumbent on strictly
// lower distortion.
func bestReconstruction(p *pmf.PMF, d *distortion.Table, lo, hi int) int {
	minMSE := math.MaxFloat64
	minR := lo
	for r := lo; r < hi; r++ {
		mse := 0.0
		for i := lo; i < hi; i++ {
			mse += p.ProbabilityOf(i) * d.At(i, r)
		}
		if mse < minMSE {
			minMSE = mse
			minR = r
		}
	}
	return minR
}

// Apply computes the induced PMF over q's output alphabet when symbols
// are drawn from p and mapped through q: the post-quantization marginal
// that pair selection measures its entropy against.
func Apply(q *Quantizer, p *pmf.PMF) *pmf.PMF {
	out := pmf.New(q.Output)
	probs := make([]float64, q.Output.Size())
	for i := 0; i < p.Alphabet.Size(); i++ {
		outIdx := q.Output.IndexOf(q.Map[i])
		probs[outIdx] += p.ProbabilityOf(i)
	}
	out.SetProbabilities(probs)
	return out
}

// Identity returns the identity quantizer over a (one state per symbol).
func Identity(a *alphabet.Alphabet) *Quantizer {
	q := &Quantizer{
		Input:  a,
		Output: alphabet.Duplicate(a),
		Map:    make([]alphabet.Symbol, a.Size()),
	}
	for i, s := range a.Symbols() {
		q.Map[i] = s
	}
	return q
}
