// Package pmf implements empirical probability mass functions over a
// shared alphabet, with lazy normalization, entropy, KL divergence, and
// weighted mixing. Counts accumulate during training; probabilities are
// recomputed on first read after any change.
package pmf

import (
	"math"

	"github.com/pkg/errors"

	"github.com/mrjoshuak/qvz/internal/alphabet"
)

// ErrAlphabetMismatch is returned when an operation requires two PMFs (or
// a PMF and a result buffer) to reference the identical alphabet.
var ErrAlphabetMismatch = errors.New("pmf: alphabet mismatch")

// PMF is an empirical probability mass function over alphabet.Alphabet.
// Counts accumulate during training; Probabilities is only valid after
// normalization, which happens lazily on first read.
type PMF struct {
	Alphabet *alphabet.Alphabet
	Counts   []uint64
	Total    uint64

	probabilities []float64
	ready         bool
}

// New allocates an empty PMF over a.
func New(a *alphabet.Alphabet) *PMF {
	return &PMF{
		Alphabet:      a,
		Counts:        make([]uint64, a.Size()),
		probabilities: make([]float64, a.Size()),
	}
}

// Increment adds one observation of the symbol at the given alphabet
// index.
func (p *PMF) Increment(index int) {
	p.Counts[index]++
	p.Total++
	p.ready = false
}

// IncrementSymbol adds one observation of the given symbol, resolving it
// to an index first.
func (p *PMF) IncrementSymbol(s alphabet.Symbol) {
	idx := p.Alphabet.IndexOf(s)
	if idx == alphabet.NotFound {
		return
	}
	p.Increment(idx)
}

// normalize recomputes Probabilities from Counts and Total if stale.
func (p *PMF) normalize() {
	if p.ready {
		return
	}
	if p.Total == 0 {
		for i := range p.probabilities {
			p.probabilities[i] = 0
		}
	} else {
		total := float64(p.Total)
		for i, c := range p.Counts {
			p.probabilities[i] = float64(c) / total
		}
	}
	p.ready = true
}

// ProbabilityOf returns the normalized probability of the symbol at the
// given index, triggering lazy normalization.
func (p *PMF) ProbabilityOf(index int) float64 {
	p.normalize()
	return p.probabilities[index]
}

// Probabilities returns the full normalized probability vector, triggering
// lazy normalization. Callers must not mutate the returned slice.
func (p *PMF) Probabilities() []float64 {
	p.normalize()
	return p.probabilities
}

// Entropy returns the Shannon entropy of p in bits, triggering lazy
// normalization.
func Entropy(p *PMF) float64 {
	p.normalize()
	h := 0.0
	for _, prob := range p.probabilities {
		if prob > 0 {
			h -= prob * math.Log2(prob)
		}
	}
	return h
}

// KL returns the Kullback-Leibler divergence D(p||q). Both PMFs must
// reference the same alphabet.
func KL(p, q *PMF) (float64, error) {
	if p.Alphabet != q.Alphabet {
		return 0, ErrAlphabetMismatch
	}
	p.normalize()
	q.normalize()
	d := 0.0
	for i := range p.probabilities {
		if q.probabilities[i] > 0 && p.probabilities[i] > 0 {
			d += p.probabilities[i] * math.Log2(p.probabilities[i]/q.probabilities[i])
		}
	}
	return d, nil
}

// Mix computes out[i] = wa*a[i] + wb*b[i] over probabilities (not counts).
// a, b, and out must all reference the same alphabet. This is a linear
// combination, not necessarily a convex one: callers wanting a valid PMF
// out must supply weights that sum to 1.
func Mix(a, b *PMF, wa, wb float64, out *PMF) error {
	if a.Alphabet != b.Alphabet || a.Alphabet != out.Alphabet {
		return ErrAlphabetMismatch
	}
	a.normalize()
	b.normalize()
	for i := range out.probabilities {
		out.probabilities[i] = wa*a.probabilities[i] + wb*b.probabilities[i]
	}
	out.ready = true
	return nil
}

// SetProbabilities overwrites p's probability vector directly (used by
// codebook construction when a PMF is derived analytically, e.g. via
// Bayes' rule, rather than accumulated from counts). Total and Counts are
// left untouched; p is marked ready.
func (p *PMF) SetProbabilities(probs []float64) {
	copy(p.probabilities, probs)
	p.ready = true
}
