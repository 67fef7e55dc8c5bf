// Package codebook builds the per-column, per-context conditional
// quantizer list: column 0 is quantized unconditionally, and every later
// column is quantized once per admissible left context drawn from the
// previous column's output alphabet.
//
// Ownership is hierarchical: a Codebook owns one Column per input
// column, each Column owns its per-context quantizer.Pair list and its
// derived output alphabet. No back-references.
package codebook

import (
	"github.com/pkg/errors"

	"github.com/mrjoshuak/qvz/internal/alphabet"
	"github.com/mrjoshuak/qvz/internal/distortion"
	"github.com/mrjoshuak/qvz/internal/lines"
	"github.com/mrjoshuak/qvz/internal/pmf"
	"github.com/mrjoshuak/qvz/internal/quantizer"
	"github.com/mrjoshuak/qvz/internal/stats"
)

// ErrEmptyColumn is returned when a training matrix has zero columns.
var ErrEmptyColumn = errors.New("codebook: matrix has no columns")

// Column holds the quantizer pair for every admissible left context in
// one column, plus the union of their output alphabets (Qout), which
// becomes the admissible left-context set for the next column.
type Column struct {
	// Contexts[i] is the quantizer pair designed for the i-th symbol of
	// ContextAlphabet (column 0 has exactly one context, the unconditional
	// one, and ContextAlphabet is nil).
	Contexts []quantizer.Pair

	// ContextAlphabet lists the left-context symbols each entry of
	// Contexts corresponds to, in order. Column 0 leaves this nil.
	ContextAlphabet *alphabet.Alphabet

	// Qout is the union of output alphabets of every pair in Contexts:
	// the admissible left-context set for the next column.
	Qout *alphabet.Alphabet
}

// Codebook is the full conditional-quantizer list for one cluster: one
// Column per position in the training lines.
type Codebook struct {
	Alphabet   *alphabet.Alphabet
	Distortion *distortion.Table
	Ratio      float64 // compression target passed to Build (comp)
	Columns    []Column
}

// qpmf is the running P(Q_c = u | X_c = x) table used to propagate
// context likelihoods into the next column's Bayes' rule computation.
type qpmf struct {
	qout  *alphabet.Alphabet
	probs [][]float64 // probs[x][u], x indexed by base alphabet, u by qout
}

func newQPMFFromPair(a *alphabet.Alphabet, qout *alphabet.Alphabet, pair quantizer.Pair) *qpmf {
	q := &qpmf{qout: qout, probs: make([][]float64, a.Size())}
	for x := 0; x < a.Size(); x++ {
		row := make([]float64, qout.Size())
		lowOut := pair.Low.Map[x]
		highOut := pair.High.Map[x]
		row[qout.IndexOf(lowOut)] += pair.Ratio
		row[qout.IndexOf(highOut)] += 1 - pair.Ratio
		q.probs[x] = row
	}
	return q
}

// Build trains a codebook over m's lines against alphabet a and
// distortion d at compression target comp: it accumulates conditional
// statistics, selects the column-0 pair, then walks the remaining
// columns selecting one pair per admissible left context.
func Build(m *lines.Matrix, a *alphabet.Alphabet, d *distortion.Table, comp float64) (*Codebook, error) {
	if m.Columns == 0 {
		return nil, ErrEmptyColumn
	}

	list := stats.NewCondPMFList(a, m.Columns)
	stats.CalculateStatistics(list, m)

	marginals := make([]*pmf.PMF, m.Columns)
	marginals[0] = stats.Marginal(list, 0, nil)
	for c := 1; c < m.Columns; c++ {
		marginals[c] = stats.Marginal(list, c, marginals[c-1])
	}

	cb := &Codebook{Alphabet: a, Distortion: d, Ratio: comp, Columns: make([]Column, m.Columns)}

	// Column 0: one unconditional pair.
	pair0, err := quantizer.Select(marginals[0], d, comp)
	if err != nil {
		return nil, err
	}
	qout0 := alphabet.Union(pair0.Low.Output, pair0.High.Output)
	cb.Columns[0] = Column{Contexts: []quantizer.Pair{pair0}, Qout: qout0}

	q := newQPMFFromPair(a, qout0, pair0)

	// Columns 1..C-1: one pair per admissible left context.
	for c := 1; c < m.Columns; c++ {
		prevQout := cb.Columns[c-1].Qout
		contexts := prevQout.Symbols()
		entries := make([]quantizer.Pair, len(contexts))

		for i, ctx := range contexts {
			condPMF := bayesConditional(list, a, c, ctx, marginals[c-1], marginals[c], q)
			pair, err := quantizer.Select(condPMF, d, comp)
			if err != nil {
				return nil, err
			}
			entries[i] = pair
		}

		newQout := unionEntries(entries)
		cb.Columns[c] = Column{
			Contexts:        entries,
			ContextAlphabet: alphabet.Duplicate(prevQout),
			Qout:            newQout,
		}

		q = updateQPMF(a, newQout, prevQout, q, marginals[c-1], entries)
	}

	return cb, nil
}

// bayesConditional computes P(X_c = y | Q_{c-1} = ctx) by Bayes' rule:
// weighting the transition PMF P(X_c | X_{c-1}=x) by
// P(X_{c-1}=x)*P(Q_{c-1}=ctx | X_{c-1}=x), summed over x, normalized.
func bayesConditional(list *stats.CondPMFList, a *alphabet.Alphabet, c int, ctx alphabet.Symbol, prevMarginal, colMarginal *pmf.PMF, q *qpmf) *pmf.PMF {
	ctxIdx := q.qout.IndexOf(ctx)
	numer := make([]float64, a.Size())
	denom := 0.0

	for xi, x := range a.Symbols() {
		weight := prevMarginal.ProbabilityOf(xi) * q.probs[xi][ctxIdx]
		if weight == 0 {
			continue
		}
		denom += weight
		cond := list.PMF(c, x)
		for y := 0; y < a.Size(); y++ {
			numer[y] += weight * cond.ProbabilityOf(y)
		}
	}

	out := pmf.New(a)
	if denom == 0 {
		// Context unreachable under training data: fall back to the
		// column's unconditional marginal so a quantizer can still be
		// designed for it.
		out.SetProbabilities(colMarginal.Probabilities())
		return out
	}
	for y := range numer {
		numer[y] /= denom
	}
	out.SetProbabilities(numer)
	return out
}

// updateQPMF derives P(Q_c = u | X_c = y) from the per-context pairs just
// chosen for column c, weighting each context by its marginal probability
// P(Q_{c-1} = ctx) derived from the previous qpmf and marginal, then
// renormalizing over u for each y.
func updateQPMF(a, newQout, prevQout *alphabet.Alphabet, prev *qpmf, prevMarginal *pmf.PMF, entries []quantizer.Pair) *qpmf {
	ctxWeight := make([]float64, prevQout.Size())
	for xi := range a.Symbols() {
		px := prevMarginal.ProbabilityOf(xi)
		for u := 0; u < prevQout.Size(); u++ {
			ctxWeight[u] += px * prev.probs[xi][u]
		}
	}

	out := &qpmf{qout: newQout, probs: make([][]float64, a.Size())}
	for y := 0; y < a.Size(); y++ {
		row := make([]float64, newQout.Size())
		for ci, pair := range entries {
			w := ctxWeight[ci]
			if w == 0 {
				continue
			}
			lowOut := pair.Low.Map[y]
			highOut := pair.High.Map[y]
			row[newQout.IndexOf(lowOut)] += w * pair.Ratio
			row[newQout.IndexOf(highOut)] += w * (1 - pair.Ratio)
		}
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		if sum > 0 {
			for i := range row {
				row[i] /= sum
			}
		}
		out.probs[y] = row
	}
	return out
}

func unionEntries(entries []quantizer.Pair) *alphabet.Alphabet {
	out := alphabet.Empty()
	for _, pair := range entries {
		for _, s := range pair.Low.Output.Symbols() {
			out.Add(s)
		}
		for _, s := range pair.High.Output.Symbols() {
			out.Add(s)
		}
	}
	return out
}
