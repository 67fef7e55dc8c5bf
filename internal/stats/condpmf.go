// Package stats implements the per-column conditional PMF list: one
// unconditional PMF for column 0, and one PMF per (column, previous
// symbol) pair for columns >= 1, stored as a single flat array with an
// accessor that resolves (column, prev) to a slot.
package stats

import (
	"github.com/mrjoshuak/qvz/internal/alphabet"
	"github.com/mrjoshuak/qvz/internal/lines"
	"github.com/mrjoshuak/qvz/internal/pmf"
)

// CondPMFList holds 1 + A*(C-1) PMFs for C columns over an A-symbol
// alphabet: pmfs[0] is P(X_0), and pmfs[1+(c-1)*A+prev] is
// P(X_c | X_{c-1} = prev) for c >= 1.
type CondPMFList struct {
	Alphabet *alphabet.Alphabet
	Columns  int
	pmfs     []*pmf.PMF
}

// NewCondPMFList allocates an empty conditional PMF list for the given
// alphabet and column count.
func NewCondPMFList(a *alphabet.Alphabet, columns int) *CondPMFList {
	count := 1
	if columns > 1 {
		count += a.Size() * (columns - 1)
	}
	list := &CondPMFList{Alphabet: a, Columns: columns, pmfs: make([]*pmf.PMF, count)}
	for i := range list.pmfs {
		list.pmfs[i] = pmf.New(a)
	}
	return list
}

// index resolves (column, prev) to a flat slot.
func (l *CondPMFList) index(column int, prev alphabet.Symbol) int {
	if column == 0 {
		return 0
	}
	return 1 + (column-1)*l.Alphabet.Size() + int(prev)
}

// PMF returns the PMF for the given column and previous symbol. prev is
// ignored for column 0.
func (l *CondPMFList) PMF(column int, prev alphabet.Symbol) *pmf.PMF {
	return l.pmfs[l.index(column, prev)]
}

// CalculateStatistics increments P(X_0) and P(X_c | X_{c-1}) for every
// line in m.
func CalculateStatistics(list *CondPMFList, m *lines.Matrix) {
	m.ForEachLine(func(line []alphabet.Symbol) {
		list.PMF(0, 0).IncrementSymbol(line[0])
		for c := 1; c < len(line); c++ {
			list.PMF(c, line[c-1]).IncrementSymbol(line[c])
		}
	})
}

// Marginal computes P(X_c) by the law of total probability over
// P(X_{c-1}) and the transition PMFs P(X_c | X_{c-1}).
func Marginal(list *CondPMFList, column int, prevMarginal *pmf.PMF) *pmf.PMF {
	if column == 0 {
		return list.PMF(0, 0)
	}
	out := pmf.New(list.Alphabet)
	probs := make([]float64, list.Alphabet.Size())
	for _, prev := range list.Alphabet.Symbols() {
		pPrev := prevMarginal.ProbabilityOf(list.Alphabet.IndexOf(prev))
		if pPrev == 0 {
			continue
		}
		cond := list.PMF(column, prev)
		for y := 0; y < list.Alphabet.Size(); y++ {
			probs[y] += pPrev * cond.ProbabilityOf(y)
		}
	}
	out.SetProbabilities(probs)
	return out
}
