package qvz

import (
	"github.com/mrjoshuak/qvz/internal/adaptive"
	"github.com/mrjoshuak/qvz/internal/alphabet"
	"github.com/mrjoshuak/qvz/internal/codebook"
	"github.com/mrjoshuak/qvz/internal/prng"
	"github.com/mrjoshuak/qvz/internal/quantizer"
)

// symbolCoder pairs one cluster's codebook with the adaptive statistics
// the arithmetic coder needs while coding against it. Stats are a flat
// structure-of-arrays keyed by (column, 2*contextIndex+{low=0,high=1}).
type symbolCoder struct {
	cb    *codebook.Codebook
	stats [][]*adaptive.Stats
}

func newSymbolCoder(cb *codebook.Codebook, m uint32) *symbolCoder {
	sc := &symbolCoder{cb: cb, stats: make([][]*adaptive.Stats, len(cb.Columns))}
	for c, col := range cb.Columns {
		arr := make([]*adaptive.Stats, 2*len(col.Contexts))
		for ctx, pair := range col.Contexts {
			arr[2*ctx] = adaptive.New(pair.Low.Output.Size(), m)
			arr[2*ctx+1] = adaptive.New(pair.High.Output.Size(), m)
		}
		sc.stats[c] = arr
	}
	return sc
}

// contextIndex resolves the admissible-context index for column c given
// the previous column's quantized symbol. Column 0 has exactly one
// (virtual) context.
func (sc *symbolCoder) contextIndex(c int, prevQuantized alphabet.Symbol) int {
	if c == 0 {
		return 0
	}
	idx := sc.cb.Columns[c].ContextAlphabet.IndexOf(prevQuantized)
	if idx == alphabet.NotFound {
		// Context never seen in training; fall back to index 0 rather
		// than panicking on pathological input.
		return 0
	}
	return idx
}

func (sc *symbolCoder) pair(c, ctx int) quantizer.Pair {
	return sc.cb.Columns[c].Contexts[ctx]
}

func (sc *symbolCoder) statsFor(c, ctx int, high bool) *adaptive.Stats {
	if high {
		return sc.stats[c][2*ctx+1]
	}
	return sc.stats[c][2*ctx]
}

// chooseQuantizer resolves the context, draws the selector, and returns
// the chosen quantizer plus the (context, low/high) coordinates the
// caller needs to drive the arithmetic coder. Encode and decode both go
// through here so their selector draws stay in lockstep.
func chooseQuantizer(sc *symbolCoder, sel *prng.Selector, c int, prevQuantized alphabet.Symbol) (q *quantizer.Quantizer, ctx int, high bool) {
	ctx = sc.contextIndex(c, prevQuantized)
	pair := sc.pair(c, ctx)
	high = sel.ChooseHigh(prng.RatioToPercent(pair.Ratio))
	if high {
		return pair.High, ctx, true
	}
	return pair.Low, ctx, false
}
