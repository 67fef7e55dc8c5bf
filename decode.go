package qvz

import (
	"bufio"
	"io"

	"github.com/mrjoshuak/qvz/internal/adaptive"
	"github.com/mrjoshuak/qvz/internal/alphabet"
	"github.com/mrjoshuak/qvz/internal/arith"
	"github.com/mrjoshuak/qvz/internal/bitio"
	"github.com/mrjoshuak/qvz/internal/codebook"
	"github.com/mrjoshuak/qvz/internal/container"
	"github.com/mrjoshuak/qvz/internal/distortion"
	"github.com/mrjoshuak/qvz/internal/prng"
)

// Decode reads a container written by Encode from r and writes the
// reconstructed (lossy) QV lines to w.
func Decode(w io.Writer, r io.Reader) (*Stats, error) {
	seed, err := container.ReadHeader(r)
	if err != nil {
		return nil, wrapErr(ErrCodebookMalformed, "decode", err)
	}

	k, err := container.ReadClusterCount(r)
	if err != nil {
		return nil, wrapErr(ErrCodebookMalformed, "decode", err)
	}
	if k < 1 {
		return nil, wrapErr(ErrCodebookMalformed, "decode", errNoClusters)
	}

	a := alphabet.New(DefaultAlphabetSize)
	d := distortion.MSE(DefaultAlphabetSize)

	codebooks := make([]*codebook.Codebook, k)
	for i := 0; i < k; i++ {
		cb, err := container.ReadCodebook(r, a, d)
		if err != nil {
			return nil, wrapErr(ErrCodebookMalformed, "decode", err)
		}
		codebooks[i] = cb
	}
	if len(codebooks[0].Columns) == 0 {
		return nil, wrapErr(ErrCodebookMalformed, "decode", errNoColumns)
	}
	columns := len(codebooks[0].Columns)

	lineCount, err := container.ReadLineCount(r)
	if err != nil {
		return nil, wrapErr(ErrCodebookMalformed, "decode", err)
	}

	br := bitio.NewReader(r)
	dec, err := arith.NewDecoder(br, DefaultPrecision)
	if err != nil {
		return nil, wrapErr(ErrCoderInvariant, "decode", err)
	}
	selector := prng.NewSelector(prng.NewState(seed))

	// Mirrors the encoder: cluster ids are arithmetic-coded under their
	// own adaptive model, never written as raw bits into the coded body.
	var clusterStats *adaptive.Stats
	if k > 1 {
		clusterStats = adaptive.New(k, DefaultPrecision)
	}

	coders := make([]*symbolCoder, k)
	for i, cb := range codebooks {
		coders[i] = newSymbolCoder(cb, DefaultPrecision)
	}

	bw := bufio.NewWriter(w)
	lineBuf := make([]byte, columns+1)
	lineBuf[columns] = '\n'

	for i := uint64(0); i < lineCount; i++ {
		clusterID := 0
		if clusterStats != nil {
			clusterID, err = dec.Decode(clusterStats)
			if err != nil {
				return nil, wrapErr(ErrCoderInvariant, "decode", err)
			}
			clusterStats.Update(clusterID)
		}

		sc := coders[clusterID]
		var prevQuantized alphabet.Symbol
		last := i == lineCount-1

		for c := 0; c < columns; c++ {
			q, ctx, high := chooseQuantizer(sc, selector, c, prevQuantized)
			st := sc.statsFor(c, ctx, high)

			var outIdx int
			if last && c == columns-1 {
				// The final symbol of the final line needs no further
				// renormalization: everything the decoder needs is
				// already in the tag register, and renormalizing would
				// read past the end of a correctly terminated body.
				outIdx = dec.DecodeFinal(st)
			} else {
				outIdx, err = dec.Decode(st)
				if err != nil {
					return nil, wrapErr(ErrCoderInvariant, "decode", err)
				}
			}
			st.Update(outIdx)

			quantized := q.Output.Symbol(outIdx)
			lineBuf[c] = byte(quantized) + 33
			prevQuantized = quantized
		}

		if _, err := bw.Write(lineBuf); err != nil {
			return nil, wrapErr(ErrOutOfMemory, "decode", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return nil, wrapErr(ErrOutOfMemory, "decode", err)
	}

	return &Stats{Lines: lineCount, Columns: columns, Clusters: k}, nil
}

var (
	errNoClusters = simpleError("decode: container has zero clusters")
	errNoColumns  = simpleError("decode: codebook has zero columns")
)

type simpleError string

func (e simpleError) Error() string { return string(e) }
