package qvz

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	mrand "math/rand"

	pkgerrors "github.com/pkg/errors"

	"github.com/mrjoshuak/qvz/internal/adaptive"
	"github.com/mrjoshuak/qvz/internal/alphabet"
	"github.com/mrjoshuak/qvz/internal/arith"
	"github.com/mrjoshuak/qvz/internal/bitio"
	"github.com/mrjoshuak/qvz/internal/cluster"
	"github.com/mrjoshuak/qvz/internal/codebook"
	"github.com/mrjoshuak/qvz/internal/container"
	"github.com/mrjoshuak/qvz/internal/distortion"
	"github.com/mrjoshuak/qvz/internal/lines"
	"github.com/mrjoshuak/qvz/internal/prng"
)

// countingWriter tracks how many bytes have passed through it, used to
// report the compressed output size.
type countingWriter struct {
	w io.Writer
	n uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint64(n)
	return n, err
}

// Encode reads fixed-width QV lines from r, trains codebooks against
// opts, and writes the encoded container to w. The PRNG seed is drawn
// from system entropy and written verbatim as the container's first
// 128 bytes, so a decoder replays the same low/high selector draws.
func Encode(w io.Writer, r io.Reader, opts Options) (*Stats, error) {
	seed, err := randomSeedWords()
	if err != nil {
		return nil, wrapErr(ErrOutOfMemory, "encode", err)
	}
	return encode(w, r, opts, prng.NewState(seed), seed)
}

func randomSeedWords() ([prng.StateWords]uint32, error) {
	var seed [prng.StateWords]uint32
	var buf [prng.StateWords * 4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return seed, err
	}
	for i := range seed {
		seed[i] = binary.LittleEndian.Uint32(buf[i*4 : i*4+4])
	}
	return seed, nil
}

func encode(w io.Writer, r io.Reader, opts Options, encState *prng.State, seedWords [prng.StateWords]uint32) (*Stats, error) {
	if opts.Ratio <= 0 || opts.Ratio > 1 {
		return nil, wrapErr(ErrCodebookMalformed, "encode", pkgerrors.Errorf("ratio %v out of (0,1]", opts.Ratio))
	}

	m, err := lines.Load(r, 0)
	if err != nil {
		return nil, classifyLoadErr("encode", err)
	}
	if m.Columns == 0 || m.NumLines() == 0 {
		return nil, wrapErr(ErrInputNotFound, "encode", pkgerrors.New("empty input"))
	}

	a := alphabet.New(DefaultAlphabetSize)
	d := distortion.MSE(DefaultAlphabetSize)
	training := lines.Take(m, opts.TrainLines)

	k := opts.clusters()
	codebooks, lineCluster, err := buildCodebooks(m, training, a, d, opts.Ratio, k)
	if err != nil {
		return nil, wrapErr(ErrOutOfMemory, "encode", err)
	}

	cw := &countingWriter{w: w}
	if err := container.WriteHeader(cw, seedWords); err != nil {
		return nil, wrapErr(ErrOutOfMemory, "encode", err)
	}
	if err := container.WriteClusterCount(cw, len(codebooks)); err != nil {
		return nil, wrapErr(ErrOutOfMemory, "encode", err)
	}
	for _, cb := range codebooks {
		if err := container.WriteCodebook(cw, cb); err != nil {
			return nil, wrapErr(ErrOutOfMemory, "encode", err)
		}
	}
	totalLines := uint64(m.NumLines())
	if err := container.WriteLineCount(cw, totalLines); err != nil {
		return nil, wrapErr(ErrOutOfMemory, "encode", err)
	}

	bw := bitio.NewWriter(cw)
	enc := arith.NewEncoder(bw, DefaultPrecision)
	selector := prng.NewSelector(encState)

	// The cluster id travels through the arithmetic coder like any other
	// symbol, under its own adaptive model. Raw bits cannot be
	// interleaved with the coded body: the coder's output lags its input
	// (pending E3 bits, unrenormalized interval state), so a bit written
	// directly between two Encode calls would land at the wrong stream
	// position for the decoder.
	var clusterStats *adaptive.Stats
	if len(codebooks) > 1 {
		clusterStats = adaptive.New(len(codebooks), DefaultPrecision)
	}

	coders := make([]*symbolCoder, len(codebooks))
	for i, cb := range codebooks {
		coders[i] = newSymbolCoder(cb, DefaultPrecision)
	}

	columns := m.Columns
	highSelect := make([]uint64, columns)
	var totalDistortion float64

	for i := 0; i < m.NumLines(); i++ {
		line := m.Line(i)
		clusterID := lineCluster[i]
		if clusterStats != nil {
			if err := enc.Encode(clusterStats, clusterID); err != nil {
				return nil, wrapErr(ErrCoderInvariant, "encode", err)
			}
			clusterStats.Update(clusterID)
		}

		sc := coders[clusterID]
		var prevQuantized alphabet.Symbol
		lineDistortion := 0.0

		for c, sym := range line {
			q, ctx, high := chooseQuantizer(sc, selector, c, prevQuantized)
			inputIdx := a.IndexOf(sym)
			quantized := q.Map[inputIdx]
			outIdx := q.Output.IndexOf(quantized)

			st := sc.statsFor(c, ctx, high)
			if err := enc.Encode(st, outIdx); err != nil {
				return nil, wrapErr(ErrCoderInvariant, "encode", err)
			}
			st.Update(outIdx)

			if high {
				highSelect[c]++
			}
			diff := float64(int(sym) - int(quantized))
			lineDistortion += diff * diff
			prevQuantized = quantized
		}
		totalDistortion += lineDistortion / float64(columns)
	}

	if err := enc.Finish(); err != nil {
		return nil, wrapErr(ErrOutOfMemory, "encode", err)
	}
	if err := bw.Flush(); err != nil {
		return nil, wrapErr(ErrOutOfMemory, "encode", err)
	}

	stats := &Stats{
		Lines:             totalLines,
		Columns:           columns,
		Clusters:          len(codebooks),
		InputBytes:        totalLines * uint64(columns+1),
		OutputBytes:       cw.n,
		AverageDistortion: totalDistortion / float64(totalLines),
		HighSelectCount:   highSelect,
	}
	return stats, nil
}

// buildCodebooks trains one codebook per cluster (or a single shared one
// when clustering is disabled) and assigns every line in the full file,
// not just the training prefix, to its nearest cluster.
func buildCodebooks(m, training *lines.Matrix, a *alphabet.Alphabet, d *distortion.Table, ratio float64, k int) ([]*codebook.Codebook, []int, error) {
	if k <= 1 {
		cb, err := codebook.Build(training, a, d, ratio)
		if err != nil {
			return nil, nil, err
		}
		return []*codebook.Codebook{cb}, make([]int, m.NumLines()), nil
	}

	rng := mrand.New(mrand.NewSource(clusterSeed(training)))
	assignment := cluster.KMeans(training, d, k, rng)

	codebooks := make([]*codebook.Codebook, k)
	for ci, c := range assignment.Clusters {
		sub := lines.Subset(training, c.Members)
		if sub.NumLines() == 0 {
			// An empty cluster still needs a codeable codebook: fall
			// back to the full training set, since a full-file line can
			// still be assigned here by the nearest-mean pass below.
			sub = training
		}
		cb, err := codebook.Build(sub, a, d, ratio)
		if err != nil {
			return nil, nil, err
		}
		codebooks[ci] = cb
	}

	lineCluster := make([]int, m.NumLines())
	for i := 0; i < m.NumLines(); i++ {
		lineCluster[i] = cluster.Nearest(m.Line(i), assignment.Clusters, d)
	}
	return codebooks, lineCluster, nil
}

// clusterSeed derives a deterministic k-means seed from the training set
// itself. The PRNG written to the container header is reserved for the
// low/high selector shared with the decoder; clustering's random start
// only needs to be reproducible for a given input.
func clusterSeed(m *lines.Matrix) int64 {
	seed := int64(m.NumLines())*1000003 + int64(m.Columns)
	if seed == 0 {
		seed = 1
	}
	return seed
}

func classifyLoadErr(op string, err error) error {
	if pkgerrors.Is(err, lines.ErrLineTooLong) {
		return wrapErr(ErrLineTooLong, op, err)
	}
	return wrapErr(ErrInputNotFound, op, err)
}
