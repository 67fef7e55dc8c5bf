// Package arith implements a binary range coder: an m-bit precision
// interval coder with E1/E2/E3 rescaling, driven by per-symbol
// cumulative counts supplied by internal/adaptive.
//
// Encoder and Decoder are two small structs holding register state
// (l/u/t/e3) with Encode/Decode methods that loop on a renormalization
// condition and call out to a bit sink or source. The probability model
// lives entirely behind CumulativeStats; the coder itself is
// model-agnostic.
package arith

import (
	"github.com/pkg/errors"

	"github.com/mrjoshuak/qvz/internal/bitio"
)

// ErrInvariant is returned when an interval update leaves u below l,
// which can only happen through a bug or a corrupted stream.
var ErrInvariant = errors.New("arith: interval invariant violated")

// CumulativeStats is the minimal view an arith coder needs of a symbol's
// adaptive statistics: cumulative counts below and up to an outcome, the
// running total N, and (for decoding) a search from a scaled sub-range
// back to an outcome index.
type CumulativeStats interface {
	CumulativeBelow(index int) uint32
	CumulativeUpTo(index int) uint32
	Total() uint32
	Find(scaledSubRange uint32) int
}

// Encoder holds range-coder register state: lower bound l, upper bound u,
// and a pending-bit counter e3 for the E3 condition.
type Encoder struct {
	m    uint32
	l, u uint32
	e3   uint32
	w    *bitio.Writer
}

// NewEncoder creates a range encoder at precision m bits, writing coded
// bits to w.
func NewEncoder(w *bitio.Writer, m uint32) *Encoder {
	return &Encoder{
		m: m,
		l: 0,
		u: (uint32(1) << m) - 1,
		w: w,
	}
}

// Encode codes symbol index x against stats, narrowing the interval and
// emitting bits as renormalization requires.
func (e *Encoder) Encode(stats CumulativeStats, x int) error {
	rangeSize := uint64(e.u-e.l) + 1
	n := uint64(stats.Total())
	cumUp := uint64(stats.CumulativeUpTo(x))
	cumBelow := uint64(stats.CumulativeBelow(x))

	e.u = e.l + uint32((rangeSize*cumUp)/n) - 1
	e.l = e.l + uint32((rangeSize*cumBelow)/n)
	if e.u < e.l {
		return ErrInvariant
	}

	return e.renorm()
}

func (e *Encoder) top() (msbL, msbU uint32, e1e2, e3 bool) {
	msbL = e.l >> (e.m - 1)
	msbU = e.u >> (e.m - 1)
	e1e2 = msbL == msbU
	if !e1e2 {
		smsbL := (e.l >> (e.m - 2)) & 1
		smsbU := (e.u >> (e.m - 2)) & 1
		e3 = smsbL == 1 && smsbU == 0
	}
	return
}

func (e *Encoder) renorm() error {
	msbL, _, e1e2, e3 := e.top()

	for e1e2 || e3 {
		if e1e2 {
			if err := e.w.WriteBit(int(msbL)); err != nil {
				return err
			}
			e.l = (e.l << 1) & ((1 << e.m) - 1)
			e.u = ((e.u << 1) | 1) & ((1 << e.m) - 1)

			for e.e3 > 0 {
				if err := e.w.WriteBit(int(1 - msbL)); err != nil {
					return err
				}
				e.e3--
			}
		} else {
			e.e3++
			e.l = (e.l << 1) & ((1 << e.m) - 1)
			e.u = ((e.u << 1) | 1) & ((1 << e.m) - 1)
			half := uint32(1) << (e.m - 1)
			e.l ^= half
			e.u ^= half
		}
		msbL, _, e1e2, e3 = e.top()
	}
	return nil
}

// Finish emits the closing bits of the stream: MSB(l), its complement
// e3 times, then the remaining m-1 bits of l.
func (e *Encoder) Finish() error {
	msbL := e.l >> (e.m - 1)
	if err := e.w.WriteBit(int(msbL)); err != nil {
		return err
	}
	for e.e3 > 0 {
		if err := e.w.WriteBit(int(1 - msbL)); err != nil {
			return err
		}
		e.e3--
	}
	return e.w.WriteBits(uint64(e.l), uint(e.m-1))
}

// Decoder mirrors Encoder, tracking an additional tag register t read
// from the coded body.
type Decoder struct {
	m    uint32
	l, u uint32
	t    uint32
	r    *bitio.Reader
}

// NewDecoder creates a range decoder at precision m bits, reading coded
// bits from r. The first m bits of the body are read into the tag
// register.
func NewDecoder(r *bitio.Reader, m uint32) (*Decoder, error) {
	d := &Decoder{
		m: m,
		l: 0,
		u: (uint32(1) << m) - 1,
		r: r,
	}
	t, err := r.ReadBits(uint(m))
	if err != nil {
		return nil, err
	}
	d.t = uint32(t)
	return d, nil
}

func (d *Decoder) top() (msbL, msbU uint32, e1e2, e3 bool) {
	msbL = d.l >> (d.m - 1)
	msbU = d.u >> (d.m - 1)
	e1e2 = msbL == msbU
	if !e1e2 {
		smsbL := (d.l >> (d.m - 2)) & 1
		smsbU := (d.u >> (d.m - 2)) & 1
		e3 = smsbL == 1 && smsbU == 0
	}
	return
}

// Decode finds and returns the next symbol index coded against stats,
// narrowing the interval and tag register as needed.
func (d *Decoder) Decode(stats CumulativeStats) (int, error) {
	rangeSize := uint64(d.u-d.l) + 1
	tagGap := uint64(d.t-d.l) + 1
	n := uint64(stats.Total())

	subRange := uint32((tagGap*n - 1) / rangeSize)
	x := stats.Find(subRange)

	cumUp := uint64(stats.CumulativeUpTo(x))
	cumBelow := uint64(stats.CumulativeBelow(x))

	d.u = d.l + uint32((rangeSize*cumUp)/n) - 1
	d.l = d.l + uint32((rangeSize*cumBelow)/n)
	if d.u < d.l {
		return 0, ErrInvariant
	}

	if err := d.renorm(); err != nil {
		return 0, err
	}
	return x, nil
}

// DecodeFinal finds the next symbol index coded against stats without
// renormalizing the interval afterward. The very last symbol of a stream
// needs no further bits: renormalizing would read past the end of a
// correctly terminated body. Callers must know, independent of the
// coder, which symbol is last (the container's line count).
func (d *Decoder) DecodeFinal(stats CumulativeStats) int {
	rangeSize := uint64(d.u-d.l) + 1
	tagGap := uint64(d.t-d.l) + 1
	n := uint64(stats.Total())

	subRange := uint32((tagGap*n - 1) / rangeSize)
	return stats.Find(subRange)
}

func (d *Decoder) renorm() error {
	_, _, e1e2, e3 := d.top()

	for e1e2 || e3 {
		mask := (uint32(1) << d.m) - 1
		if e1e2 {
			d.l = (d.l << 1) & mask
			d.u = ((d.u << 1) | 1) & mask

			bit, err := d.r.ReadBit()
			if err != nil {
				return err
			}
			d.t = ((d.t << 1) & mask) | uint32(bit)
		} else {
			d.l = (d.l << 1) & mask
			d.u = ((d.u << 1) | 1) & mask

			bit, err := d.r.ReadBit()
			if err != nil {
				return err
			}
			d.t = ((d.t << 1) & mask) | uint32(bit)

			half := uint32(1) << (d.m - 1)
			d.l ^= half
			d.u ^= half
			d.t ^= half
		}
		_, _, e1e2, e3 = d.top()
	}
	return nil
}
