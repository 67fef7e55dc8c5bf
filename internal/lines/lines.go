// Package lines implements the block-structured in-memory representation
// of a fixed-width training matrix.
//
// Lines are grouped into fixed-size blocks backed by one contiguous
// symbol buffer per block, rather than one allocation per line; a line
// is a sub-slice of its block's buffer.
package lines

import (
	"bufio"
	"io"

	"github.com/pkg/errors"

	"github.com/mrjoshuak/qvz/internal/alphabet"
)

// MaxReadsPerLine is the maximum number of columns accepted in an input
// file.
const MaxReadsPerLine = 1022

// MaxLinesPerBlock bounds how many lines are grouped into one contiguous
// allocation, mirroring the original's block chunking.
const MaxLinesPerBlock = 65536

// ErrLineTooLong is returned when an input line exceeds MaxReadsPerLine
// columns.
var ErrLineTooLong = errors.New("lines: line exceeds maximum column count")

// ErrRaggedInput is returned when input lines do not share a common width.
var ErrRaggedInput = errors.New("lines: inconsistent line width")

// Block is a contiguous run of lines sharing one backing symbol buffer.
type Block struct {
	buf     []alphabet.Symbol
	columns int
}

// Line returns the i-th line within the block as a sub-slice of the
// block's shared buffer. Callers must not retain it past the block's
// lifetime if they intend to mutate it elsewhere.
func (b *Block) Line(i int) []alphabet.Symbol {
	return b.buf[i*b.columns : (i+1)*b.columns]
}

// Count returns the number of lines in the block.
func (b *Block) Count() int {
	return len(b.buf) / b.columns
}

// Matrix is the full training set: a fixed column width and a sequence of
// blocks of lines.
type Matrix struct {
	Columns int
	Blocks  []*Block
}

// NumLines returns the total number of lines across all blocks.
func (m *Matrix) NumLines() int {
	n := 0
	for _, b := range m.Blocks {
		n += b.Count()
	}
	return n
}

// Line returns the global i-th line across all blocks.
func (m *Matrix) Line(i int) []alphabet.Symbol {
	for _, b := range m.Blocks {
		c := b.Count()
		if i < c {
			return b.Line(i)
		}
		i -= c
	}
	panic("lines: index out of range")
}

// ForEachLine calls fn for every line in the matrix, in order.
func (m *Matrix) ForEachLine(fn func(line []alphabet.Symbol)) {
	for _, b := range m.Blocks {
		n := b.Count()
		for i := 0; i < n; i++ {
			fn(b.Line(i))
		}
	}
}

// Take returns a new Matrix containing only the first n lines of m (all
// of them if n <= 0 or n >= m.NumLines()). Used to carve the training
// prefix out of a fully loaded file.
func Take(m *Matrix, n int) *Matrix {
	total := m.NumLines()
	if n <= 0 || n >= total {
		n = total
	}
	out := &Matrix{Columns: m.Columns}
	if n == 0 {
		return out
	}
	buf := make([]alphabet.Symbol, 0, n*m.Columns)
	taken := 0
	m.ForEachLine(func(line []alphabet.Symbol) {
		if taken >= n {
			return
		}
		buf = append(buf, line...)
		taken++
	})
	out.Blocks = []*Block{{buf: buf, columns: m.Columns}}
	return out
}

// Subset returns a new Matrix containing only the lines at the given
// global indices, in the order given. Used to carve a cluster's member
// lines out of the full training matrix.
func Subset(m *Matrix, indices []int) *Matrix {
	out := &Matrix{Columns: m.Columns}
	if len(indices) == 0 {
		return out
	}
	buf := make([]alphabet.Symbol, 0, len(indices)*m.Columns)
	for _, idx := range indices {
		buf = append(buf, m.Line(idx)...)
	}
	out.Blocks = []*Block{{buf: buf, columns: m.Columns}}
	return out
}

// Load reads up to maxLines fixed-width ASCII+33 encoded lines from r
// (0 means all lines). Every line must have the same column count, and
// at most MaxReadsPerLine columns.
func Load(r io.Reader, maxLines int) (*Matrix, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	m := &Matrix{}
	var current []alphabet.Symbol
	count := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		m.Blocks = append(m.Blocks, &Block{buf: current, columns: m.Columns})
		current = nil
	}

	for scanner.Scan() {
		if maxLines > 0 && count >= maxLines {
			break
		}
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		if len(text) > MaxReadsPerLine {
			return nil, ErrLineTooLong
		}
		if m.Columns == 0 {
			m.Columns = len(text)
		} else if len(text) != m.Columns {
			return nil, ErrRaggedInput
		}

		for _, b := range text {
			current = append(current, alphabet.Symbol(b-33))
		}
		count++

		if len(current) >= MaxLinesPerBlock*m.Columns {
			flush()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "lines: scan input")
	}
	flush()

	return m, nil
}
