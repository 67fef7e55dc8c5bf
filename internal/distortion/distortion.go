// Package distortion implements precomputed distortion tables used by
// quantizer design and clustering.
//
// The table is immutable once built: builders only read it. A flat
// precomputed matrix keeps the metric out of every inner loop's call
// path while leaving room for metrics other than MSE.
package distortion

// Table is a square, immutable distortion matrix d[x][y] >= 0, d[x][x] = 0.
type Table struct {
	size int
	d    [][]float64
}

// MSE builds the mean-squared-error distortion table for an alphabet of
// the given size: d[x][y] = (x-y)^2 on the symbols' numeric values.
func MSE(size int) *Table {
	t := &Table{size: size, d: make([][]float64, size)}
	for x := 0; x < size; x++ {
		t.d[x] = make([]float64, size)
		for y := 0; y < size; y++ {
			diff := float64(x - y)
			t.d[x][y] = diff * diff
		}
	}
	return t
}

// Size returns the alphabet size this table was built for.
func (t *Table) Size() int {
	return t.size
}

// At returns d(x, y).
func (t *Table) At(x, y int) float64 {
	return t.d[x][y]
}
