package codebook

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrjoshuak/qvz/internal/alphabet"
	"github.com/mrjoshuak/qvz/internal/distortion"
	"github.com/mrjoshuak/qvz/internal/lines"
)

func loadMatrix(t *testing.T, text string) *lines.Matrix {
	t.Helper()
	m, err := lines.Load(bytes.NewReader([]byte(text)), 0)
	require.NoError(t, err)
	return m
}

func TestBuild_IdentityAtFullCompression(t *testing.T) {
	const a = 4
	var sb strings.Builder
	for i := 0; i < 400; i++ {
		for c := 0; c < 4; c++ {
			sb.WriteByte(byte(33 + (i+c)%a))
		}
		sb.WriteByte('\n')
	}
	m := loadMatrix(t, sb.String())

	d := distortion.MSE(a)
	cb, err := Build(m, alphabet.New(a), d, 1.0)
	require.NoError(t, err)
	require.Len(t, cb.Columns, 4)

	// comp=1.0 drives the target entropy up to H(p) itself. Column 0 is
	// uniform over the alphabet, so its high quantizer needs every state
	// (the identity); later contexts may need fewer, never more.
	require.Equal(t, a, cb.Columns[0].Contexts[0].High.Output.Size())
	for _, col := range cb.Columns {
		for _, pair := range col.Contexts {
			require.LessOrEqual(t, pair.High.Output.Size(), a)
		}
	}
}

func TestBuild_SingleColumnDegenerate(t *testing.T) {
	const a = 41
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteByte(byte(33 + 20))
		sb.WriteByte('\n')
	}
	m := loadMatrix(t, sb.String())

	d := distortion.MSE(a)
	cb, err := Build(m, alphabet.New(a), d, 0.5)
	require.NoError(t, err)
	require.Len(t, cb.Columns, 1)

	pair := cb.Columns[0].Contexts[0]
	require.Equal(t, 1, pair.Low.Output.Size())
	require.Equal(t, alphabet.Symbol(20), pair.Low.Output.Symbol(0))
}

func TestBuild_EmptyMatrixRejected(t *testing.T) {
	m := &lines.Matrix{Columns: 0}
	_, err := Build(m, alphabet.New(4), distortion.MSE(4), 1.0)
	require.ErrorIs(t, err, ErrEmptyColumn)
}

func TestBuild_MultiColumnQoutChaining(t *testing.T) {
	const a = 8
	var sb strings.Builder
	for i := 0; i < 500; i++ {
		for c := 0; c < 3; c++ {
			sb.WriteByte(byte(33 + (i*3+c)%a))
		}
		sb.WriteByte('\n')
	}
	m := loadMatrix(t, sb.String())

	cb, err := Build(m, alphabet.New(a), distortion.MSE(a), 0.6)
	require.NoError(t, err)
	require.Len(t, cb.Columns, 3)

	for c := 1; c < 3; c++ {
		require.Equal(t, cb.Columns[c-1].Qout.Size(), len(cb.Columns[c].Contexts))
	}
}
