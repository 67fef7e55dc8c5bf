package lines

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrjoshuak/qvz/internal/alphabet"
)

func TestLoad_ParsesFixedWidthColumns(t *testing.T) {
	input := "!\"#\n$%&\n"
	m, err := Load(strings.NewReader(input), 0)
	require.NoError(t, err)
	require.Equal(t, 3, m.Columns)
	require.Equal(t, 2, m.NumLines())
	require.Equal(t, []alphabet.Symbol{0, 1, 2}, m.Line(0))
	require.Equal(t, []alphabet.Symbol{3, 4, 5}, m.Line(1))
}

func TestLoad_RejectsRaggedInput(t *testing.T) {
	_, err := Load(strings.NewReader("!!\n!\n"), 0)
	require.ErrorIs(t, err, ErrRaggedInput)
}

func TestLoad_RejectsLineTooLong(t *testing.T) {
	long := strings.Repeat("!", MaxReadsPerLine+1) + "\n"
	_, err := Load(strings.NewReader(long), 0)
	require.ErrorIs(t, err, ErrLineTooLong)
}

func TestLoad_HonorsMaxLines(t *testing.T) {
	input := "!!\n\"\"\n##\n"
	m, err := Load(strings.NewReader(input), 2)
	require.NoError(t, err)
	require.Equal(t, 2, m.NumLines())
}

func TestTake_PrefixOfRequestedSize(t *testing.T) {
	m, err := Load(strings.NewReader("!!\n\"\"\n##\n$$\n"), 0)
	require.NoError(t, err)

	prefix := Take(m, 2)
	require.Equal(t, 2, prefix.NumLines())
	require.Equal(t, m.Line(0), prefix.Line(0))
	require.Equal(t, m.Line(1), prefix.Line(1))
}

func TestTake_NonPositiveOrOversizedReturnsAll(t *testing.T) {
	m, err := Load(strings.NewReader("!!\n\"\"\n"), 0)
	require.NoError(t, err)

	require.Equal(t, m.NumLines(), Take(m, 0).NumLines())
	require.Equal(t, m.NumLines(), Take(m, -1).NumLines())
	require.Equal(t, m.NumLines(), Take(m, 100).NumLines())
}

func TestSubset_PicksRequestedIndicesInOrder(t *testing.T) {
	m, err := Load(strings.NewReader("!!\n\"\"\n##\n"), 0)
	require.NoError(t, err)

	sub := Subset(m, []int{2, 0})
	require.Equal(t, 2, sub.NumLines())
	require.Equal(t, m.Line(2), sub.Line(0))
	require.Equal(t, m.Line(0), sub.Line(1))
}

func TestSubset_Empty(t *testing.T) {
	m, err := Load(strings.NewReader("!!\n"), 0)
	require.NoError(t, err)

	sub := Subset(m, nil)
	require.Equal(t, 0, sub.NumLines())
}
