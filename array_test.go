package ndwcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int) []float64 {
	vs := make([]float64, n)
	for i := range vs {
		vs[i] = float64(i)
	}
	return vs
}

func TestArraySlice(t *testing.T) {
	a, err := NewArray(ramp(24), 2, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Ndim())
	assert.Equal(t, 24, a.Size())

	v, err := a.At(1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 23.0, v)

	s, err := a.Slice(Expr{Index(1), RangeStep(0, 3, 2)})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, s.Shape())
	assert.Equal(t, []float64{12, 13, 14, 15, 20, 21, 22, 23}, s.Values())

	// views of views address the shared backing data
	s2, err := s.Slice(Expr{Index(1), Range(1, 3)})
	require.NoError(t, err)
	assert.Equal(t, []float64{21, 22}, s2.Values())

	// the source array is unchanged
	assert.Equal(t, ramp(24), a.Values())
}

func TestArrayErrors(t *testing.T) {
	_, err := NewArray(ramp(5), 2, 3)
	assert.ErrorIs(t, err, ErrCountMismatch)

	a, err := NewArray(ramp(6), 2, 3)
	require.NoError(t, err)
	_, err = a.At(0)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = a.At(2, 0)
	assert.ErrorIs(t, err, ErrIndex)
	_, err = a.Slice(Expr{All(), All(), All()})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	empty, err := a.Slice(Expr{Range(1, 1)})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, empty.Shape())
	assert.Empty(t, empty.Values())
}
