package ndwcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpr(t *testing.T) {
	cases := map[string]Expr{
		"3, :, 2:10:2": {Index(3), All(), RangeStep(2, 10, 2)},
		"[:5]":         {Range(Open, 5)},
		"-1, 2:":       {Index(-1), Range(2, Open)},
		"::3":          {RangeStep(Open, Open, 3)},
		"":             {},
	}
	for in, want := range cases {
		got, err := ParseExpr(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"a", "1:2:3:4", "1:x"} {
		_, err := ParseExpr(bad)
		assert.Error(t, err, bad)
	}
	_, err := ParseExpr("1, ::0")
	assert.ErrorIs(t, err, ErrIndex)
}

func TestExprString(t *testing.T) {
	e := Expr{Index(3), All(), RangeStep(2, 10, 2), Range(Open, 4)}
	assert.Equal(t, "[3, :, 2:10:2, :4]", e.String())

	back, err := ParseExpr(e.String())
	require.NoError(t, err)
	assert.Equal(t, e, back)
}

func TestNormalize(t *testing.T) {
	shape := []int{4, 5, 6}
	got, err := Expr{Index(-1), Range(-3, Open)}.Normalize(shape)
	require.NoError(t, err)
	assert.Equal(t, Expr{Index(3), Range(2, 5), Range(0, 6)}, got)

	got, err = Expr{Range(1, 100), RangeStep(Open, Open, 2), Range(4, 2)}.Normalize(shape)
	require.NoError(t, err)
	assert.Equal(t, Expr{Range(1, 4), RangeStep(0, 5, 2), Range(4, 4)}, got)
	assert.Equal(t, 3, got[0].length())
	assert.Equal(t, 3, got[1].length())
	assert.Equal(t, 0, got[2].length())

	_, err = Expr{Index(4)}.Normalize(shape)
	assert.ErrorIs(t, err, ErrIndex)
	_, err = Expr{Index(-5)}.Normalize(shape)
	assert.ErrorIs(t, err, ErrIndex)
	_, err = Expr{All(), All(), All(), All()}.Normalize(shape)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = Expr{RangeStep(0, 4, -1)}.Normalize(shape)
	assert.ErrorIs(t, err, ErrIndex)
	_, err = Expr{RangeStep(0, 4, 0)}.Normalize(shape)
	assert.ErrorIs(t, err, ErrIndex)
	_, err = Expr{SliceSpec{}}.Normalize(shape)
	require.NoError(t, err, "the zero SliceSpec keeps the whole axis")
}

func TestSelection(t *testing.T) {
	shape := []int{2, 3}
	norm, err := Expr{All(), Index(1)}.Normalize(shape)
	require.NoError(t, err)
	outShape, flat := selection(shape, norm)
	assert.Equal(t, []int{2}, outShape)
	assert.Equal(t, []int{1, 4}, flat)
}
