package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntTypeWrap(t *testing.T) {
	tests := []struct {
		typ  *IntType
		in   int64
		want int64
	}{
		{I8, 127, 127},
		{I8, 128, -128},
		{I8, 255, -1},
		{I8, -129, 127},
		{I16, 40000, -25536},
		{I32, math.MaxInt32 + 1, math.MinInt32},
		{I64, math.MinInt64, math.MinInt64},
		{I1, 2, 0},
		{I1, -1, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.Wrap(tt.in), "%s wrap %d", tt.typ, tt.in)
	}
}

func TestIntTypeRange(t *testing.T) {
	assert.Equal(t, int64(-128), I8.Min())
	assert.Equal(t, int64(127), I8.Max())
	assert.Equal(t, int64(math.MinInt64), I64.Min())
	assert.Equal(t, int64(math.MaxInt64), I64.Max())
	assert.Equal(t, int64(0), I1.Min())
	assert.Equal(t, int64(1), I1.Max())
}

func TestEvalBinary(t *testing.T) {
	tests := []struct {
		op   BinaryOp
		typ  *IntType
		a, b int64
		want int64
	}{
		{OpAdd, I32, 2, 3, 5},
		{OpAdd, I8, 100, 100, -56},
		{OpSub, I8, -128, 1, 127},
		{OpMul, I8, 16, 16, 0},
		{OpMul, I32, -4, 3, -12},
		{OpAnd, I32, 6, 3, 2},
		{OpOr, I32, 6, 3, 7},
		{OpXor, I32, 6, 3, 5},
	}

	for _, tt := range tests {
		got, err := EvalBinary(tt.op, tt.typ, tt.a, tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %s %d, %d", tt.op, tt.typ, tt.a, tt.b)
	}

	_, err := EvalBinary("udiv", I32, 1, 1)
	assert.Error(t, err)
}

func TestEvalCompareIsSigned(t *testing.T) {
	got, err := EvalCompare(PredSLT, -1, 0)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = EvalCompare(PredSLE, 0, 0)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = EvalCompare(PredNE, 3, 3)
	require.NoError(t, err)
	assert.False(t, got)

	_, err = EvalCompare("ult", 0, 0)
	assert.Error(t, err)
}

func TestLookups(t *testing.T) {
	typ, ok := LookupType("i16")
	assert.True(t, ok)
	assert.Same(t, I16, typ)

	_, ok = LookupType("i128")
	assert.False(t, ok)

	op, ok := LookupBinaryOp("mul")
	assert.True(t, ok)
	assert.Equal(t, OpMul, op)

	_, ok = LookupPredicate("ugt")
	assert.False(t, ok)
}

func TestSameType(t *testing.T) {
	assert.True(t, SameType(I32, &IntType{Bits: 32}))
	assert.False(t, SameType(I32, I64))
	assert.True(t, IsInteger(I1))
}
