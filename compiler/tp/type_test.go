package tp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/slow/src/compiler/tp"
)

func TestSizes(t *testing.T) {
	reg := tp.NewRegistry()

	assert.Equal(t, 1, tp.Bool.Size(reg))
	assert.Equal(t, 1, tp.Char.Size(reg))
	assert.Equal(t, 4, tp.I32.Size(reg))
	assert.Equal(t, 8, tp.I64.Size(reg))
	assert.Equal(t, 8, tp.U64.Size(reg))
	assert.Equal(t, 8, tp.F64.Size(reg))
	assert.Equal(t, 8, tp.Nullptr.Size(reg))
	assert.Equal(t, 8, tp.Ptr(tp.I64).Size(reg))
	assert.Equal(t, 16, tp.Span(tp.I64).Size(reg))
	assert.Equal(t, 12, tp.Array(tp.I32, 3).Size(reg))
}

func TestZeroSizeStruct(t *testing.T) {
	reg := tp.NewRegistry()

	require.NoError(t, reg.Add("Empty", nil, nil))

	assert.Equal(t, 1, reg.SizeOfStruct("Empty"))
}

func TestStructFieldOffsets(t *testing.T) {
	reg := tp.NewRegistry()

	require.NoError(t, reg.Add("Point", []tp.Field{
		{Name: "x", Type: tp.I64},
		{Name: "y", Type: tp.I64},
	}, nil))

	_, xoff, err := reg.FieldOffset("Point", "x")
	require.NoError(t, err)
	assert.Equal(t, 0, xoff)

	_, yoff, err := reg.FieldOffset("Point", "y")
	require.NoError(t, err)
	assert.Equal(t, 8, yoff)

	assert.Equal(t, 16, reg.SizeOfStruct("Point"))
}

func TestDuplicateAddFails(t *testing.T) {
	reg := tp.NewRegistry()

	require.NoError(t, reg.Add("Foo", nil, nil))
	assert.Error(t, reg.Add("Foo", nil, nil))
}

func TestTemplateInstantiationNominalEquality(t *testing.T) {
	a := tp.StructType(tp.InstantiationName("Box", []tp.Type{tp.I32}))
	b := tp.StructType(tp.InstantiationName("Box", []tp.Type{tp.I32}))
	c := tp.StructType(tp.InstantiationName("Box", []tp.Type{tp.I64}))

	assert.True(t, tp.Equal(a, b))
	assert.False(t, tp.Equal(a, c))
}

func TestConstConvertibility(t *testing.T) {
	assert.True(t, tp.ConstConvertibleTo(tp.I64, tp.I64))
	assert.True(t, tp.ConstConvertibleTo(tp.I64, tp.I64.WithConst(true)))
	assert.False(t, tp.ConstConvertibleTo(tp.I64.WithConst(true), tp.I64))

	// const propagates through pointers/spans: adding const deeper may not
	// be silently dropped.
	constPtr := tp.Ptr(tp.I64.WithConst(true))
	mutPtr := tp.Ptr(tp.I64)
	assert.False(t, tp.ConstConvertibleTo(constPtr, mutPtr))
	assert.True(t, tp.ConstConvertibleTo(mutPtr, constPtr))

	assert.True(t, tp.ConstConvertibleTo(tp.Nullptr, tp.Ptr(tp.I64)))
	assert.True(t, tp.ConstConvertibleTo(tp.Nullptr, tp.Span(tp.I64)))
}
