package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/slow/src/compiler/scope"
	"github.com/slowlang/slow/src/compiler/tp"
)

func TestDeclareFindShadow(t *testing.T) {
	m := scope.NewManager()
	m.EnterFunction(tp.I64)

	_, err := m.Declare("x", tp.I64, 8)
	require.NoError(t, err)

	v, ok := m.Find("x")
	require.True(t, ok)
	assert.Equal(t, 0, v.Offset)

	m.NewScope()
	_, err = m.Declare("y", tp.I32, 4)
	require.NoError(t, err)

	vy, ok := m.Find("y")
	require.True(t, ok)
	assert.Equal(t, 8, vy.Offset)

	released := m.PopScope()
	assert.Equal(t, 4, released)

	_, ok = m.Find("y")
	assert.False(t, ok, "y must not be visible after its scope is popped")

	_, ok = m.Find("x")
	assert.True(t, ok, "x must still be visible")
}

func TestDuplicateDeclarationRejected(t *testing.T) {
	m := scope.NewManager()
	m.EnterFunction(tp.Null)

	_, err := m.Declare("x", tp.I64, 8)
	require.NoError(t, err)

	_, err = m.Declare("x", tp.I64, 8)
	assert.Error(t, err)
}

func TestLoopExitBytesAndPatches(t *testing.T) {
	m := scope.NewManager()
	m.EnterFunction(tp.Null)

	m.NewLoopScope()
	_, err := m.Declare("i", tp.I64, 8)
	require.NoError(t, err)

	m.NewScope()
	_, err = m.Declare("tmp", tp.I32, 4)
	require.NoError(t, err)

	n, err := m.BytesToLoopExit()
	require.NoError(t, err)
	assert.Equal(t, 12, n, "break/continue from inside the inner block must release both scopes' bytes")

	require.NoError(t, m.RecordBreak(100))
	breaks, continues, err := m.LoopPatches()
	require.NoError(t, err)
	assert.Equal(t, []int{100}, breaks)
	assert.Empty(t, continues)
}

func TestBreakOutsideLoopRejected(t *testing.T) {
	m := scope.NewManager()
	m.EnterFunction(tp.Null)

	assert.False(t, m.InLoop())
	assert.Error(t, m.RecordBreak(0))
}
