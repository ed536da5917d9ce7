package vm_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/slow/src/compiler"
	"github.com/slowlang/slow/src/vm"
)

// run compiles src and executes it, returning stdout and the run error.
func run(t *testing.T, src string) (string, error) {
	t.Helper()

	prog, err := compiler.Compile(context.Background(), "t.slow", []byte(src))
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	m := vm.New(prog)
	m.Stdout = &out
	m.Stderr = &errOut

	err = m.Run(context.Background())
	return out.String(), err
}

func TestScenarioA_Arithmetic(t *testing.T) {
	out, err := run(t, `print("{}\n", 2 + 3 * 4);`)
	require.NoError(t, err)
	assert.Equal(t, "14\n", out)
}

func TestScenarioB_WhileLoop(t *testing.T) {
	out, err := run(t, `
var i := 0i64;
while i < 3i64 { print("{} ", i); i = i + 1i64; }
`)
	require.NoError(t, err)
	assert.Equal(t, "0 1 2 ", out)
}

func TestScenarioC_StructMethod(t *testing.T) {
	out, err := run(t, `
struct Point { x: i64; y: i64; fn len2(self: Point const&) -> i64 { return self.x*self.x + self.y*self.y; } }
var p := Point(3i64, 4i64);
print("{}\n", p.len2());
`)
	require.NoError(t, err)
	assert.Equal(t, "25\n", out)
}

func TestScenarioD_ArenaSpan(t *testing.T) {
	out, err := run(t, `
arena a;
var xs := new i64 : 3u64 using a;
xs[0u64] = 10i64; xs[1u64] = 20i64; xs[2u64] = 30i64;
print("{} {} {}\n", xs[0u64], xs[1u64], xs[2u64]);
`)
	require.NoError(t, err)
	assert.Equal(t, "10 20 30\n", out)
}

func TestScenarioE_TemplateFunction(t *testing.T) {
	out, err := run(t, `
fn id!(T)(x: T) -> T { return x; }
print("{}\n", id!(i32)(7i32));
`)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestScenarioF_AssertFailure(t *testing.T) {
	_, err := run(t, `assert 1i64 == 2i64;`)
	require.Error(t, err)

	var assertErr *vm.AssertionError
	require.ErrorAs(t, err, &assertErr)
	assert.Contains(t, assertErr.Error(), "line 1")
}
