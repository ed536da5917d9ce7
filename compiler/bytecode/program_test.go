package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/slow/src/compiler/bytecode"
)

func TestInternRomDedups(t *testing.T) {
	p := bytecode.NewProgram()

	ofs1, len1 := p.InternRom("hello")
	ofs2, len2 := p.InternRom("world")
	ofs3, len3 := p.InternRom("hello")

	assert.Equal(t, ofs1, ofs3)
	assert.Equal(t, len1, len3)
	assert.NotEqual(t, ofs1, ofs2)
	assert.Equal(t, 5, len2)
	assert.Equal(t, "helloworld", string(p.Rom))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := bytecode.NewProgram()
	f := p.AddFunc("$main")
	w := bytecode.NewWriter(f)
	w.PushI32(2)
	w.PushI32(3)
	w.Op(bytecode.OpAddI32)
	w.EndProgram()

	enc := p.Encode()
	p2, err := bytecode.Decode(enc)
	require.NoError(t, err)

	require.Len(t, p2.Funcs, 1)
	assert.Equal(t, "$main", p2.Funcs[0].Name)
	assert.Equal(t, f.Code, p2.Funcs[0].Code)
}

func TestJumpPatchWithinRange(t *testing.T) {
	p := bytecode.NewProgram()
	f := p.AddFunc("$main")
	w := bytecode.NewWriter(f)

	at := w.Jump(bytecode.OpJump)
	w.PushI32(1)
	w.Patch(at)

	require.NoError(t, f.ValidateJumps())
}
