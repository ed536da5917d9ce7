package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Disassemble renders p as human-readable text, one line per opcode, per
// the bracketed-offset format of the original interpreter's print_op
// (original_source/src/bytecode.cpp), adapted to this repo's opcode set.
// Used by the `slow compile` CLI subcommand.
func Disassemble(p *Program) string {
	var out []byte

	for _, f := range p.Funcs {
		out = fmt.Appendf(out, "func %s (id=%d):\n", f.Name, f.ID)
		out = disassembleFunc(out, f.Code)
	}

	return string(out)
}

func disassembleFunc(out []byte, code []byte) []byte {
	i := 0
	for i < len(code) {
		start := i
		op := Op(code[i])
		i++

		out = fmt.Appendf(out, "    [%4d] %s", start, op)

		switch op {
		case OpPushI32:
			v := int32(binary.LittleEndian.Uint32(code[i:]))
			i += 4
			out = fmt.Appendf(out, " %d", v)
		case OpPushI64:
			v := int64(binary.LittleEndian.Uint64(code[i:]))
			i += 8
			out = fmt.Appendf(out, " %d", v)
		case OpPushU64, OpPushFunctionPtr:
			v := binary.LittleEndian.Uint64(code[i:])
			i += 8
			out = fmt.Appendf(out, " %d", v)
		case OpPushF64:
			v := math.Float64frombits(binary.LittleEndian.Uint64(code[i:]))
			i += 8
			out = fmt.Appendf(out, " %v", v)
		case OpPushBool:
			out = fmt.Appendf(out, " %v", code[i] != 0)
			i++
		case OpPushChar:
			out = fmt.Appendf(out, " %q", code[i])
			i++
		case OpPushStringLiteral, OpAssert:
			ofs := binary.LittleEndian.Uint32(code[i:])
			length := binary.LittleEndian.Uint32(code[i+4:])
			i += 8
			out = fmt.Appendf(out, " rom+%d len=%d", ofs, length)
		case OpPushPtrLocal, OpPushPtrGlobal:
			v := int32(binary.LittleEndian.Uint32(code[i:]))
			i += 4
			out = fmt.Appendf(out, " %d", v)
		case OpLoad, OpSave, OpPop, OpReserve, OpPushFieldOffset, OpPushIndexScaled,
			OpJump, OpJumpIfFalse, OpCall, OpRet, OpArenaAlloc, OpArenaAllocArray, OpBuiltinCall:
			v := binary.LittleEndian.Uint32(code[i:])
			i += 4
			out = fmt.Appendf(out, " %d", v)
		}

		out = append(out, '\n')
	}

	return out
}
