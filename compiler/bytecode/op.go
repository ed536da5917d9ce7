// Package bytecode defines the bytecode program model (§3.4, §6.2): the
// opcode set, the per-function byte vector builder, the read-only data
// segment, and the disassembler. This is the wire format the compiler
// emits and the vm package consumes.
package bytecode

// Op is one opcode byte. Names here are design names per spec §4.5, not a
// claim of source compatibility with any other implementation.
type Op byte

const (
	OpNop Op = iota

	// data movement
	OpPushI32
	OpPushI64
	OpPushU64
	OpPushF64
	OpPushBool
	OpPushChar
	OpPushNull
	OpPushNullptr
	OpPushStringLiteral // <rom_ofs u32> <len u32>
	OpPushPtrLocal      // <ofs i32>
	OpPushPtrGlobal     // <ofs i32>
	OpPushFunctionPtr   // <id u64>
	OpLoad              // <size u32>
	OpSave              // <size u32>
	OpPop               // <size u32>
	OpReserve           // <size u32>, zero-initialized

	// arithmetic / comparison, one per (type x op); suffix I32/I64/U64/F64
	OpAddI32
	OpSubI32
	OpMulI32
	OpDivI32
	OpModI32
	OpNegI32
	OpEqI32
	OpNeI32
	OpLtI32
	OpLeI32
	OpGtI32
	OpGeI32

	OpAddI64
	OpSubI64
	OpMulI64
	OpDivI64
	OpModI64
	OpNegI64
	OpEqI64
	OpNeI64
	OpLtI64
	OpLeI64
	OpGtI64
	OpGeI64

	OpAddU64
	OpSubU64
	OpMulU64
	OpDivU64
	OpModU64
	OpEqU64
	OpNeU64
	OpLtU64
	OpLeU64
	OpGtU64
	OpGeU64

	OpAddF64
	OpSubF64
	OpMulF64
	OpDivF64
	OpNegF64
	OpEqF64
	OpNeF64
	OpLtF64
	OpLeF64
	OpGtF64
	OpGeF64

	OpNotBool
	OpAndBool
	OpOrBool
	OpEqBool
	OpNeBool

	OpEqChar
	OpNeChar

	OpBitNotI32
	OpBitNotI64
	OpBitNotU64

	// field/array addressing
	OpPushFieldOffset // <offset u32>, adds to the pointer on top of stack
	OpPushIndexScaled // <elemSize u32>, pops index then ptr, pushes ptr+index*elemSize

	// control flow
	OpJump         // <target u32>
	OpJumpIfFalse  // <target u32>
	OpCall         // <argsSize u32>; pops callee id
	OpRet          // <retSize u32>
	OpEndProgram

	// memory / arena
	OpArenaNew        // pushes a fresh arena handle
	OpArenaFree       // pops an arena handle, releases its storage
	OpArenaAlloc      // <elemSize u32>; pops arena handle, moves top elemSize bytes in, pushes heap ptr
	OpArenaAllocArray // <elemSize u32>; pops arena handle then count, pushes (ptr,len)
	OpArenaSize       // pops arena handle, pushes u64 bytes allocated

	// diagnostics
	OpPrintBool
	OpPrintChar
	OpPrintI32
	OpPrintI64
	OpPrintU64
	OpPrintF64
	OpPrintNull
	OpPrintPtr
	OpPrintCharSpan
	OpAssert      // <rom_ofs u32> <len u32>; pops bool
	OpBuiltinCall // <id u32>
)

var names = map[Op]string{
	OpNop:               "nop",
	OpPushI32:           "push_i32",
	OpPushI64:           "push_i64",
	OpPushU64:           "push_u64",
	OpPushF64:           "push_f64",
	OpPushBool:          "push_bool",
	OpPushChar:          "push_char",
	OpPushNull:          "push_null",
	OpPushNullptr:       "push_nullptr",
	OpPushStringLiteral: "push_string_literal",
	OpPushPtrLocal:      "push_ptr_local",
	OpPushPtrGlobal:     "push_ptr_global",
	OpPushFunctionPtr:   "push_function_ptr",
	OpLoad:              "load",
	OpSave:              "save",
	OpPop:               "pop",
	OpReserve:           "push",
	OpAddI32:            "add_i32", OpSubI32: "sub_i32", OpMulI32: "mul_i32", OpDivI32: "div_i32", OpModI32: "mod_i32", OpNegI32: "neg_i32",
	OpEqI32: "eq_i32", OpNeI32: "ne_i32", OpLtI32: "lt_i32", OpLeI32: "le_i32", OpGtI32: "gt_i32", OpGeI32: "ge_i32",
	OpAddI64: "add_i64", OpSubI64: "sub_i64", OpMulI64: "mul_i64", OpDivI64: "div_i64", OpModI64: "mod_i64", OpNegI64: "neg_i64",
	OpEqI64: "eq_i64", OpNeI64: "ne_i64", OpLtI64: "lt_i64", OpLeI64: "le_i64", OpGtI64: "gt_i64", OpGeI64: "ge_i64",
	OpAddU64: "add_u64", OpSubU64: "sub_u64", OpMulU64: "mul_u64", OpDivU64: "div_u64", OpModU64: "mod_u64",
	OpEqU64: "eq_u64", OpNeU64: "ne_u64", OpLtU64: "lt_u64", OpLeU64: "le_u64", OpGtU64: "gt_u64", OpGeU64: "ge_u64",
	OpAddF64: "add_f64", OpSubF64: "sub_f64", OpMulF64: "mul_f64", OpDivF64: "div_f64", OpNegF64: "neg_f64",
	OpEqF64: "eq_f64", OpNeF64: "ne_f64", OpLtF64: "lt_f64", OpLeF64: "le_f64", OpGtF64: "gt_f64", OpGeF64: "ge_f64",
	OpNotBool: "not_bool", OpAndBool: "and_bool", OpOrBool: "or_bool", OpEqBool: "eq_bool", OpNeBool: "ne_bool",
	OpEqChar: "eq_char", OpNeChar: "ne_char",
	OpBitNotI32: "bitnot_i32", OpBitNotI64: "bitnot_i64", OpBitNotU64: "bitnot_u64",
	OpPushFieldOffset: "push_field_offset", OpPushIndexScaled: "push_index_scaled",
	OpJump: "jump", OpJumpIfFalse: "jump_if_false", OpCall: "call", OpRet: "ret", OpEndProgram: "end_program",
	OpArenaNew: "arena_new", OpArenaFree: "arena_free", OpArenaAlloc: "arena_alloc", OpArenaAllocArray: "arena_alloc_array", OpArenaSize: "arena_size",
	OpPrintBool: "print_bool", OpPrintChar: "print_char", OpPrintI32: "print_i32", OpPrintI64: "print_i64",
	OpPrintU64: "print_u64", OpPrintF64: "print_f64", OpPrintNull: "print_null", OpPrintPtr: "print_ptr",
	OpPrintCharSpan: "print_char_span", OpAssert: "assert", OpBuiltinCall: "builtin_call",
}

func (op Op) String() string {
	if n, ok := names[op]; ok {
		return n
	}
	return "op(?)"
}
