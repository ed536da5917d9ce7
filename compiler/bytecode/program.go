package bytecode

import (
	"encoding/binary"
	"math"

	"tlog.app/go/errors"

	"github.com/slowlang/slow/src/compiler/set"
)

// Func is one compiled function: a name, a stable id, and a byte vector
// of opcodes plus immediates (§3.4).
type Func struct {
	Name string
	ID   uint64
	Code []byte

	// jumpTargets records every byte offset that is a validated jump
	// target, so a bytecode validation pass (§8.1's "every jump target
	// lies within range" invariant) can be checked in one pass instead of
	// re-decoding the function.
	jumpTargets set.Bitmap
}

// Program is an ordered list of functions (function 0 is the module entry
// point `$main`, per §3.4) plus a single read-only byte segment.
type Program struct {
	Funcs []*Func
	Rom   []byte

	// romIndex dedups identical literal fragments so repeated string/print
	// literals share one rom slot.
	romIndex map[string]int
}

func NewProgram() *Program {
	return &Program{romIndex: map[string]int{}}
}

// InternRom appends s to the read-only segment if not already present and
// returns its (offset, length).
func (p *Program) InternRom(s string) (int, int) {
	if p.romIndex == nil {
		p.romIndex = map[string]int{}
	}

	if ofs, ok := p.romIndex[s]; ok {
		return ofs, len(s)
	}

	ofs := len(p.Rom)
	p.Rom = append(p.Rom, s...)
	p.romIndex[s] = ofs

	return ofs, len(s)
}

// AddFunc registers a new function with the next sequential id and
// returns it for the compiler to append code to.
func (p *Program) AddFunc(name string) *Func {
	f := &Func{Name: name, ID: uint64(len(p.Funcs))}
	p.Funcs = append(p.Funcs, f)

	return f
}

// Writer accumulates opcodes and immediates for one function body,
// following the teacher's buffer-returning-function style
// (compiler/back's `func(b []byte) []byte` pattern) but as a stateful
// builder since the compiler needs to record and later patch jump
// targets.
type Writer struct {
	f *Func
}

func NewWriter(f *Func) *Writer { return &Writer{f: f} }

func (w *Writer) Len() int { return len(w.f.Code) }

func (w *Writer) op(op Op) { w.f.Code = append(w.f.Code, byte(op)) }

func (w *Writer) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.f.Code = append(w.f.Code, b[:]...)
}

func (w *Writer) i32(v int32) { w.u32(uint32(v)) }

func (w *Writer) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.f.Code = append(w.f.Code, b[:]...)
}

func (w *Writer) PushI32(v int32)   { w.op(OpPushI32); w.i32(v) }
func (w *Writer) PushI64(v int64)   { w.op(OpPushI64); w.u64(uint64(v)) }
func (w *Writer) PushU64(v uint64)  { w.op(OpPushU64); w.u64(v) }
func (w *Writer) PushF64(v float64) { w.op(OpPushF64); w.u64(math.Float64bits(v)) }
func (w *Writer) PushBool(v bool) {
	w.op(OpPushBool)
	if v {
		w.f.Code = append(w.f.Code, 1)
	} else {
		w.f.Code = append(w.f.Code, 0)
	}
}
func (w *Writer) PushChar(v byte)  { w.op(OpPushChar); w.f.Code = append(w.f.Code, v) }
func (w *Writer) PushNull()        { w.op(OpPushNull) }
func (w *Writer) PushNullptr()     { w.op(OpPushNullptr) }
func (w *Writer) PushStringLiteral(romOfs, length int) {
	w.op(OpPushStringLiteral)
	w.u32(uint32(romOfs))
	w.u32(uint32(length))
}
func (w *Writer) PushPtrLocal(ofs int32)   { w.op(OpPushPtrLocal); w.i32(ofs) }
func (w *Writer) PushPtrGlobal(ofs int32)  { w.op(OpPushPtrGlobal); w.i32(ofs) }
func (w *Writer) PushFunctionPtr(id uint64) { w.op(OpPushFunctionPtr); w.u64(id) }
func (w *Writer) Load(size int)   { w.op(OpLoad); w.u32(uint32(size)) }
func (w *Writer) Save(size int)   { w.op(OpSave); w.u32(uint32(size)) }
func (w *Writer) Pop(size int) {
	if size == 0 {
		return
	}
	w.op(OpPop)
	w.u32(uint32(size))
}
func (w *Writer) Reserve(size int) { w.op(OpReserve); w.u32(uint32(size)) }

func (w *Writer) Op(op Op) { w.op(op) }

func (w *Writer) PushFieldOffset(ofs int) { w.op(OpPushFieldOffset); w.u32(uint32(ofs)) }
func (w *Writer) PushIndexScaled(elemSize int) {
	w.op(OpPushIndexScaled)
	w.u32(uint32(elemSize))
}

// Jump emits op with a placeholder target and returns the byte offset of
// the immediate, to be fixed up later with Patch.
func (w *Writer) Jump(op Op) (immAt int) {
	w.op(op)
	immAt = len(w.f.Code)
	w.u32(0xffffffff)

	return immAt
}

// Patch fixes up a previously emitted placeholder jump target to point at
// the current end of the buffer, or at an explicit target if given.
func (w *Writer) Patch(immAt int, target ...int) {
	t := len(w.f.Code)
	if len(target) > 0 {
		t = target[0]
	}

	binary.LittleEndian.PutUint32(w.f.Code[immAt:immAt+4], uint32(t))
	w.f.jumpTargets.Set(t)
}

func (w *Writer) Call(argsSize int) { w.op(OpCall); w.u32(uint32(argsSize)) }
func (w *Writer) Ret(size int)      { w.op(OpRet); w.u32(uint32(size)) }
func (w *Writer) EndProgram()       { w.op(OpEndProgram) }

func (w *Writer) ArenaAlloc(elemSize int) { w.op(OpArenaAlloc); w.u32(uint32(elemSize)) }
func (w *Writer) ArenaAllocArray(elemSize int) {
	w.op(OpArenaAllocArray)
	w.u32(uint32(elemSize))
}

func (w *Writer) Assert(romOfs, length int) {
	w.op(OpAssert)
	w.u32(uint32(romOfs))
	w.u32(uint32(length))
}

func (w *Writer) BuiltinCall(id int) { w.op(OpBuiltinCall); w.u32(uint32(id)) }

// ValidateJumps checks that every recorded jump target lies within the
// function's code range (§8.1), using the set.Bitmap accumulated by
// Patch so the check is a single bounded scan rather than a re-decode.
func (f *Func) ValidateJumps() error {
	ok := true
	f.jumpTargets.Range(func(i int) bool {
		if i < 0 || i > len(f.Code) {
			ok = false
			return false
		}
		return true
	})

	if !ok {
		return errors.New("function %s: jump target out of range", f.Name)
	}

	return nil
}
