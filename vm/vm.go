// Package vm is the virtual machine (§4.5): a byte-stack interpreter that
// consumes a bytecode.Program and runs it to completion, dispatching on
// each opcode byte and decoding its in-stream immediates. This is the
// image consumer side of §6.2; compiler/front is the producer.
package vm

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/slow/src/compiler/bytecode"
)

// Pointer tagging (§3.5): the top two bits of any 64-bit pointer value
// pick the backing region. Three regions are named in §3.5 (stack, rom,
// heap); a fourth reserved pattern is used for nullptr so that a real
// stack address (offset 0 is a legitimate frame base) never collides
// with "no pointer" under raw uint64 equality.
const (
	tagShift = 62
	tagMask  = uint64(3) << tagShift

	tagStack = uint64(0) << tagShift
	tagRom   = uint64(1) << tagShift
	tagHeap  = uint64(2) << tagShift
	tagNull  = uint64(3) << tagShift

	nullptrValue = tagNull
)

func heapPtr(arenaID uint32, ofs uint32) uint64 {
	return tagHeap | uint64(arenaID)<<32 | uint64(ofs)
}

func decodeHeapPtr(p uint64) (arenaID, ofs uint32) {
	payload := p &^ tagMask
	return uint32(payload >> 32), uint32(payload)
}

// frame is the caller-side state call/ret save and restore (§4.5's
// "frame layout"): which function and byte offset to resume at, and the
// frame-pointer to restore.
type frame struct {
	fn *bytecode.Func
	pc int
	fp int
}

// Machine is the VM's whole runtime state (§4.5): the byte stack, the
// current frame pointer and program counter, the arena set, and the
// program's read-only blob (reached via m.prog.Rom).
type Machine struct {
	prog *bytecode.Program

	stack []byte
	fp    int

	fn *bytecode.Func
	pc int

	frames []frame

	arenas []*arenaState
	pool   slabPool

	files      map[uint64]*os.File
	nextHandle uint64

	Stdout io.Writer
	Stderr io.Writer
}

// AssertionError is returned by Run when an `assert` fails, carrying the
// rom-resident message so the caller can decide how to surface it (the
// CLI driver prints it to stderr and exits non-zero, per §7).
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string { return "assertion failed: " + e.Message }

// New constructs a Machine ready to run prog from its entry point
// ($main, function 0, per §3.4).
func New(prog *bytecode.Program) *Machine {
	return &Machine{
		prog:       prog,
		files:      map[uint64]*os.File{},
		nextHandle: stdioHandles,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
}

// Run executes prog's $main to completion (an end_program opcode) or
// until a runtime error or failed assertion stops it.
func Run(ctx context.Context, prog *bytecode.Program) error {
	m := New(prog)
	return m.Run(ctx)
}

func (m *Machine) Run(ctx context.Context) (err error) {
	if len(m.prog.Funcs) == 0 {
		return errors.New("empty program: no functions")
	}

	tr := tlog.SpanFromContext(ctx)
	tr.Printw("vm: run", "funcs", len(m.prog.Funcs), "rom_bytes", len(m.prog.Rom))
	defer func() { tr.Printw("vm: done", "err", err) }()

	m.fn = m.prog.Funcs[0]
	m.pc = 0
	m.fp = 0

	for {
		halt, err := m.step()
		if err != nil {
			return errors.Wrap(err, "%s+%d", m.fn.Name, m.pc)
		}
		if halt {
			return nil
		}
	}
}

func (m *Machine) u32() uint32 {
	v := binary.LittleEndian.Uint32(m.fn.Code[m.pc:])
	m.pc += 4
	return v
}

func (m *Machine) i32() int32 { return int32(m.u32()) }

func (m *Machine) u64() uint64 {
	v := binary.LittleEndian.Uint64(m.fn.Code[m.pc:])
	m.pc += 8
	return v
}

func (m *Machine) byte() byte {
	v := m.fn.Code[m.pc]
	m.pc++
	return v
}

func (m *Machine) push(b []byte) { m.stack = append(m.stack, b...) }

func (m *Machine) pop(n int) []byte {
	l := len(m.stack)
	b := make([]byte, n)
	copy(b, m.stack[l-n:])
	m.stack = m.stack[:l-n]
	return b
}

func (m *Machine) pushU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	m.push(b[:])
}

func (m *Machine) popU64() uint64 { return binary.LittleEndian.Uint64(m.pop(8)) }

func (m *Machine) pushF64(v float64) { m.pushU64(math.Float64bits(v)) }
func (m *Machine) popF64() float64   { return math.Float64frombits(m.popU64()) }

func (m *Machine) pushI32(v int32) { m.push(i32Bytes(v)) }
func (m *Machine) popI32() int32   { return int32(binary.LittleEndian.Uint32(m.pop(4))) }

func (m *Machine) pushI64(v int64) { m.pushU64(uint64(v)) }
func (m *Machine) popI64() int64   { return int64(m.popU64()) }

func (m *Machine) pushChar(v byte) { m.push([]byte{v}) }
func (m *Machine) popChar() byte   { return m.pop(1)[0] }

func (m *Machine) popBool() bool { return m.pop(1)[0] != 0 }
func (m *Machine) pushBool(v bool) {
	if v {
		m.push([]byte{1})
	} else {
		m.push([]byte{0})
	}
}

// step decodes and executes one instruction, returning halt=true on
// end_program.
func (m *Machine) step() (halt bool, err error) {
	op := bytecode.Op(m.byte())

	switch op {
	case bytecode.OpNop:

	case bytecode.OpPushI32:
		v := m.i32()
		m.push(i32Bytes(v))
	case bytecode.OpPushI64:
		v := m.u64()
		m.push(u64Bytes(v))
	case bytecode.OpPushU64:
		v := m.u64()
		m.push(u64Bytes(v))
	case bytecode.OpPushF64:
		v := m.u64()
		m.push(u64Bytes(v))
	case bytecode.OpPushBool:
		m.push([]byte{m.byte()})
	case bytecode.OpPushChar:
		m.push([]byte{m.byte()})
	case bytecode.OpPushNull:
		m.push([]byte{0})
	case bytecode.OpPushNullptr:
		m.pushU64(nullptrValue)
	case bytecode.OpPushStringLiteral:
		ofs := m.u32()
		n := m.u32()
		m.pushU64(tagRom | uint64(ofs))
		m.pushU64(uint64(n))
	case bytecode.OpPushPtrLocal:
		ofs := m.i32()
		m.pushU64(tagStack | uint64(int64(m.fp)+int64(ofs)))
	case bytecode.OpPushPtrGlobal:
		ofs := m.i32()
		m.pushU64(tagStack | uint64(ofs))
	case bytecode.OpPushFunctionPtr:
		id := m.u64()
		m.pushU64(id)

	case bytecode.OpLoad:
		size := int(m.u32())
		ptr := m.popU64()
		b, err := m.read(ptr, size)
		if err != nil {
			return false, err
		}
		m.push(b)
	case bytecode.OpSave:
		size := int(m.u32())
		ptr := m.popU64()
		val := m.pop(size)
		if err := m.write(ptr, val); err != nil {
			return false, err
		}
	case bytecode.OpPop:
		size := int(m.u32())
		m.pop(size)
	case bytecode.OpReserve:
		size := int(m.u32())
		m.push(make([]byte, size))

	case bytecode.OpPushFieldOffset:
		ofs := m.u32()
		ptr := m.popU64()
		m.pushU64(addPtrOffset(ptr, int64(ofs)))
	case bytecode.OpPushIndexScaled:
		elemSize := m.u32()
		idx := m.popU64()
		ptr := m.popU64()
		m.pushU64(addPtrOffset(ptr, int64(idx)*int64(elemSize)))

	case bytecode.OpJump:
		target := int(m.u32())
		m.pc = target
	case bytecode.OpJumpIfFalse:
		target := int(m.u32())
		if !m.popBool() {
			m.pc = target
		}

	case bytecode.OpCall:
		argsSize := int(m.u32())
		calleeID := m.popU64()
		if int(calleeID) >= len(m.prog.Funcs) {
			return false, errors.New("call: invalid function id %d", calleeID)
		}
		m.frames = append(m.frames, frame{fn: m.fn, pc: m.pc, fp: m.fp})
		m.fp = len(m.stack) - argsSize
		m.fn = m.prog.Funcs[calleeID]
		m.pc = 0
	case bytecode.OpRet:
		size := int(m.u32())
		ret := m.pop(size)
		m.stack = m.stack[:m.fp]
		m.push(ret)
		if len(m.frames) == 0 {
			return true, nil
		}
		fr := m.frames[len(m.frames)-1]
		m.frames = m.frames[:len(m.frames)-1]
		m.fn, m.pc, m.fp = fr.fn, fr.pc, fr.fp
	case bytecode.OpEndProgram:
		return true, nil

	case bytecode.OpArenaNew:
		m.pushU64(uint64(m.arenaNew()))
	case bytecode.OpArenaFree:
		id := m.popU64()
		if err := m.arenaFree(uint32(id)); err != nil {
			return false, err
		}
	case bytecode.OpArenaAlloc:
		elemSize := int(m.u32())
		arenaID := m.popU64()
		val := m.pop(elemSize)
		ptr, err := m.arenaAlloc(uint32(arenaID), val)
		if err != nil {
			return false, err
		}
		m.pushU64(ptr)
	case bytecode.OpArenaAllocArray:
		elemSize := int(m.u32())
		arenaID := m.popU64()
		count := m.popU64()
		ptr, err := m.arenaAlloc(uint32(arenaID), make([]byte, elemSize*int(count)))
		if err != nil {
			return false, err
		}
		m.pushU64(ptr)
		m.pushU64(count)
	case bytecode.OpArenaSize:
		arenaID := m.popU64()
		sz, err := m.arenaSize(uint32(arenaID))
		if err != nil {
			return false, err
		}
		m.pushU64(sz)

	case bytecode.OpAssert:
		ofs := m.u32()
		n := m.u32()
		ok := m.popBool()
		if !ok {
			msg := string(m.prog.Rom[ofs : ofs+n])
			return false, &AssertionError{Message: msg}
		}
	case bytecode.OpBuiltinCall:
		id := int(m.u32())
		if err := m.builtinCall(id); err != nil {
			return false, err
		}

	default:
		if err := m.stepArithAndPrint(op); err != nil {
			return false, err
		}
	}

	return false, nil
}

func i32Bytes(v int32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

func u64Bytes(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

// addPtrOffset adds a byte offset to a tagged pointer, preserving its tag
// (§3.5: tag bits live in the top two bits, payload in the rest).
func addPtrOffset(p uint64, off int64) uint64 {
	tag := p & tagMask
	payload := p &^ tagMask
	return tag | uint64(int64(payload)+off)
}

// read/write dispatch on a tagged pointer's region (§3.5's "VM decodes
// tag bits on every load/store/print to dispatch to the correct backing
// buffer").
func (m *Machine) read(ptr uint64, size int) ([]byte, error) {
	switch ptr & tagMask {
	case tagStack:
		ofs := int(ptr &^ tagMask)
		if ofs < 0 || ofs+size > len(m.stack) {
			return nil, errors.New("load: stack offset %d+%d out of range (len %d)", ofs, size, len(m.stack))
		}
		b := make([]byte, size)
		copy(b, m.stack[ofs:ofs+size])
		return b, nil
	case tagRom:
		ofs := int(ptr &^ tagMask)
		if ofs < 0 || ofs+size > len(m.prog.Rom) {
			return nil, errors.New("load: rom offset %d+%d out of range (len %d)", ofs, size, len(m.prog.Rom))
		}
		b := make([]byte, size)
		copy(b, m.prog.Rom[ofs:ofs+size])
		return b, nil
	case tagHeap:
		arenaID, ofs := decodeHeapPtr(ptr)
		return m.arenaRead(arenaID, ofs, size)
	default:
		return nil, errors.New("load: dereferenced a nullptr")
	}
}

func (m *Machine) write(ptr uint64, val []byte) error {
	switch ptr & tagMask {
	case tagStack:
		ofs := int(ptr &^ tagMask)
		if ofs < 0 || ofs+len(val) > len(m.stack) {
			return errors.New("save: stack offset %d+%d out of range (len %d)", ofs, len(val), len(m.stack))
		}
		copy(m.stack[ofs:ofs+len(val)], val)
		return nil
	case tagRom:
		return errors.New("save: cannot write to read-only memory")
	case tagHeap:
		arenaID, ofs := decodeHeapPtr(ptr)
		return m.arenaWrite(arenaID, ofs, val)
	default:
		return errors.New("save: dereferenced a nullptr")
	}
}
