package vm

import (
	"golang.org/x/exp/constraints"

	"tlog.app/go/errors"

	"github.com/slowlang/slow/src/compiler/bytecode"
)

// stepArithAndPrint handles every opcode not already dispatched in
// step: arithmetic/comparison (one case per type×operation, §4.5) and
// the print_* diagnostics family.
func (m *Machine) stepArithAndPrint(op bytecode.Op) error {
	switch op {
	case bytecode.OpAddI32, bytecode.OpSubI32, bytecode.OpMulI32, bytecode.OpDivI32, bytecode.OpModI32,
		bytecode.OpEqI32, bytecode.OpNeI32, bytecode.OpLtI32, bytecode.OpLeI32, bytecode.OpGtI32, bytecode.OpGeI32:
		return m.binI32(op)
	case bytecode.OpNegI32:
		m.pushI32(-m.popI32())
		return nil
	case bytecode.OpBitNotI32:
		m.pushI32(^m.popI32())
		return nil

	case bytecode.OpAddI64, bytecode.OpSubI64, bytecode.OpMulI64, bytecode.OpDivI64, bytecode.OpModI64,
		bytecode.OpEqI64, bytecode.OpNeI64, bytecode.OpLtI64, bytecode.OpLeI64, bytecode.OpGtI64, bytecode.OpGeI64:
		return m.binI64(op)
	case bytecode.OpNegI64:
		m.pushI64(-m.popI64())
		return nil
	case bytecode.OpBitNotI64:
		m.pushI64(^m.popI64())
		return nil

	case bytecode.OpAddU64, bytecode.OpSubU64, bytecode.OpMulU64, bytecode.OpDivU64, bytecode.OpModU64,
		bytecode.OpEqU64, bytecode.OpNeU64, bytecode.OpLtU64, bytecode.OpLeU64, bytecode.OpGtU64, bytecode.OpGeU64:
		return m.binU64(op)
	case bytecode.OpBitNotU64:
		m.pushU64(^m.popU64())
		return nil

	case bytecode.OpAddF64, bytecode.OpSubF64, bytecode.OpMulF64, bytecode.OpDivF64,
		bytecode.OpEqF64, bytecode.OpNeF64, bytecode.OpLtF64, bytecode.OpLeF64, bytecode.OpGtF64, bytecode.OpGeF64:
		return m.binF64(op)
	case bytecode.OpNegF64:
		m.pushF64(-m.popF64())
		return nil

	case bytecode.OpNotBool:
		m.pushBool(!m.popBool())
		return nil
	case bytecode.OpAndBool:
		b := m.popBool()
		a := m.popBool()
		m.pushBool(a && b)
		return nil
	case bytecode.OpOrBool:
		b := m.popBool()
		a := m.popBool()
		m.pushBool(a || b)
		return nil
	case bytecode.OpEqBool:
		b := m.popBool()
		a := m.popBool()
		m.pushBool(a == b)
		return nil
	case bytecode.OpNeBool:
		b := m.popBool()
		a := m.popBool()
		m.pushBool(a != b)
		return nil

	case bytecode.OpEqChar:
		b := m.popChar()
		a := m.popChar()
		m.pushBool(a == b)
		return nil
	case bytecode.OpNeChar:
		b := m.popChar()
		a := m.popChar()
		m.pushBool(a != b)
		return nil

	default:
		return m.stepPrint(op)
	}
}

// intOps names the eleven opcodes of one integer-type family, in the
// fixed order add/sub/mul/div/mod/eq/ne/lt/le/gt/ge, so binIntOp can
// dispatch generically over any integer width.
type intOps struct {
	add, sub, mul, div, mod bytecode.Op
	eq, ne, lt, le, gt, ge  bytecode.Op
}

// binIntOp implements one integer-family binary opcode (§4.5) generically
// over T, so add_i32/add_i64/add_u64 share a single arithmetic and
// comparison table instead of three hand-duplicated ones. Division and
// modulo by zero report an error rather than panicking, matching the
// other arithmetic opcodes' error-returning shape.
func binIntOp[T constraints.Integer](a, b T, op bytecode.Op, ops intOps, typeName string) (val T, isBool, boolVal bool, err error) {
	switch op {
	case ops.add:
		val = a + b
	case ops.sub:
		val = a - b
	case ops.mul:
		val = a * b
	case ops.div:
		if b == 0 {
			err = errors.New("%s division by zero", typeName)
			return
		}
		val = a / b
	case ops.mod:
		if b == 0 {
			err = errors.New("%s division by zero", typeName)
			return
		}
		val = a % b
	case ops.eq:
		isBool, boolVal = true, a == b
	case ops.ne:
		isBool, boolVal = true, a != b
	case ops.lt:
		isBool, boolVal = true, a < b
	case ops.le:
		isBool, boolVal = true, a <= b
	case ops.gt:
		isBool, boolVal = true, a > b
	case ops.ge:
		isBool, boolVal = true, a >= b
	}
	return
}

var i32Ops = intOps{
	bytecode.OpAddI32, bytecode.OpSubI32, bytecode.OpMulI32, bytecode.OpDivI32, bytecode.OpModI32,
	bytecode.OpEqI32, bytecode.OpNeI32, bytecode.OpLtI32, bytecode.OpLeI32, bytecode.OpGtI32, bytecode.OpGeI32,
}

var i64Ops = intOps{
	bytecode.OpAddI64, bytecode.OpSubI64, bytecode.OpMulI64, bytecode.OpDivI64, bytecode.OpModI64,
	bytecode.OpEqI64, bytecode.OpNeI64, bytecode.OpLtI64, bytecode.OpLeI64, bytecode.OpGtI64, bytecode.OpGeI64,
}

var u64Ops = intOps{
	bytecode.OpAddU64, bytecode.OpSubU64, bytecode.OpMulU64, bytecode.OpDivU64, bytecode.OpModU64,
	bytecode.OpEqU64, bytecode.OpNeU64, bytecode.OpLtU64, bytecode.OpLeU64, bytecode.OpGtU64, bytecode.OpGeU64,
}

func (m *Machine) binI32(op bytecode.Op) error {
	b := m.popI32()
	a := m.popI32()

	val, isBool, boolVal, err := binIntOp(a, b, op, i32Ops, "i32")
	if err != nil {
		return err
	}
	if isBool {
		m.pushBool(boolVal)
	} else {
		m.pushI32(val)
	}
	return nil
}

func (m *Machine) binI64(op bytecode.Op) error {
	b := m.popI64()
	a := m.popI64()

	val, isBool, boolVal, err := binIntOp(a, b, op, i64Ops, "i64")
	if err != nil {
		return err
	}
	if isBool {
		m.pushBool(boolVal)
	} else {
		m.pushI64(val)
	}
	return nil
}

func (m *Machine) binU64(op bytecode.Op) error {
	b := m.popU64()
	a := m.popU64()

	val, isBool, boolVal, err := binIntOp(a, b, op, u64Ops, "u64")
	if err != nil {
		return err
	}
	if isBool {
		m.pushBool(boolVal)
	} else {
		m.pushU64(val)
	}
	return nil
}

func (m *Machine) binF64(op bytecode.Op) error {
	b := m.popF64()
	a := m.popF64()

	switch op {
	case bytecode.OpAddF64:
		m.pushF64(a + b)
	case bytecode.OpSubF64:
		m.pushF64(a - b)
	case bytecode.OpMulF64:
		m.pushF64(a * b)
	case bytecode.OpDivF64:
		m.pushF64(a / b)
	case bytecode.OpEqF64:
		m.pushBool(a == b)
	case bytecode.OpNeF64:
		m.pushBool(a != b)
	case bytecode.OpLtF64:
		m.pushBool(a < b)
	case bytecode.OpLeF64:
		m.pushBool(a <= b)
	case bytecode.OpGtF64:
		m.pushBool(a > b)
	case bytecode.OpGeF64:
		m.pushBool(a >= b)
	}

	return nil
}
