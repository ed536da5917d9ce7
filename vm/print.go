package vm

import (
	"fmt"
	"strconv"

	"tlog.app/go/errors"

	"github.com/slowlang/slow/src/compiler/bytecode"
)

// stepPrint handles the print_* diagnostics family (§4.5): each pops its
// argument and writes a textual form to Stdout. print_char_span resolves
// the span's backing region through the same tagged-pointer dispatch as
// load/save.
func (m *Machine) stepPrint(op bytecode.Op) error {
	switch op {
	case bytecode.OpPrintBool:
		fmt.Fprint(m.Stdout, strconv.FormatBool(m.popBool()))
	case bytecode.OpPrintChar:
		fmt.Fprintf(m.Stdout, "%c", m.popChar())
	case bytecode.OpPrintI32:
		fmt.Fprint(m.Stdout, m.popI32())
	case bytecode.OpPrintI64:
		fmt.Fprint(m.Stdout, m.popI64())
	case bytecode.OpPrintU64:
		fmt.Fprint(m.Stdout, m.popU64())
	case bytecode.OpPrintF64:
		fmt.Fprint(m.Stdout, strconv.FormatFloat(m.popF64(), 'g', -1, 64))
	case bytecode.OpPrintNull:
		m.pop(1)
		fmt.Fprint(m.Stdout, "null")
	case bytecode.OpPrintPtr:
		fmt.Fprintf(m.Stdout, "0x%016x", m.popU64())
	case bytecode.OpPrintCharSpan:
		length := m.popU64()
		ptr := m.popU64()
		b, err := m.read(ptr, int(length))
		if err != nil {
			return errors.Wrap(err, "print_char_span")
		}
		m.Stdout.Write(b)
	default:
		return errors.New("unknown opcode %s", op)
	}

	return nil
}
