package vm

import (
	"encoding/binary"
	"math"
	"os"
	"strings"

	"tlog.app/go/errors"

	"github.com/slowlang/slow/src/compiler/builtin"
)

// File handles 1 and 2 are reserved for the machine's own Stdout/Stderr
// writers (mirroring POSIX fd 1/2), so a program that fputs to them
// reaches the same place as print (§6.3's fopen/fclose/fputs table).
const (
	stdoutHandle = 1
	stderrHandle = 2
	stdioHandles = 3
)

func leU64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// builtinCall dispatches builtin_call <id> (§6.3): pop the declared
// parameters (their byte sizes come from the compile-time signature
// table, so the native side never needs its own copy of the type
// layout rules), run the native implementation, push the result.
func (m *Machine) builtinCall(id int) error {
	if id < 0 || id >= len(builtin.Table) {
		return errors.New("builtin_call: unknown id %d", id)
	}
	entry := builtin.Table[id]

	sizes := make([]int, len(entry.Params))
	total := 0
	for i, p := range entry.Params {
		sizes[i] = p.Size(nil)
		total += sizes[i]
	}

	blob := m.pop(total)
	args := make([][]byte, len(sizes))
	ofs := 0
	for i, sz := range sizes {
		args[i] = blob[ofs : ofs+sz]
		ofs += sz
	}

	switch id {
	case builtin.Sqrt:
		m.pushF64(math.Sqrt(math.Float64frombits(leU64(args[0]))))
		return nil
	case builtin.Fopen:
		return m.builtinFopen(args[0], args[1])
	case builtin.Fclose:
		return m.builtinFclose(leU64(args[0]))
	case builtin.Fputs:
		return m.builtinFputs(leU64(args[0]), args[1])
	default:
		return errors.New("builtin_call: %s has no native implementation", entry.Name)
	}
}

func (m *Machine) spanString(arg []byte) (string, error) {
	ptr := leU64(arg[0:8])
	length := leU64(arg[8:16])
	b, err := m.read(ptr, int(length))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (m *Machine) builtinFopen(nameArg, modeArg []byte) error {
	name, err := m.spanString(nameArg)
	if err != nil {
		return errors.Wrap(err, "fopen: path")
	}
	mode, err := m.spanString(modeArg)
	if err != nil {
		return errors.Wrap(err, "fopen: mode")
	}

	flag := os.O_RDONLY
	switch {
	case strings.Contains(mode, "a"):
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case strings.Contains(mode, "w"):
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	f, err := os.OpenFile(name, flag, 0644)
	if err != nil {
		m.pushU64(0)
		return nil
	}

	handle := m.nextHandle
	m.nextHandle++
	m.files[handle] = f

	m.pushU64(handle)
	return nil
}

func (m *Machine) builtinFclose(handle uint64) error {
	f, ok := m.files[handle]
	if ok {
		f.Close()
		delete(m.files, handle)
	}
	m.push([]byte{0})
	return nil
}

func (m *Machine) builtinFputs(handle uint64, strArg []byte) error {
	s, err := m.spanString(strArg)
	if err != nil {
		return errors.Wrap(err, "fputs")
	}

	switch handle {
	case stdoutHandle:
		_, err = m.Stdout.Write([]byte(s))
	case stderrHandle:
		_, err = m.Stderr.Write([]byte(s))
	default:
		f, ok := m.files[handle]
		if !ok {
			return errors.New("fputs: invalid file handle %d", handle)
		}
		_, err = f.WriteString(s)
	}
	if err != nil {
		return errors.Wrap(err, "fputs")
	}

	m.push([]byte{0})
	return nil
}
