package bytecode

import (
	"encoding/binary"

	"tlog.app/go/errors"
)

// Encode serializes a Program to the wire image of §6.2: each function as
// a UTF-8 name, a 64-bit id, and length-prefixed bytecode; all multi-byte
// immediates little-endian; then the rom blob length-prefixed.
func (p *Program) Encode() []byte {
	var b []byte

	b = appendU32(b, uint32(len(p.Funcs)))

	for _, f := range p.Funcs {
		b = appendU32(b, uint32(len(f.Name)))
		b = append(b, f.Name...)
		b = appendU64(b, f.ID)
		b = appendU32(b, uint32(len(f.Code)))
		b = append(b, f.Code...)
	}

	b = appendU32(b, uint32(len(p.Rom)))
	b = append(b, p.Rom...)

	return b
}

// Decode parses the wire image produced by Encode.
func Decode(b []byte) (*Program, error) {
	p := NewProgram()

	nfuncs, b, err := readU32(b)
	if err != nil {
		return nil, errors.Wrap(err, "function count")
	}

	for i := uint32(0); i < nfuncs; i++ {
		var nameLen uint32
		nameLen, b, err = readU32(b)
		if err != nil {
			return nil, errors.Wrap(err, "func %d name length", i)
		}

		if int(nameLen) > len(b) {
			return nil, errors.New("func %d: truncated name", i)
		}

		name := string(b[:nameLen])
		b = b[nameLen:]

		var id uint64
		id, b, err = readU64(b)
		if err != nil {
			return nil, errors.Wrap(err, "func %d id", i)
		}

		var codeLen uint32
		codeLen, b, err = readU32(b)
		if err != nil {
			return nil, errors.Wrap(err, "func %d code length", i)
		}

		if int(codeLen) > len(b) {
			return nil, errors.New("func %d: truncated code", i)
		}

		code := append([]byte(nil), b[:codeLen]...)
		b = b[codeLen:]

		p.Funcs = append(p.Funcs, &Func{Name: name, ID: id, Code: code})
	}

	romLen, b, err := readU32(b)
	if err != nil {
		return nil, errors.Wrap(err, "rom length")
	}

	if int(romLen) > len(b) {
		return nil, errors.New("truncated rom segment")
	}

	p.Rom = append([]byte(nil), b[:romLen]...)

	return p, nil
}

func appendU32(b []byte, v uint32) []byte {
	var t [4]byte
	binary.LittleEndian.PutUint32(t[:], v)
	return append(b, t[:]...)
}

func appendU64(b []byte, v uint64) []byte {
	var t [8]byte
	binary.LittleEndian.PutUint64(t[:], v)
	return append(b, t[:]...)
}

func readU32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, errors.New("truncated u32")
	}
	return binary.LittleEndian.Uint32(b), b[4:], nil
}

func readU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, errors.New("truncated u64")
	}
	return binary.LittleEndian.Uint64(b), b[8:], nil
}
