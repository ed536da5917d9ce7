package vm

import (
	"tlog.app/go/errors"

	"nikand.dev/go/heap"
)

// arenaState is one live arena: a bump-allocated byte buffer. Bytes are
// only ever appended (arena_alloc/arena_alloc_array); there is no
// per-allocation free, only whole-arena release (arena_free, §4.5/§5:
// Non-goals exclude a general garbage collector).
type arenaState struct {
	data  []byte
	freed bool
}

const defaultArenaCap = 64

// slab is a reusable backing buffer recycled by arena_free, so a
// following arena_new does not pay for a fresh allocation (§9's domain
// stack note: the teacher's register/spill free-list in compiler/back
// generalizes directly to reusing bump-allocated arena storage). Storage
// is released only by arena_free, which only a `delete` statement emits;
// leaving an arena variable's scope does not release it.
type slab struct {
	cap int
	buf []byte
}

func slabLess(d []slab, i, j int) bool { return d[i].cap < d[j].cap }

// slabPool is a free-list of released arena buffers, ordered smallest-
// capacity-first so arena_new reuses the tightest available fit.
type slabPool struct {
	h heap.Heap[slab]
}

func (p *slabPool) init() {
	if p.h.Less == nil {
		p.h.Less = slabLess
	}
}

func (p *slabPool) take() []byte {
	p.init()
	if p.h.Len() == 0 {
		return make([]byte, 0, defaultArenaCap)
	}
	s := p.h.Pop()
	return s.buf[:0]
}

func (p *slabPool) give(buf []byte) {
	p.init()
	p.h.Push(slab{cap: cap(buf), buf: buf})
}

func (m *Machine) arenaNew() uint32 {
	id := uint32(len(m.arenas))
	m.arenas = append(m.arenas, &arenaState{data: m.pool.take()})
	return id
}

func (m *Machine) arenaLookup(id uint32) (*arenaState, error) {
	if int(id) >= len(m.arenas) {
		return nil, errors.New("arena: invalid handle %d", id)
	}
	a := m.arenas[id]
	if a.freed {
		return nil, errors.New("arena: use after free (handle %d)", id)
	}
	return a, nil
}

func (m *Machine) arenaFree(id uint32) error {
	a, err := m.arenaLookup(id)
	if err != nil {
		return err
	}
	a.freed = true
	m.pool.give(a.data)
	a.data = nil
	return nil
}

func (m *Machine) arenaAlloc(id uint32, val []byte) (uint64, error) {
	a, err := m.arenaLookup(id)
	if err != nil {
		return 0, err
	}
	ofs := uint32(len(a.data))
	a.data = append(a.data, val...)
	return heapPtr(id, ofs), nil
}

func (m *Machine) arenaSize(id uint32) (uint64, error) {
	a, err := m.arenaLookup(id)
	if err != nil {
		return 0, err
	}
	return uint64(len(a.data)), nil
}

func (m *Machine) arenaRead(id uint32, ofs uint32, size int) ([]byte, error) {
	a, err := m.arenaLookup(id)
	if err != nil {
		return nil, err
	}
	if int(ofs)+size > len(a.data) {
		return nil, errors.New("arena %d: read %d+%d out of range (len %d)", id, ofs, size, len(a.data))
	}
	b := make([]byte, size)
	copy(b, a.data[ofs:int(ofs)+size])
	return b, nil
}

func (m *Machine) arenaWrite(id uint32, ofs uint32, val []byte) error {
	a, err := m.arenaLookup(id)
	if err != nil {
		return err
	}
	if int(ofs)+len(val) > len(a.data) {
		return errors.New("arena %d: write %d+%d out of range (len %d)", id, ofs, len(val), len(a.data))
	}
	copy(a.data[int(ofs):int(ofs)+len(val)], val)
	return nil
}
