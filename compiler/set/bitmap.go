// Package set provides a minimal growable bitmap. It is trimmed down to
// the two operations bytecode.Func actually needs to track valid jump
// targets within a function's code (§8.1): mark an offset as a target,
// and iterate the marked offsets during ValidateJumps.
package set

// Bitmap is a sparse set of non-negative ints backed by a growable slice
// of words.
type Bitmap struct {
	b []uint64
}

func (s *Bitmap) ij(pos int) (i, j int) {
	return pos / 64, pos % 64
}

func (s *Bitmap) grow(i int) {
	for i >= len(s.b) {
		s.b = append(s.b, 0)
	}
}

// Set marks i as present.
func (s *Bitmap) Set(i int) {
	wi, j := s.ij(i)
	s.grow(wi)
	s.b[wi] |= 1 << j
}

// Range calls f once for every present value in ascending order, stopping
// early if f returns false.
func (s *Bitmap) Range(f func(i int) bool) {
	for wi, x := range s.b {
		if x == 0 {
			continue
		}

		for j := 0; j < 64; j++ {
			if x&(1<<j) == 0 {
				continue
			}

			if !f(wi*64 + j) {
				return
			}
		}
	}
}
