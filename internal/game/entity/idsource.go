package entity

import "sync/atomic"

// IDSource issues monotonically increasing object IDs. IDs start at 1; zero
// is never issued and means "no object".
type IDSource struct {
	last atomic.Uint64
}

// Next returns a fresh ID.
//
// Postcondition: the result is greater than every ID previously returned or observed.
func (s *IDSource) Next() ID {
	return ID(s.last.Add(1))
}

// Observe raises the high-water mark to at least id so that IDs loaded from a
// snapshot are never issued again.
func (s *IDSource) Observe(id ID) {
	for {
		cur := s.last.Load()
		if uint64(id) <= cur {
			return
		}
		if s.last.CompareAndSwap(cur, uint64(id)) {
			return
		}
	}
}

// HighWater returns the largest ID issued or observed so far.
func (s *IDSource) HighWater() ID {
	return ID(s.last.Load())
}
