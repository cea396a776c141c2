package qoi

// state is the mutable per-stream context: the pixel cache, the pixel
// most recently placed on the stream and the length of any in-flight
// run. A fresh state is created for every encode or decode call and
// never outlives it.
type state struct {
	// cache holds previously seen pixels, indexed by pixel.hash().
	// Slots start all-zero, which is distinct from the initial prev.
	cache [cacheSize]pixel
	prev  pixel
	// run is the number of pending repeats of prev, always below
	// maxRun except momentarily before a flush.
	run uint8
}

func newState() *state {
	return &state{prev: opaqueBlack}
}

// insert places p in its cache slot, overwriting any previous occupant.
func (s *state) insert(p pixel) {
	s.cache[p.hash()] = p
}

// matchOrReplace reports whether p is already resident at its slot. On
// a miss, p replaces the previous occupant: every pixel that is not a
// cache hit becomes the new resident, last writer wins.
func (s *state) matchOrReplace(p pixel) (uint8, bool) {
	slot := p.hash()
	if s.cache[slot] == p {
		return slot, true
	}
	s.cache[slot] = p
	return 0, false
}
