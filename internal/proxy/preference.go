package proxy

import "sync/atomic"

// Preference remembers which proxy last worked so the next fetch tries it
// first. Concurrent fetches may overwrite each other's hint; that only costs
// an extra attempt, never a wrong result.
type Preference struct {
	index atomic.Int32
}

// Get returns the preferred proxy index.
func (p *Preference) Get() int {
	return int(p.index.Load())
}

// Set records i as the preferred proxy index.
func (p *Preference) Set(i int) {
	p.index.Store(int32(i))
}

// Reset makes the first proxy preferred again.
func (p *Preference) Reset() {
	p.index.Store(0)
}
