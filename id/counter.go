package id

import "sync/atomic"

// atomicCounter hands out monotonically increasing sequence numbers.
type atomicCounter struct {
	n atomic.Uint64
}

func (c *atomicCounter) next() uint64 {
	return c.n.Add(1)
}
