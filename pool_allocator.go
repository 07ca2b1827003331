package homa

import "sync"

// PoolAllocator is a SkbAllocator backed by a sync.Pool per requested
// size, adapted from quic-go's buffer_pool.go (which pools whole
// packetBuffer values keyed by a single fixed receive size). Homa
// buffers vary in size (payload up to MaxDataPerPacket, or the fixed
// MaxHeader for control packets), so this pool buckets by requested
// size instead of assuming one fixed size.
//
// Nothing in this package currently returns a buffer to the pool —
// PacketBuffer's lifecycle ends with the Go garbage collector, not a
// Put call — so every Alloc today always misses and falls through to
// sync.Pool's New. The bucketing is in place so that wiring an actual
// release path (freeing a buffer once its PacketBuffer's refcount
// drops to zero and nothing else holds it) is a matter of adding a
// Put method and one call site, not restructuring this type.
type PoolAllocator struct {
	mu    sync.Mutex
	pools map[int]*sync.Pool
}

// NewPoolAllocator returns a ready-to-use PoolAllocator.
func NewPoolAllocator() *PoolAllocator {
	return &PoolAllocator{pools: make(map[int]*sync.Pool)}
}

// Alloc implements SkbAllocator.
func (a *PoolAllocator) Alloc(size int) ([]byte, error) {
	a.mu.Lock()
	p, ok := a.pools[size]
	if !ok {
		p = &sync.Pool{New: func() interface{} {
			return make([]byte, size)
		}}
		a.pools[size] = p
	}
	a.mu.Unlock()

	buf := p.Get().([]byte)
	for i := range buf {
		buf[i] = 0
	}
	return buf, nil
}
