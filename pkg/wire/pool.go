package wire

import "sync"

// smallFrame bounds the buffers kept in the pool. Frames above this size
// (large reads/writes) are allocated fresh and left for the garbage
// collector; only the common small-request case is pooled.
const smallFrame = 64 * 1024

type framePool struct {
	small sync.Pool
}

// Get returns a buffer of length sz, reusing a pooled one when sz fits the
// small-frame bucket. This recycles scratch memory for wire frames; it does
// not retain or cache any device content between calls.
func (p *framePool) Get(sz int) []byte {
	if sz <= smallFrame {
		var buf []byte
		if v := p.small.Get(); v != nil {
			buf = v.([]byte)
		} else {
			buf = make([]byte, smallFrame)
		}
		return buf[:sz]
	}

	return make([]byte, sz)
}

// Return gives a buffer obtained from Get back to the pool.
func (p *framePool) Return(buf []byte) {
	buf = buf[:cap(buf)]
	if len(buf) == smallFrame {
		p.small.Put(buf)
	}
}

// Frames is the package-level scratch-buffer pool used by both the network
// device client and the backing-device server for allocating frame buffers.
var Frames framePool
