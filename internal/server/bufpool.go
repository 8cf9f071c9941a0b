package server

import "sync"

// bytePool recycles the fixed-size chunks handleConnection reads into,
// so a busy server doesn't allocate a new 4KB slice on every socket
// read.
type bytePool struct {
	pool sync.Pool
}

func newBytePool(chunkSize int) *bytePool {
	return &bytePool{
		pool: sync.Pool{
			New: func() any {
				return make([]byte, chunkSize)
			},
		},
	}
}

func (bp *bytePool) get() []byte {
	return bp.pool.Get().([]byte)
}

func (bp *bytePool) put(buf []byte) {
	if cap(buf) <= 64*1024 {
		bp.pool.Put(buf[:cap(buf)])
	}
}
