// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package mempool recycles byte buffers through a sync.Pool.
package mempool

import (
	"sync"
)

// Allocator .
type Allocator interface {
	Malloc(size int) []byte
	Realloc(buf []byte, size int) []byte
	Append(buf []byte, more ...byte) []byte
	Free(buf []byte)
}

// DefaultMemPool .
var DefaultMemPool = New(1024, 1024*1024)

// MemPool .
type MemPool struct {
	bufSize  int
	freeSize int
	pool     *sync.Pool
}

// New creates a pool whose fresh buffers have bufSize bytes of capacity.
// Buffers larger than freeSize are left to the garbage collector.
func New(bufSize, freeSize int) Allocator {
	if bufSize <= 0 {
		bufSize = 64
	}
	if freeSize <= 0 {
		freeSize = 64 * 1024
	}
	if freeSize < bufSize {
		freeSize = bufSize
	}

	mp := &MemPool{
		bufSize:  bufSize,
		freeSize: freeSize,
		pool:     &sync.Pool{},
	}
	mp.pool.New = func() interface{} {
		buf := make([]byte, bufSize)
		return &buf
	}

	return mp
}

// Malloc .
func (mp *MemPool) Malloc(size int) []byte {
	if size > mp.freeSize {
		return make([]byte, size)
	}
	pbuf := mp.pool.Get().(*[]byte)
	if n := cap(*pbuf); n < size {
		*pbuf = append((*pbuf)[:n], make([]byte, size-n)...)
	}
	return (*pbuf)[:size]
}

// Realloc returns a buffer of size bytes that starts with the content of buf.
// Growth goes through the builtin append, so repeated growth is amortized.
func (mp *MemPool) Realloc(buf []byte, size int) []byte {
	if size <= cap(buf) {
		return buf[:size]
	}
	if cap(buf) == 0 {
		return mp.Malloc(size)
	}
	n := cap(buf)
	newBuf := append(buf[:n], make([]byte, size-n)...)
	mp.Free(buf)
	return newBuf[:size]
}

// Append .
func (mp *MemPool) Append(buf []byte, more ...byte) []byte {
	return append(buf, more...)
}

// Free .
func (mp *MemPool) Free(buf []byte) {
	if cap(buf) == 0 || cap(buf) > mp.freeSize {
		return
	}
	buf = buf[:cap(buf)]
	mp.pool.Put(&buf)
}

// Malloc .
func Malloc(size int) []byte {
	return DefaultMemPool.Malloc(size)
}

// Realloc .
func Realloc(buf []byte, size int) []byte {
	return DefaultMemPool.Realloc(buf, size)
}

// Append .
func Append(buf []byte, more ...byte) []byte {
	return DefaultMemPool.Append(buf, more...)
}

// Free .
func Free(buf []byte) {
	DefaultMemPool.Free(buf)
}
