// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpmsg

import (
	"io"
	"sync"

	"github.com/lesismal/httptok/mempool"
)

var (
	bodyReaderPool = sync.Pool{
		New: func() interface{} {
			return &BodyReader{}
		},
	}
)

// BodyReader collects the Body tokens of a message and reads them back.
type BodyReader struct {
	index  int
	buffer []byte
}

// NewBodyReader creates a BodyReader holding a copy of data.
func NewBodyReader(data []byte) *BodyReader {
	br := bodyReaderPool.Get().(*BodyReader)
	br.index = 0
	br.Append(data)
	return br
}

// Read implements io.Reader.
func (br *BodyReader) Read(p []byte) (int, error) {
	if br.index >= len(br.buffer) {
		return 0, io.EOF
	}
	n := copy(p, br.buffer[br.index:])
	br.index += n
	if br.index == len(br.buffer) && n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Append .
func (br *BodyReader) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	if br.buffer == nil {
		br.buffer = mempool.Malloc(len(data))
		copy(br.buffer, data)
		return
	}
	br.buffer = mempool.Append(br.buffer, data...)
}

// Len returns the number of unread bytes.
func (br *BodyReader) Len() int {
	return len(br.buffer) - br.index
}

// RawBody returns the buffer without copying it. The buffer goes back to the
// mempool on Close, so it must not be used after that.
func (br *BodyReader) RawBody() []byte {
	return br.buffer
}

// TakeOver returns the buffer and detaches it from the BodyReader. The caller
// owns it from then on and may hand it back with mempool.Free.
func (br *BodyReader) TakeOver() []byte {
	b := br.buffer
	br.buffer = nil
	br.index = 0
	return b
}

// Close implements io.Closer.
func (br *BodyReader) Close() error {
	if br.buffer != nil {
		mempool.Free(br.buffer)
		br.buffer = nil
		br.index = 0
	}
	return nil
}

func releaseBodyReader(br *BodyReader) {
	br.Close()
	bodyReaderPool.Put(br)
}
