// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptok

import (
	"io"

	"github.com/lesismal/httptok/logging"
	"github.com/lesismal/httptok/mempool"
)

// maxConsecutiveEmptyReads bounds the reads returning no data and no error.
const maxConsecutiveEmptyReads = 100

// Decoder reads from an io.Reader and yields the tokens of a Parser.
type Decoder struct {
	r      io.Reader
	parser *Parser

	// buf[off:] holds bytes read but not yet consumed by the parser.
	buf      []byte
	off      int
	readSize int

	readErr  error
	finished bool
}

// NewDecoder .
func NewDecoder(r io.Reader, p *Parser) *Decoder {
	readSize := p.conf.ReadBufferSize
	if readSize <= 0 {
		readSize = DefaultReadBufferSize
	}
	return &Decoder{
		r:        r,
		parser:   p,
		readSize: readSize,
	}
}

// Parser .
func (d *Decoder) Parser() *Parser {
	return d.parser
}

// Next returns the next token. It returns io.EOF once the reader is exhausted
// and every token has been returned, or the parser's error.
func (d *Decoder) Next() (*Token, error) {
	for {
		tok, n, err := d.parser.NextToken(d.buf[d.off:])
		d.off += n
		if tok != nil || err != nil {
			return tok, err
		}
		if d.finished {
			return nil, io.EOF
		}

		err = d.fill()
		switch err {
		case nil:
		case io.EOF:
			d.finished = true
			// a truncated message is latched and returned by NextToken
			d.parser.Finish()
		default:
			return nil, err
		}
	}
}

// Close releases the read buffer.
func (d *Decoder) Close() error {
	if d.buf != nil {
		mempool.Free(d.buf)
		d.buf = nil
		d.off = 0
	}
	return nil
}

func (d *Decoder) fill() error {
	if d.readErr != nil {
		return d.readErr
	}

	if d.off > 0 {
		n := copy(d.buf, d.buf[d.off:])
		d.buf = d.buf[:n]
		d.off = 0
	}
	if cap(d.buf)-len(d.buf) < d.readSize {
		used := len(d.buf)
		d.buf = mempool.Realloc(d.buf, used+d.readSize)[:used]
	}

	used := len(d.buf)
	for i := 0; i < maxConsecutiveEmptyReads; i++ {
		n, err := d.r.Read(d.buf[used:cap(d.buf)])
		d.buf = d.buf[:used+n]
		if err != nil {
			if err != io.EOF {
				logging.Warn("httptok: decoder read failed: %v", err)
			}
			d.readErr = err
			if n > 0 {
				return nil
			}
			return err
		}
		if n > 0 {
			return nil
		}
	}
	d.readErr = io.ErrNoProgress
	logging.Warn("httptok: decoder read failed: %v", d.readErr)
	return d.readErr
}
