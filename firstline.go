// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptok

import (
	"github.com/lesismal/httptok/scanner"
)

// firstLine decides when the Method or Status token of a message is queued,
// which depends on when the scanner can tell the method and status code.
type firstLine interface {
	// head receives every Url, Status and Field token completed before the
	// header block ends.
	head(a *assembler, tok Token)
	headersComplete(a *assembler)
}

func newFirstLine(timing scanner.Timing) firstLine {
	if timing == scanner.TimingHeadersComplete {
		return deferredFirstLine{}
	}
	return eagerFirstLine{}
}

// eagerFirstLine queues head tokens as they complete. The method is asked for
// when the first head token of a message completes, not when the consumer
// pops it, because by then a pipelined message may have replaced it.
type eagerFirstLine struct{}

func (eagerFirstLine) head(a *assembler, tok Token) {
	if !a.started {
		a.started = true
		if a.kind == scanner.Request {
			a.push(MethodToken(a.src.Method()))
		}
	}
	a.push(a.stamp(tok))
}

func (eagerFirstLine) headersComplete(a *assembler) {}

// deferredFirstLine holds head tokens back until the header block is complete.
type deferredFirstLine struct{}

func (deferredFirstLine) head(a *assembler, tok Token) {
	a.pending = append(a.pending, tok)
}

func (deferredFirstLine) headersComplete(a *assembler) {
	a.started = true
	if a.kind == scanner.Request {
		a.push(MethodToken(a.src.Method()))
	}
	for i, tok := range a.pending {
		a.push(a.stamp(tok))
		a.pending[i] = Token{}
	}
	a.pending = a.pending[:0]
}
