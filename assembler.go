// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptok

import (
	"github.com/lesismal/httptok/scanner"
)

// bufState is the kind of value the assembler is currently reassembling.
type bufState int8

const (
	bufEmpty bufState = iota
	bufURL
	bufStatus
	bufFieldName
	bufFieldValue
)

var bufStateNames = [...]string{
	bufEmpty:      "nothing",
	bufURL:        "url",
	bufStatus:     "status reason",
	bufFieldName:  "field name",
	bufFieldValue: "field value",
}

func (s bufState) String() string {
	return bufStateNames[s]
}

// firstLineSource is what the scanner knows about the start line.
type firstLineSource interface {
	Method() string
	StatusCode() int
}

// assembler implements scanner.Handler. It glues fragments back into whole
// values and queues the resulting tokens in message order.
type assembler struct {
	kind scanner.Kind
	src  firstLineSource
	line firstLine

	state bufState
	name  []byte
	text  []byte

	started bool
	pending []Token

	queue []Token
	head  int
}

func newAssembler(kind scanner.Kind) *assembler {
	return &assembler{kind: kind}
}

func (a *assembler) OnMessageBegin() {
	a.started = false
}

func (a *assembler) OnURL(data []byte) {
	switch a.state {
	case bufEmpty:
		a.state = bufURL
		a.text = append(a.text[:0], data...)
	case bufURL:
		a.text = append(a.text, data...)
	default:
		a.violate("url")
	}
}

func (a *assembler) OnStatus(data []byte) {
	switch a.state {
	case bufEmpty:
		a.state = bufStatus
		a.text = append(a.text[:0], data...)
	case bufStatus:
		a.text = append(a.text, data...)
	default:
		a.violate("status")
	}
}

func (a *assembler) OnHeaderField(data []byte) {
	switch a.state {
	case bufFieldName:
		a.name = append(a.name, data...)
		return
	case bufURL, bufStatus, bufFieldValue:
		a.flush()
	default:
		a.violate("header field")
	}
	a.state = bufFieldName
	a.name = append(a.name[:0], data...)
}

func (a *assembler) OnHeaderValue(data []byte) {
	switch a.state {
	case bufFieldName:
		a.state = bufFieldValue
		a.text = append(a.text[:0], data...)
	case bufFieldValue:
		a.text = append(a.text, data...)
	default:
		a.violate("header value")
	}
}

func (a *assembler) OnHeadersComplete() {
	switch a.state {
	case bufURL, bufStatus, bufFieldValue:
		a.flush()
	case bufFieldName:
		a.violate("headers complete")
	}
	a.line.headersComplete(a)
}

func (a *assembler) OnBody(data []byte) {
	if a.state != bufEmpty {
		a.violate("body")
	}
	body := make([]byte, len(data))
	copy(body, data)
	a.push(BodyToken(body))
}

func (a *assembler) OnMessageComplete() {
	a.state = bufEmpty
	a.name = a.name[:0]
	a.text = a.text[:0]
	a.push(EndOfMessageToken())
	a.started = false
}

// flush completes the buffered value and hands it to the first-line strategy.
func (a *assembler) flush() {
	var tok Token
	switch a.state {
	case bufURL:
		tok = URLToken(take(&a.text))
	case bufStatus:
		tok = StatusToken(0, take(&a.text))
	case bufFieldValue:
		tok = FieldToken(take(&a.name), take(&a.text))
	default:
		return
	}
	a.state = bufEmpty
	a.line.head(a, tok)
}

// stamp fills in a placeholder status code once the scanner knows it.
func (a *assembler) stamp(tok Token) Token {
	if tok.Kind == TokenStatus && tok.Code == 0 {
		tok.Code = a.src.StatusCode()
	}
	return tok
}

func (a *assembler) violate(event string) {
	panic(&InvariantError{Event: event, State: a.state.String()})
}

func (a *assembler) push(tok Token) {
	a.queue = append(a.queue, tok)
}

func (a *assembler) pop() (Token, bool) {
	if a.head == len(a.queue) {
		return Token{}, false
	}
	tok := a.queue[a.head]
	a.queue[a.head] = Token{}
	a.head++
	if a.head == len(a.queue) {
		a.queue = a.queue[:0]
		a.head = 0
	}
	return tok, true
}

// unshift puts tok back at the front of the queue.
func (a *assembler) unshift(tok Token) {
	if a.head > 0 {
		a.head--
		a.queue[a.head] = tok
		return
	}
	a.queue = append(a.queue, Token{})
	copy(a.queue[1:], a.queue)
	a.queue[0] = tok
}

// discard drops every queued token and any partial value.
func (a *assembler) discard() {
	for i := a.head; i < len(a.queue); i++ {
		a.queue[i] = Token{}
	}
	a.queue = a.queue[:0]
	a.head = 0
	a.pending = a.pending[:0]
	a.state = bufEmpty
}

// take moves the text out of buf and leaves buf empty for reuse.
func take(buf *[]byte) string {
	s := string(*buf)
	*buf = (*buf)[:0]
	return s
}
