// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package httptok turns HTTP/1.x bytes, delivered in chunks of any size, into
// a sequence of tokens: Method or Status, Url, Field, Body and EndOfMessage.
package httptok

import (
	"github.com/lesismal/httptok/logging"
	"github.com/lesismal/httptok/scanner"
)

// Parser pulls tokens out of an HTTP/1.x byte stream one at a time.
// A Parser is not safe for concurrent use.
type Parser struct {
	kind    scanner.Kind
	conf    Config
	scanner *scanner.Scanner
	asm     *assembler

	// err is latched on the first malformed input and never cleared.
	err error

	inMessage bool
}

// NewParser creates a Parser for request or response messages.
func NewParser(kind scanner.Kind, conf Config) *Parser {
	asm := newAssembler(kind)
	s := scanner.New(kind, asm, conf.scannerConfig())
	asm.src = s
	asm.line = newFirstLine(s.Timing())
	return &Parser{
		kind:    kind,
		conf:    conf,
		scanner: s,
		asm:     asm,
	}
}

// NewRequestParser .
func NewRequestParser() *Parser {
	return NewParser(scanner.Request, Config{})
}

// NewResponseParser .
func NewResponseParser() *Parser {
	return NewParser(scanner.Response, Config{})
}

// Kind .
func (p *Parser) Kind() scanner.Kind {
	return p.kind
}

// Err returns the latched error, if any.
func (p *Parser) Err() error {
	return p.err
}

// NextToken feeds data, if any, and returns the next token together with the
// number of bytes of data consumed. Bytes that were not consumed must be
// passed again, in front of new data, on the next call.
//
// A nil token with a nil error means no token is available yet. Once the input
// turned out malformed, NextToken stops consuming; it keeps returning the
// tokens queued before the error and then the error itself on every call.
func (p *Parser) NextToken(data []byte) (*Token, int, error) {
	n := 0
	if p.err == nil && len(data) > 0 {
		n = p.scanner.Execute(data)
		if err := p.scanner.Err(); err != nil {
			p.latch(err)
		}
	}

	tok, ok := p.asm.pop()
	if !ok {
		return nil, n, p.err
	}

	if !p.inMessage {
		p.inMessage = true
		var err error
		tok, err = p.firstToken(tok)
		if err != nil {
			return nil, n, err
		}
	}
	if tok.Kind == TokenEndOfMessage {
		p.inMessage = false
	}
	return &tok, n, nil
}

// Finish tells the Parser the stream has ended. A response delimited by the
// end of the stream gets its EndOfMessage; a truncated message latches
// scanner.ErrUnexpectedEOF.
func (p *Parser) Finish() error {
	if p.err != nil {
		return p.err
	}
	if err := p.scanner.Finish(); err != nil {
		p.latch(err)
	}
	return p.err
}

func (p *Parser) firstToken(tok Token) (Token, error) {
	switch p.kind {
	case scanner.Request:
		// Both first-line strategies queue a Method ahead of the head
		// tokens; this covers a strategy or handler that does not.
		if tok.Kind != TokenMethod {
			p.asm.unshift(tok)
			tok = MethodToken(p.scanner.Method())
		}
	case scanner.Response:
		if tok.Kind != TokenStatus {
			panic(&InvariantError{Event: tok.Kind.String(), State: "start of response"})
		}
		if tok.Code == 0 {
			tok.Code = p.scanner.StatusCode()
		}
		if tok.Code == 0 {
			p.latch(ErrMissingStatusCode)
			p.asm.discard()
			return tok, p.err
		}
	}
	return tok, nil
}

func (p *Parser) latch(err error) {
	if p.err != nil {
		return
	}
	p.err = &ParseError{Err: err}
	logging.Debug("httptok: %v parser stopped: %v", p.kind, err)
}
