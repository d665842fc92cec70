// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package scanner implements a byte-level HTTP/1.x grammar recognizer.
//
// A Scanner never buffers input. It is fed raw bytes through Execute and reports
// what it recognized by synchronously calling a Handler. Values such as the
// request target, the reason phrase, header names and header values may be
// delivered in several fragments when they straddle the boundary between two
// Execute calls; the Handler is expected to concatenate them.
package scanner

import (
	"strings"
)

// DefaultMaxHeaderBytes .
const DefaultMaxHeaderBytes = 80 * 1024

const (
	maxChunkSizeDigits     = 15
	maxContentLengthDigits = 18
	maxTrackedValueLen     = 1024
)

const (
	headerOther int8 = iota
	headerContentLength
	headerTransferEncoding
)

// Kind selects the start line a Scanner expects.
type Kind int8

const (
	// Request messages start with a request line.
	Request Kind = iota
	// Response messages start with a status line.
	Response
)

func (k Kind) String() string {
	if k == Response {
		return "response"
	}
	return "request"
}

// Timing reports when Method and StatusCode become available to a Handler.
type Timing int8

const (
	// TimingFirstEvent means the method is known before the first OnURL and the
	// status code is known before the first OnStatus of a message.
	TimingFirstEvent Timing = iota
	// TimingHeadersComplete means both stay hidden until OnHeadersComplete.
	TimingHeadersComplete
)

// Handler receives the events of a Scanner in message order.
type Handler interface {
	OnMessageBegin()
	OnURL(data []byte)
	OnStatus(data []byte)
	OnHeaderField(data []byte)
	OnHeaderValue(data []byte)
	OnHeadersComplete()
	OnBody(data []byte)
	OnMessageComplete()
}

// Config .
type Config struct {
	// MaxHeaderBytes limits the size of a start line plus header block.
	// Zero means DefaultMaxHeaderBytes.
	MaxHeaderBytes int

	// DeferFirstLine hides Method and StatusCode until the header block is complete.
	DeferFirstLine bool
}

// Scanner .
type Scanner struct {
	handler Handler
	kind    Kind
	state   int8
	err     error

	maxHeaderBytes int
	headerBytes    int
	deferFirstLine bool
	headComplete   bool

	method     []byte
	methodName string
	protoIdx   int
	statusCode int
	codeDigits int

	// framing headers are tracked across fragments
	key     []byte
	keyLong bool
	header  int8
	// value holds a prefix of a Content-Length value or a suffix of a
	// Transfer-Encoding value; valueCut reports that the suffix lost its head.
	value    []byte
	valueCut bool
	held     []byte

	contentLength    int64
	hasContentLength bool
	chunked          bool
	hasEncoding      bool
	remaining        int64
	sizeDigits       int
}

// New creates a Scanner that reports to h.
func New(kind Kind, h Handler, conf Config) *Scanner {
	if conf.MaxHeaderBytes <= 0 {
		conf.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	s := &Scanner{
		handler:        h,
		kind:           kind,
		maxHeaderBytes: conf.MaxHeaderBytes,
		deferFirstLine: conf.DeferFirstLine,
	}
	s.state = s.startState()
	return s
}

// Kind .
func (s *Scanner) Kind() Kind {
	return s.kind
}

// Timing .
func (s *Scanner) Timing() Timing {
	if s.deferFirstLine {
		return TimingHeadersComplete
	}
	return TimingFirstEvent
}

// Err returns the first grammar error. It never clears.
func (s *Scanner) Err() error {
	return s.err
}

// Method returns the method of the current request, or "" while it is not known.
func (s *Scanner) Method() string {
	if s.deferFirstLine && !s.headComplete {
		return ""
	}
	return s.methodName
}

// StatusCode returns the status code of the current response, or 0 while it is not known.
func (s *Scanner) StatusCode() int {
	if s.deferFirstLine && !s.headComplete {
		return 0
	}
	return s.statusCode
}

// Execute scans data and returns how many bytes were consumed. All bytes are
// consumed unless data is malformed, in which case the index of the offending
// byte is returned and Err reports why. Execute does nothing once Err is set.
func (s *Scanner) Execute(data []byte) int {
	if s.err != nil || len(data) == 0 {
		return 0
	}
	n, err := s.execute(data)
	if err != nil {
		s.err = err
	}
	return n
}

// Finish tells the Scanner the stream has ended. A response delimited by the
// end of the stream completes; a message cut short is an ErrUnexpectedEOF.
func (s *Scanner) Finish() error {
	if s.err != nil {
		return s.err
	}
	switch s.state {
	case stateBodyIdentity:
		s.complete()
	case stateMethodBefore, stateClientProtoBefore:
	default:
		s.err = ErrUnexpectedEOF
	}
	return s.err
}

func (s *Scanner) startState() int8 {
	if s.kind == Response {
		return stateClientProtoBefore
	}
	return stateMethodBefore
}

//go:norace
func (s *Scanner) execute(data []byte) (int, error) {
	var (
		c        byte
		mark     = 0
		valueEnd = 0
	)

	for i := 0; i < len(data); i++ {
		c = data[i]

		if isHeadState(s.state) {
			s.headerBytes++
			if s.headerBytes > s.maxHeaderBytes {
				return i, ErrTooLong
			}
		}

		switch s.state {
		case stateMethodBefore:
			if c == '\r' || c == '\n' {
				continue
			}
			if !isMethodChar(c) {
				return i, ErrInvalidMethod
			}
			s.begin()
			s.method = append(s.method[:0], c)
			s.state = stateMethod
		case stateMethod:
			if c == ' ' {
				method := string(s.method)
				if !isValidMethod(method) {
					return i, ErrInvalidMethod
				}
				s.methodName = method
				s.state = statePathBefore
				continue
			}
			if !isMethodChar(c) || len(s.method) >= maxMethodLen {
				return i, ErrInvalidMethod
			}
			s.method = append(s.method, c)
		case statePathBefore:
			if !isVChar(c) {
				return i, ErrInvalidRequestURI
			}
			mark = i
			s.state = statePath
		case statePath:
			if c == ' ' {
				if i > mark {
					s.handler.OnURL(data[mark:i])
				}
				s.protoIdx = 0
				s.state = stateProto
				continue
			}
			if !isVChar(c) {
				return i, ErrInvalidRequestURI
			}
		case stateProto:
			done, err := s.matchProto(c)
			if err != nil {
				return i, err
			}
			if done {
				s.state = stateProtoCR
			}
		case stateProtoCR:
			if c != '\r' {
				return i, ErrCRExpected
			}
			s.state = stateProtoLF
		case stateProtoLF:
			if c != '\n' {
				return i, ErrLFExpected
			}
			s.state = stateHeaderKeyBefore

		case stateClientProtoBefore:
			if c == '\r' || c == '\n' {
				continue
			}
			if c != 'H' {
				return i, ErrInvalidHTTPVersion
			}
			s.begin()
			s.protoIdx = 1
			s.state = stateClientProto
		case stateClientProto:
			done, err := s.matchProto(c)
			if err != nil {
				return i, err
			}
			if done {
				s.state = stateStatusCodeBefore
			}
		case stateStatusCodeBefore:
			if c != ' ' {
				return i, ErrInvalidHTTPVersion
			}
			s.statusCode = 0
			s.codeDigits = 0
			s.state = stateStatusCode
		case stateStatusCode:
			switch {
			case isNum(c):
				s.codeDigits++
				if s.codeDigits > 3 {
					return i, ErrInvalidHTTPStatusCode
				}
				s.statusCode = s.statusCode*10 + int(c-'0')
			case c == ' ' || c == '\r':
				if s.codeDigits != 3 || s.statusCode < 100 {
					return i, ErrInvalidHTTPStatusCode
				}
				if c == ' ' {
					s.state = stateStatusBefore
					continue
				}
				s.handler.OnStatus(data[i:i])
				s.state = stateStatusLF
			default:
				return i, ErrInvalidHTTPStatusCode
			}
		case stateStatusBefore:
			if c == '\r' {
				s.handler.OnStatus(data[i:i])
				s.state = stateStatusLF
				continue
			}
			if !isVChar(c) && !isSpace(c) {
				return i, ErrInvalidHTTPStatus
			}
			mark = i
			s.state = stateStatus
		case stateStatus:
			if c == '\r' {
				s.handler.OnStatus(data[mark:i])
				s.state = stateStatusLF
				continue
			}
			if !isVChar(c) && !isSpace(c) {
				return i, ErrInvalidHTTPStatus
			}
		case stateStatusLF:
			if c != '\n' {
				return i, ErrLFExpected
			}
			s.state = stateHeaderKeyBefore

		case stateHeaderKeyBefore:
			if c == '\r' {
				s.state = stateHeaderOverLF
				continue
			}
			if !isToken(c) {
				return i, ErrInvalidCharInHeader
			}
			mark = i
			s.key = s.key[:0]
			s.keyLong = false
			s.appendKey(c)
			s.state = stateHeaderKey
		case stateHeaderKey:
			if c == ':' {
				if i > mark {
					s.handler.OnHeaderField(data[mark:i])
				}
				s.header = s.lookupHeader()
				s.value = s.value[:0]
				s.valueCut = false
				s.held = s.held[:0]
				s.state = stateHeaderValueBefore
				continue
			}
			if !isToken(c) {
				return i, ErrInvalidCharInHeader
			}
			s.appendKey(c)
		case stateHeaderValueBefore:
			if isSpace(c) {
				continue
			}
			if c == '\r' {
				s.emitValue(data[i:i])
				if err := s.endHeader(); err != nil {
					return i, err
				}
				s.state = stateHeaderValueLF
				continue
			}
			if !isVChar(c) {
				return i, ErrInvalidCharInHeader
			}
			mark = i
			valueEnd = i + 1
			s.state = stateHeaderValue
		case stateHeaderValue:
			if isSpace(c) {
				continue
			}
			if c == '\r' {
				if valueEnd > mark {
					s.emitHeld()
					s.emitValue(data[mark:valueEnd])
				}
				s.held = s.held[:0]
				if err := s.endHeader(); err != nil {
					return i, err
				}
				s.state = stateHeaderValueLF
				continue
			}
			if !isVChar(c) {
				return i, ErrInvalidCharInHeader
			}
			valueEnd = i + 1
		case stateHeaderValueLF:
			if c != '\n' {
				return i, ErrLFExpected
			}
			s.state = stateHeaderKeyBefore
		case stateHeaderOverLF:
			if c != '\n' {
				return i, ErrLFExpected
			}
			if err := s.headersComplete(); err != nil {
				return i, err
			}

		case stateBodyContentLength:
			n := s.consumeBody(data[i:])
			i += n - 1
			if s.remaining == 0 {
				s.complete()
			}
		case stateBodyIdentity:
			s.handler.OnBody(data[i:])
			i = len(data) - 1

		case stateBodyChunkSizeBefore:
			if !isHex(c) {
				return i, ErrInvalidChunkSize
			}
			s.remaining = int64(unhex(c))
			s.sizeDigits = 1
			s.state = stateBodyChunkSize
		case stateBodyChunkSize:
			switch {
			case isHex(c):
				s.sizeDigits++
				if s.sizeDigits > maxChunkSizeDigits {
					return i, ErrInvalidChunkSize
				}
				s.remaining = s.remaining<<4 | int64(unhex(c))
			case c == ';' || isSpace(c):
				s.state = stateBodyChunkExt
			case c == '\r':
				s.state = stateBodyChunkSizeLF
			default:
				return i, ErrInvalidChunkSize
			}
		case stateBodyChunkExt:
			if c == '\r' {
				s.state = stateBodyChunkSizeLF
				continue
			}
			if !isVChar(c) && !isSpace(c) {
				return i, ErrInvalidChunkSize
			}
		case stateBodyChunkSizeLF:
			if c != '\n' {
				return i, ErrLFExpected
			}
			if s.remaining > 0 {
				s.state = stateBodyChunkData
			} else {
				s.state = stateBodyTrailerBefore
			}
		case stateBodyChunkData:
			n := s.consumeBody(data[i:])
			i += n - 1
			if s.remaining == 0 {
				s.state = stateBodyChunkDataCR
			}
		case stateBodyChunkDataCR:
			if c != '\r' {
				return i, ErrCRExpected
			}
			s.state = stateBodyChunkDataLF
		case stateBodyChunkDataLF:
			if c != '\n' {
				return i, ErrLFExpected
			}
			s.state = stateBodyChunkSizeBefore

		case stateBodyTrailerBefore:
			if c == '\r' {
				s.state = stateTailLF
				continue
			}
			if !isToken(c) {
				return i, ErrInvalidCharInHeader
			}
			s.state = stateBodyTrailerLine
		case stateBodyTrailerLine:
			switch {
			case c == '\r':
				s.state = stateBodyTrailerLF
			case c == '\n':
				return i, ErrCRExpected
			}
		case stateBodyTrailerLF:
			if c != '\n' {
				return i, ErrLFExpected
			}
			s.state = stateBodyTrailerBefore
		case stateTailLF:
			if c != '\n' {
				return i, ErrLFExpected
			}
			s.complete()
		default:
		}
	}

	// deliver the pending part of a value that continues in the next chunk
	switch s.state {
	case statePath:
		if len(data) > mark {
			s.handler.OnURL(data[mark:])
		}
	case stateStatus:
		if len(data) > mark {
			s.handler.OnStatus(data[mark:])
		}
	case stateHeaderKey:
		if len(data) > mark {
			s.handler.OnHeaderField(data[mark:])
		}
	case stateHeaderValue:
		if valueEnd > mark {
			s.emitHeld()
			s.emitValue(data[mark:valueEnd])
			s.held = append(s.held[:0], data[valueEnd:]...)
		} else {
			s.held = append(s.held, data[mark:]...)
		}
	}

	return len(data), nil
}

// matchProto matches one byte of "HTTP/x.y".
func (s *Scanner) matchProto(c byte) (bool, error) {
	const proto = "HTTP/"
	switch {
	case s.protoIdx < len(proto):
		if c != proto[s.protoIdx] {
			return false, ErrInvalidHTTPVersion
		}
	case s.protoIdx == len(proto)+1:
		if c != '.' {
			return false, ErrInvalidHTTPVersion
		}
	default:
		if !isNum(c) {
			return false, ErrInvalidHTTPVersion
		}
	}
	s.protoIdx++
	return s.protoIdx == len(proto)+3, nil
}

func (s *Scanner) appendKey(c byte) {
	if len(s.key) < len("transfer-encoding") {
		s.key = append(s.key, toLower(c))
	} else {
		s.keyLong = true
	}
}

func (s *Scanner) lookupHeader() int8 {
	if s.keyLong {
		return headerOther
	}
	switch string(s.key) {
	case "content-length":
		return headerContentLength
	case "transfer-encoding":
		return headerTransferEncoding
	}
	return headerOther
}

func (s *Scanner) emitValue(data []byte) {
	s.handler.OnHeaderValue(data)
	switch s.header {
	case headerContentLength:
		// one digit more than allowed is enough to reject the value
		if room := maxContentLengthDigits + 1 - len(s.value); room > 0 {
			if len(data) > room {
				data = data[:room]
			}
			s.value = append(s.value, data...)
		}
	case headerTransferEncoding:
		// only the last coding matters
		total := len(s.value) + len(data)
		if len(data) >= maxTrackedValueLen {
			s.value = append(s.value[:0], data[len(data)-maxTrackedValueLen:]...)
		} else {
			s.value = append(s.value, data...)
			if over := len(s.value) - maxTrackedValueLen; over > 0 {
				n := copy(s.value, s.value[over:])
				s.value = s.value[:n]
			}
		}
		if total > maxTrackedValueLen {
			s.valueCut = true
		}
	}
}

// emitHeld delivers whitespace that turned out not to be trailing.
func (s *Scanner) emitHeld() {
	if len(s.held) > 0 {
		s.emitValue(s.held)
		s.held = s.held[:0]
	}
}

func (s *Scanner) endHeader() error {
	header := s.header
	s.header = headerOther
	switch header {
	case headerContentLength:
		v := string(s.value)
		if v == "" || len(v) > maxContentLengthDigits {
			return ErrInvalidContentLength
		}
		var n int64
		for i := 0; i < len(v); i++ {
			if !isNum(v[i]) {
				return ErrInvalidContentLength
			}
			n = n*10 + int64(v[i]-'0')
		}
		if s.hasContentLength && s.contentLength != n {
			return ErrInvalidContentLength
		}
		s.contentLength = n
		s.hasContentLength = true
	case headerTransferEncoding:
		v := strings.ToLower(string(s.value))
		i := strings.LastIndexByte(v, ',')
		s.hasEncoding = true
		s.chunked = (i >= 0 || !s.valueCut) && strings.TrimSpace(v[i+1:]) == "chunked"
	}
	return nil
}

func (s *Scanner) headersComplete() error {
	if s.chunked && s.hasContentLength {
		return ErrUnexpectedContentLength
	}
	if s.hasEncoding && !s.chunked && s.kind == Request {
		return ErrUnsupportedTransferEncoding
	}

	s.headComplete = true
	s.handler.OnHeadersComplete()

	switch {
	case s.kind == Response && (s.statusCode/100 == 1 || s.statusCode == 204 || s.statusCode == 304):
		s.complete()
	case s.chunked:
		s.state = stateBodyChunkSizeBefore
	case s.hasEncoding:
		s.state = stateBodyIdentity
	case s.hasContentLength && s.contentLength > 0:
		s.remaining = s.contentLength
		s.state = stateBodyContentLength
	case s.hasContentLength, s.kind == Request:
		s.complete()
	default:
		s.state = stateBodyIdentity
	}
	return nil
}

func (s *Scanner) consumeBody(data []byte) int {
	n := len(data)
	if int64(n) > s.remaining {
		n = int(s.remaining)
	}
	s.handler.OnBody(data[:n])
	s.remaining -= int64(n)
	return n
}

func (s *Scanner) begin() {
	s.methodName = ""
	s.statusCode = 0
	s.headComplete = false
	s.headerBytes = 1
	s.handler.OnMessageBegin()
}

func (s *Scanner) complete() {
	s.handler.OnMessageComplete()
	s.contentLength = 0
	s.hasContentLength = false
	s.chunked = false
	s.hasEncoding = false
	s.remaining = 0
	s.headerBytes = 0
	s.state = s.startState()
}
