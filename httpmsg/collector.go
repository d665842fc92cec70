// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package httpmsg folds httptok tokens into net/http requests and responses.
package httpmsg

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/lesismal/httptok"
)

const (
	transferEncodingHeader = "Transfer-Encoding"
	contentLengthHeader    = "Content-Length"
)

var (
	// ErrUnexpectedToken is returned when a token does not fit the message
	// being collected.
	ErrUnexpectedToken = errors.New("httpmsg: unexpected token")

	// ErrKindMismatch is returned by ReadRequest and ReadResponse when the
	// stream carries the other kind of message.
	ErrKindMismatch = errors.New("httpmsg: message kind mismatch")
)

var (
	emptyRequest  = http.Request{}
	emptyResponse = http.Response{}

	requestPool = sync.Pool{
		New: func() interface{} {
			return &http.Request{}
		},
	}

	responsePool = sync.Pool{
		New: func() interface{} {
			return &http.Response{}
		},
	}
)

// ReleaseRequest returns req and its body to the pools. req must not be used
// afterwards.
func ReleaseRequest(req *http.Request) {
	if req != nil {
		if br, ok := req.Body.(*BodyReader); ok {
			releaseBodyReader(br)
		}
		// fast gc for fields
		*req = emptyRequest
		requestPool.Put(req)
	}
}

// ReleaseResponse returns res and its body to the pools.
func ReleaseResponse(res *http.Response) {
	if res != nil {
		if br, ok := res.Body.(*BodyReader); ok {
			releaseBodyReader(br)
		}
		*res = emptyResponse
		responsePool.Put(res)
	}
}

// Collector builds one message at a time out of the tokens passed to Add.
// Tokens carry no protocol version, so messages are reported as HTTP/1.1.
type Collector struct {
	request  *http.Request
	response *http.Response

	doneRequest  *http.Request
	doneResponse *http.Response
}

// NewCollector .
func NewCollector() *Collector {
	return &Collector{}
}

// Add folds tok into the current message. It returns true when tok completed
// a message, which is then available from Request or Response.
func (c *Collector) Add(tok httptok.Token) (bool, error) {
	switch tok.Kind {
	case httptok.TokenMethod:
		if c.inMessage() {
			return false, unexpected(tok)
		}
		c.onMethod(tok.Value)
	case httptok.TokenStatus:
		if c.inMessage() {
			return false, unexpected(tok)
		}
		c.onStatus(tok.Code, tok.Value)
	case httptok.TokenURL:
		if c.request == nil || c.request.URL != nil {
			return false, unexpected(tok)
		}
		return false, c.onURL(tok.Value)
	case httptok.TokenField:
		header := c.header()
		if header == nil {
			return false, unexpected(tok)
		}
		header.Add(tok.Name, tok.Value)
	case httptok.TokenBody:
		if !c.inMessage() {
			return false, unexpected(tok)
		}
		c.onBody(tok.Body)
	case httptok.TokenEndOfMessage:
		if !c.inMessage() || (c.request != nil && c.request.URL == nil) {
			return false, unexpected(tok)
		}
		c.onComplete()
		return true, nil
	default:
		return false, unexpected(tok)
	}
	return false, nil
}

// Request returns the last completed request, or nil. The Collector forgets
// it, so each request is returned once.
func (c *Collector) Request() *http.Request {
	req := c.doneRequest
	c.doneRequest = nil
	return req
}

// Response returns the last completed response, or nil.
func (c *Collector) Response() *http.Response {
	res := c.doneResponse
	c.doneResponse = nil
	return res
}

// Close drops the message being collected.
func (c *Collector) Close() {
	if c.request != nil {
		ReleaseRequest(c.request)
		c.request = nil
	}
	if c.response != nil {
		ReleaseResponse(c.response)
		c.response = nil
	}
}

func (c *Collector) inMessage() bool {
	return c.request != nil || c.response != nil
}

func (c *Collector) header() http.Header {
	switch {
	case c.request != nil && c.request.URL != nil:
		return c.request.Header
	case c.response != nil:
		return c.response.Header
	}
	return nil
}

func (c *Collector) onMethod(method string) {
	c.request = requestPool.Get().(*http.Request)
	c.request.Method = method
	c.request.Proto = "HTTP/1.1"
	c.request.ProtoMajor = 1
	c.request.ProtoMinor = 1
	c.request.Header = http.Header{}
}

func (c *Collector) onURL(rawurl string) error {
	c.request.RequestURI = rawurl

	justAuthority := c.request.Method == http.MethodConnect && !strings.HasPrefix(rawurl, "/")
	if justAuthority {
		rawurl = "http://" + rawurl
	}

	u, err := url.ParseRequestURI(rawurl)
	if err != nil {
		return err
	}
	if justAuthority {
		u.Scheme = ""
	}

	c.request.URL = u
	return nil
}

func (c *Collector) onStatus(code int, reason string) {
	c.response = responsePool.Get().(*http.Response)
	c.response.StatusCode = code
	c.response.Status = strconv.Itoa(code)
	if reason != "" {
		c.response.Status += " " + reason
	}
	c.response.Proto = "HTTP/1.1"
	c.response.ProtoMajor = 1
	c.response.ProtoMinor = 1
	c.response.Header = http.Header{}
}

func (c *Collector) onBody(data []byte) {
	var body io.ReadCloser
	if c.request != nil {
		body = c.request.Body
	} else {
		body = c.response.Body
	}
	if body != nil {
		body.(*BodyReader).Append(data)
		return
	}
	body = NewBodyReader(data)
	if c.request != nil {
		c.request.Body = body
	} else {
		c.response.Body = body
	}
}

func (c *Collector) onComplete() {
	if request := c.request; request != nil {
		c.request = nil

		if request.URL.Host == "" {
			request.URL.Host = request.Header.Get("Host")
		}
		request.Host = request.URL.Host
		request.TransferEncoding = request.Header[transferEncodingHeader]
		if len(request.TransferEncoding) > 0 {
			request.ContentLength = -1
		} else {
			request.ContentLength = contentLength(request.Header, 0)
		}
		request.Close = shouldClose(request.ProtoMajor, request.ProtoMinor, request.Header)
		if request.Body == nil {
			request.Body = NewBodyReader(nil)
		}
		c.doneRequest = request
		return
	}

	response := c.response
	c.response = nil

	response.TransferEncoding = response.Header[transferEncodingHeader]
	switch {
	case len(response.TransferEncoding) > 0:
		response.ContentLength = -1
	case bodyAllowed(response.StatusCode):
		response.ContentLength = contentLength(response.Header, -1)
	}
	// a response without framing ends with the connection
	response.Close = shouldClose(response.ProtoMajor, response.ProtoMinor, response.Header) ||
		(response.ContentLength < 0 && len(response.TransferEncoding) == 0)
	if response.Body == nil {
		response.Body = NewBodyReader(nil)
	}
	c.doneResponse = response
}

// ReadRequest collects the next request from d.
func ReadRequest(d *httptok.Decoder) (*http.Request, error) {
	c := NewCollector()
	if err := collect(d, c); err != nil {
		return nil, err
	}
	if req := c.Request(); req != nil {
		return req, nil
	}
	ReleaseResponse(c.Response())
	return nil, ErrKindMismatch
}

// ReadResponse collects the next response from d.
func ReadResponse(d *httptok.Decoder) (*http.Response, error) {
	c := NewCollector()
	if err := collect(d, c); err != nil {
		return nil, err
	}
	if res := c.Response(); res != nil {
		return res, nil
	}
	ReleaseRequest(c.Request())
	return nil, ErrKindMismatch
}

func collect(d *httptok.Decoder, c *Collector) error {
	for {
		tok, err := d.Next()
		if err != nil {
			if err == io.EOF && c.inMessage() {
				err = io.ErrUnexpectedEOF
			}
			c.Close()
			return err
		}
		done, err := c.Add(*tok)
		if err != nil {
			c.Close()
			return err
		}
		if done {
			return nil
		}
	}
}

func unexpected(tok httptok.Token) error {
	return fmt.Errorf("%w: %v", ErrUnexpectedToken, tok)
}

func contentLength(header http.Header, def int64) int64 {
	cl := header.Get(contentLengthHeader)
	if cl == "" {
		return def
	}
	n, err := strconv.ParseInt(cl, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func bodyAllowed(code int) bool {
	return code >= 200 && code != http.StatusNoContent && code != http.StatusNotModified
}

func shouldClose(major, minor int, header http.Header) bool {
	if major < 1 {
		return true
	}
	hasClose := false
	keepAlive := false
CONNECTION_VALUES:
	for _, v := range header["Connection"] {
		for _, opt := range strings.Split(v, ",") {
			switch strings.ToLower(strings.TrimSpace(opt)) {
			case "close":
				hasClose = true
				break CONNECTION_VALUES
			case "keep-alive":
				keepAlive = true
			}
		}
	}
	if major == 1 && minor == 0 {
		return hasClose || !keepAlive
	}
	return hasClose
}
