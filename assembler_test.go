package httptok

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lesismal/httptok/scanner"
)

type fakeSource struct {
	method string
	code   int
}

func (f *fakeSource) Method() string  { return f.method }
func (f *fakeSource) StatusCode() int { return f.code }

func newTestAssembler(kind scanner.Kind, timing scanner.Timing, src firstLineSource) *assembler {
	a := newAssembler(kind)
	a.src = src
	a.line = newFirstLine(timing)
	return a
}

func drain(a *assembler) []Token {
	var toks []Token
	for {
		tok, ok := a.pop()
		if !ok {
			return toks
		}
		toks = append(toks, tok)
	}
}

func TestAssemblerReassemblesFragments(t *testing.T) {
	src := &fakeSource{method: "POST"}
	a := newTestAssembler(scanner.Request, scanner.TimingFirstEvent, src)

	a.OnMessageBegin()
	a.OnURL([]byte("/a"))
	a.OnURL([]byte("b?c"))
	a.OnHeaderField([]byte("X-"))
	a.OnHeaderField([]byte("Key"))
	a.OnHeaderValue([]byte("v1"))
	a.OnHeaderValue([]byte(""))
	a.OnHeaderValue([]byte("v2"))
	a.OnHeaderField([]byte("Y"))
	a.OnHeaderValue([]byte("z"))
	a.OnHeadersComplete()
	a.OnBody([]byte("12"))
	a.OnBody([]byte("3"))
	a.OnMessageComplete()

	assert.Equal(t, []Token{
		MethodToken("POST"),
		URLToken("/ab?c"),
		FieldToken("X-Key", "v1v2"),
		FieldToken("Y", "z"),
		BodyToken([]byte("12")),
		BodyToken([]byte("3")),
		EndOfMessageToken(),
	}, drain(a))
	assert.Equal(t, bufEmpty, a.state)
}

func TestAssemblerDeferredFirstLine(t *testing.T) {
	src := &fakeSource{}
	a := newTestAssembler(scanner.Request, scanner.TimingHeadersComplete, src)

	a.OnMessageBegin()
	a.OnURL([]byte("/x"))
	a.OnHeaderField([]byte("Host"))
	a.OnHeaderValue([]byte("a"))
	a.OnHeaderField([]byte("Accept"))
	a.OnHeaderValue([]byte("*/*"))
	require.Empty(t, drain(a))

	src.method = "GET"
	a.OnHeadersComplete()
	a.OnMessageComplete()
	assert.Equal(t, []Token{
		MethodToken("GET"),
		URLToken("/x"),
		FieldToken("Host", "a"),
		FieldToken("Accept", "*/*"),
		EndOfMessageToken(),
	}, drain(a))
	assert.Empty(t, a.pending)
}

func TestAssemblerStatusStamp(t *testing.T) {
	for _, timing := range []scanner.Timing{scanner.TimingFirstEvent, scanner.TimingHeadersComplete} {
		src := &fakeSource{code: 404}
		a := newTestAssembler(scanner.Response, timing, src)

		a.OnMessageBegin()
		a.OnStatus([]byte("Not "))
		a.OnStatus([]byte("Found"))
		a.OnHeadersComplete()
		a.OnMessageComplete()
		assert.Equal(t, []Token{StatusToken(404, "Not Found"), EndOfMessageToken()}, drain(a))
	}

	// the code is unknown when the reason is flushed: the placeholder stays
	src := &fakeSource{}
	a := newTestAssembler(scanner.Response, scanner.TimingFirstEvent, src)
	a.OnStatus([]byte("OK"))
	a.OnHeaderField([]byte("Server"))
	tok, ok := a.pop()
	require.True(t, ok)
	assert.Equal(t, StatusToken(0, "OK"), tok)
}

func TestAssemblerContractViolations(t *testing.T) {
	violation := func(event, state string) string {
		return (&InvariantError{Event: event, State: state}).Error()
	}
	newRequest := func() *assembler {
		return newTestAssembler(scanner.Request, scanner.TimingFirstEvent, &fakeSource{method: "GET"})
	}

	a := newRequest()
	a.OnHeaderField([]byte("Host"))
	assert.PanicsWithError(t, violation("url", "field name"), func() { a.OnURL([]byte("/")) })

	a = newRequest()
	a.OnURL([]byte("/"))
	assert.PanicsWithError(t, violation("status", "url"), func() { a.OnStatus([]byte("OK")) })

	a = newRequest()
	assert.PanicsWithError(t, violation("header field", "nothing"), func() { a.OnHeaderField([]byte("Host")) })

	a = newRequest()
	a.OnURL([]byte("/"))
	assert.PanicsWithError(t, violation("header value", "url"), func() { a.OnHeaderValue([]byte("v")) })

	a = newRequest()
	a.OnURL([]byte("/"))
	a.OnHeaderField([]byte("Host"))
	assert.PanicsWithError(t, violation("headers complete", "field name"), func() { a.OnHeadersComplete() })

	a = newRequest()
	a.OnURL([]byte("/"))
	a.OnHeaderField([]byte("Host"))
	a.OnHeaderValue([]byte("a"))
	assert.PanicsWithError(t, violation("body", "field value"), func() { a.OnBody([]byte("x")) })
}

func TestParserResponseMustStartWithStatus(t *testing.T) {
	p := NewResponseParser()
	p.asm.push(BodyToken([]byte("x")))
	assert.PanicsWithError(t, (&InvariantError{Event: "Body", State: "start of response"}).Error(), func() {
		p.NextToken(nil)
	})
}

func TestAssemblerQueueUnshift(t *testing.T) {
	a := newAssembler(scanner.Request)
	a.unshift(URLToken("/b"))
	a.unshift(URLToken("/a"))
	a.push(EndOfMessageToken())

	tok, _ := a.pop()
	assert.Equal(t, URLToken("/a"), tok)
	a.unshift(MethodToken("GET"))
	assert.Equal(t, []Token{MethodToken("GET"), URLToken("/b"), EndOfMessageToken()}, drain(a))
	assert.Equal(t, 0, a.head)
}
