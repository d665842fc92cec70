package httptok

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lesismal/httptok/scanner"
)

// feed appends every chunk to a residual buffer and drains the parser fully
// before the next chunk is appended.
func feed(t *testing.T, p *Parser, chunks ...string) []Token {
	var (
		toks []Token
		buf  []byte
	)
	for _, c := range chunks {
		buf = append(buf, c...)
		for {
			tok, n, err := p.NextToken(buf)
			require.NoError(t, err)
			buf = buf[n:]
			if tok == nil {
				break
			}
			toks = append(toks, *tok)
		}
	}
	require.Empty(t, buf)
	return toks
}

// mergeBodies joins adjacent Body tokens since their boundaries carry no meaning.
func mergeBodies(toks []Token) []Token {
	var out []Token
	for _, tok := range toks {
		if tok.Kind == TokenBody && len(out) > 0 && out[len(out)-1].Kind == TokenBody {
			last := &out[len(out)-1]
			last.Body = append(last.Body, tok.Body...)
			continue
		}
		if tok.Kind == TokenBody {
			tok.Body = append([]byte{}, tok.Body...)
		}
		out = append(out, tok)
	}
	return out
}

// checkShape asserts the per-message ordering of a token sequence.
func checkShape(t *testing.T, kind scanner.Kind, toks []Token) {
	i := 0
	next := func() TokenKind {
		if i < len(toks) {
			return toks[i].Kind
		}
		return 0
	}
	for i < len(toks) {
		if kind == scanner.Request {
			require.Equal(t, TokenMethod, next(), "token %v of %v", i, toks)
			i++
			require.Equal(t, TokenURL, next(), "token %v of %v", i, toks)
			i++
		} else {
			require.Equal(t, TokenStatus, next(), "token %v of %v", i, toks)
			i++
		}
		for next() == TokenField {
			i++
		}
		for next() == TokenBody {
			i++
		}
		require.Equal(t, TokenEndOfMessage, next(), "token %v of %v", i, toks)
		i++
	}
}

func TestParserRequestIncremental(t *testing.T) {
	p := NewRequestParser()
	toks := feed(t, p, "GET /te", "st HTTP/1.0\r\nCont", "ent-Length: 00", "00\r\n\r\n")
	assert.Equal(t, []Token{
		MethodToken("GET"),
		URLToken("/test"),
		FieldToken("Content-Length", "0000"),
		EndOfMessageToken(),
	}, toks)

	tok, n, err := p.NextToken(nil)
	assert.Nil(t, tok)
	assert.Equal(t, 0, n)
	assert.NoError(t, err)
}

func TestParserResponseStatus(t *testing.T) {
	for _, deferred := range []bool{false, true} {
		p := NewParser(scanner.Response, Config{DeferFirstLine: deferred})
		toks := feed(t, p, "HTTP/1.1 404 Not Found\r\n\r\n")
		assert.Equal(t, []Token{StatusToken(404, "Not Found")}, toks)

		// No Content-Length or chunked framing: the body of a response runs
		// until the stream ends, so EndOfMessage only comes after Finish.
		// DESIGN.md records this choice.
		require.NoError(t, p.Finish())
		toks = feed(t, p, "")
		assert.Equal(t, []Token{EndOfMessageToken()}, toks)
	}
}

func TestParserResponseSplitStatus(t *testing.T) {
	p := NewResponseParser()
	toks := feed(t, p, "HTTP/1.1 30", "1 Moved Perm", "anently\r\nLocat", "ion: /next\r\nContent-Length: 0\r\n\r\n")
	assert.Equal(t, []Token{
		StatusToken(301, "Moved Permanently"),
		FieldToken("Location", "/next"),
		FieldToken("Content-Length", "0"),
		EndOfMessageToken(),
	}, toks)
}

func TestParserIdleProbe(t *testing.T) {
	p := NewRequestParser()
	for i := 0; i < 3; i++ {
		tok, n, err := p.NextToken(nil)
		assert.Nil(t, tok)
		assert.Equal(t, 0, n)
		assert.NoError(t, err)
	}
	tok, n, err := p.NextToken([]byte{})
	assert.Nil(t, tok)
	assert.Equal(t, 0, n)
	assert.NoError(t, err)

	toks := feed(t, p, "GET / HTTP/1.1\r\n\r\n")
	assert.Equal(t, []Token{MethodToken("GET"), URLToken("/"), EndOfMessageToken()}, toks)
}

var requestMessages = []string{
	"GET /test HTTP/1.0\r\nContent-Length: 0000\r\n\r\n",
	"POST /echo HTTP/1.1\r\nHost: localhost:8080\r\nConnection: close \r\nContent-Length:  5\r\nAccept-Encoding: gzip , deflate ,br  \r\n\r\nhello",
	"POST / HTTP/1.1\r\nHost: localhost:1235\r\nTransfer-Encoding: chunked\r\nTrailer: Md5\r\n\r\n4\r\nbody\r\n5\r\n-more\r\n0\r\nMd5: 841a2d689ad86bd1611447453c22c6fc\r\n\r\n",
	"GET /a HTTP/1.1\r\n\r\nPUT /b?x=1 HTTP/1.1\r\nContent-Length: 2\r\n\r\nokDELETE /c HTTP/1.1\r\nX-Empty:\r\n\r\n",
	"CONNECT example.com:443 HTTP/1.1\r\nHost: example.com:443\r\n\r\n",
}

var responseMessages = []string{
	"HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello",
	"HTTP/1.1 204\r\nServer: nbio\r\n\r\n",
	"HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n4\r\nbody\r\n0\r\n\r\nHTTP/1.1 304 Not Modified\r\nETag: \"x\"\r\n\r\n",
	"HTTP/1.1 100 Continue\r\n\r\nHTTP/1.1 201 Created\r\nContent-Length: 3\r\n\r\nnew",
}

func testChunkInvariance(t *testing.T, kind scanner.Kind, messages []string) {
	for _, deferred := range []bool{false, true} {
		conf := Config{DeferFirstLine: deferred}
		for _, m := range messages {
			want := mergeBodies(feed(t, NewParser(kind, conf), m))
			checkShape(t, kind, want)

			for size := 1; size < len(m); size++ {
				var chunks []string
				for i := 0; i < len(m); i += size {
					end := i + size
					if end > len(m) {
						end = len(m)
					}
					chunks = append(chunks, m[i:end])
				}
				got := mergeBodies(feed(t, NewParser(kind, conf), chunks...))
				require.Equal(t, want, got, "chunk size %v of %q", size, m)
			}
			for i := 1; i < len(m); i++ {
				got := mergeBodies(feed(t, NewParser(kind, conf), m[:i], m[i:]))
				require.Equal(t, want, got, "split at %v of %q", i, m)
			}
		}
	}
}

func TestParserRequestChunkInvariance(t *testing.T) {
	testChunkInvariance(t, scanner.Request, requestMessages)
}

func TestParserResponseChunkInvariance(t *testing.T) {
	testChunkInvariance(t, scanner.Response, responseMessages)
}

func TestParserLongTransferEncoding(t *testing.T) {
	encoding := strings.Repeat("gzip, ", 200) + "chunked"
	m := "POST / HTTP/1.1\r\nTransfer-Encoding: " + encoding + "\r\n\r\n3\r\nabc\r\n0\r\n\r\n"
	want := []Token{
		MethodToken("POST"),
		URLToken("/"),
		FieldToken("Transfer-Encoding", encoding),
		BodyToken([]byte("abc")),
		EndOfMessageToken(),
	}
	assert.Equal(t, want, feed(t, NewRequestParser(), m))

	chunks := make([]string, len(m))
	for i := range m {
		chunks[i] = m[i : i+1]
	}
	assert.Equal(t, want, mergeBodies(feed(t, NewRequestParser(), chunks...)))
}

func TestParserPipelineOneChunk(t *testing.T) {
	data := "GET /a HTTP/1.1\r\n\r\nPOST /b HTTP/1.1\r\nContent-Length: 2\r\n\r\nok"
	want := []Token{
		MethodToken("GET"),
		URLToken("/a"),
		EndOfMessageToken(),
		MethodToken("POST"),
		URLToken("/b"),
		FieldToken("Content-Length", "2"),
		BodyToken([]byte("ok")),
		EndOfMessageToken(),
	}
	for _, deferred := range []bool{false, true} {
		p := NewParser(scanner.Request, Config{DeferFirstLine: deferred})
		assert.Equal(t, want, feed(t, p, data))
	}

	p := NewResponseParser()
	toks := feed(t, p, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\nHTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n")
	assert.Equal(t, []Token{
		StatusToken(200, "OK"),
		FieldToken("Content-Length", "0"),
		EndOfMessageToken(),
		StatusToken(404, "Not Found"),
		FieldToken("Content-Length", "0"),
		EndOfMessageToken(),
	}, toks)
}

func TestParserPipelineAfterEndOfMessage(t *testing.T) {
	p := NewRequestParser()
	toks := feed(t, p, "GET /first HTTP/1.1\r\n\r\n")
	assert.Equal(t, EndOfMessageToken(), toks[len(toks)-1])

	toks = feed(t, p, "HEAD /second HTTP/1.1\r\nHost: a\r\n\r\n")
	assert.Equal(t, []Token{
		MethodToken("HEAD"),
		URLToken("/second"),
		FieldToken("Host", "a"),
		EndOfMessageToken(),
	}, toks)
}

func TestParserErrorLatch(t *testing.T) {
	p := NewRequestParser()
	data := []byte("GET / HTTP/1.1\r\nHost: a\r\nBad Header\r\n\r\n")

	tok, n, err := p.NextToken(data)
	require.NoError(t, err)
	assert.Equal(t, 28, n)
	assert.Equal(t, MethodToken("GET"), *tok)

	tok, n, err = p.NextToken(data[n:])
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, URLToken("/"), *tok)

	// Host: a was still being assembled when the error struck
	tok, n, err = p.NextToken([]byte("GET / HTTP/1.1\r\n\r\n"))
	assert.Nil(t, tok)
	assert.Equal(t, 0, n)
	require.Error(t, err)
	assert.True(t, errors.Is(err, scanner.ErrInvalidCharInHeader))
	assert.Equal(t, scanner.ErrInvalidCharInHeader.Error(), err.Error())

	var perr *ParseError
	require.True(t, errors.As(err, &perr))

	for i := 0; i < 3; i++ {
		tok, n, again := p.NextToken([]byte("GET / HTTP/1.1\r\n\r\n"))
		assert.Nil(t, tok)
		assert.Equal(t, 0, n)
		assert.Equal(t, err, again)
	}
	assert.Equal(t, err, p.Err())
	assert.Equal(t, err, p.Finish())
}

func TestParserErrorDropsPartialMessage(t *testing.T) {
	p := NewResponseParser()
	tok, n, err := p.NextToken([]byte("HTTP/1.1 200 OK\r\nContent-Length: 1\r\n\r\nxHTTP/2.0 abc"))
	require.NoError(t, err)
	assert.Equal(t, StatusToken(200, "OK"), *tok)
	assert.Equal(t, 48, n)

	var toks []Token
	for {
		tok, _, err = p.NextToken(nil)
		if tok == nil {
			break
		}
		toks = append(toks, *tok)
	}
	assert.Equal(t, []Token{
		FieldToken("Content-Length", "1"),
		BodyToken([]byte("x")),
		EndOfMessageToken(),
	}, toks)
	assert.True(t, errors.Is(err, scanner.ErrInvalidHTTPStatusCode))
}

func TestParserFinishTruncated(t *testing.T) {
	p := NewRequestParser()
	toks := feed(t, p, "POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc")
	assert.Equal(t, []Token{
		MethodToken("POST"),
		URLToken("/"),
		FieldToken("Content-Length", "10"),
		BodyToken([]byte("abc")),
	}, toks)

	err := p.Finish()
	assert.True(t, errors.Is(err, scanner.ErrUnexpectedEOF))
	tok, n, again := p.NextToken([]byte("defghij"))
	assert.Nil(t, tok)
	assert.Equal(t, 0, n)
	assert.Equal(t, err, again)
}

func TestParserMissingStatusCode(t *testing.T) {
	p := NewResponseParser()
	p.asm.push(StatusToken(0, "OK"))
	p.asm.push(EndOfMessageToken())

	tok, n, err := p.NextToken(nil)
	assert.Nil(t, tok)
	assert.Equal(t, 0, n)
	assert.True(t, errors.Is(err, ErrMissingStatusCode))

	tok, _, again := p.NextToken(nil)
	assert.Nil(t, tok)
	assert.Equal(t, err, again)
}

func TestParserSynthesizesMethod(t *testing.T) {
	p := NewRequestParser()
	tok, n, err := p.NextToken([]byte("OPTIONS "))
	require.NoError(t, err)
	assert.Nil(t, tok)
	assert.Equal(t, 8, n)

	// a head token queued without its Method
	p.asm.push(URLToken("*"))
	toks := feed(t, p, "")
	assert.Equal(t, []Token{MethodToken("OPTIONS"), URLToken("*")}, toks)
}

func TestParserBodyIsCopied(t *testing.T) {
	p := NewRequestParser()
	data := []byte("PUT / HTTP/1.1\r\nContent-Length: 4\r\n\r\ndata")

	var toks []Token
	tok, _, err := p.NextToken(data)
	for ; tok != nil; tok, _, err = p.NextToken(nil) {
		toks = append(toks, *tok)
	}
	require.NoError(t, err)
	require.Len(t, toks, 5)

	for i := range data {
		data[i] = 'X'
	}
	assert.Equal(t, "data", string(toks[3].Body))
}

func TestTokenString(t *testing.T) {
	assert.Equal(t, `Method("GET")`, MethodToken("GET").String())
	assert.Equal(t, `Status(404, "Not Found")`, StatusToken(404, "Not Found").String())
	assert.Equal(t, `Url("/x")`, URLToken("/x").String())
	assert.Equal(t, `Field("Host", "a")`, FieldToken("Host", "a").String())
	assert.Equal(t, `Body("ab")`, BodyToken([]byte("ab")).String())
	assert.Equal(t, "EndOfMessage", EndOfMessageToken().String())
	assert.Equal(t, "TokenKind(9)", TokenKind(9).String())
}
