// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptok

import (
	"fmt"
)

// TokenKind .
type TokenKind int8

const (
	// TokenMethod carries the request method in Value.
	TokenMethod TokenKind = iota + 1
	// TokenStatus carries the status code in Code and the reason phrase in Value.
	TokenStatus
	// TokenURL carries the request target in Value.
	TokenURL
	// TokenField carries one header, Name and Value.
	TokenField
	// TokenBody carries one fragment of the message body.
	TokenBody
	// TokenEndOfMessage terminates a message.
	TokenEndOfMessage
)

var tokenKindNames = [...]string{
	TokenMethod:       "Method",
	TokenStatus:       "Status",
	TokenURL:          "Url",
	TokenField:        "Field",
	TokenBody:         "Body",
	TokenEndOfMessage: "EndOfMessage",
}

func (k TokenKind) String() string {
	if k > 0 && int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", k)
}

// Token is one unit of tokenizer output. Which fields are set depends on Kind.
type Token struct {
	Kind  TokenKind
	Code  int
	Name  string
	Value string
	Body  []byte
}

// MethodToken .
func MethodToken(method string) Token {
	return Token{Kind: TokenMethod, Value: method}
}

// StatusToken .
func StatusToken(code int, reason string) Token {
	return Token{Kind: TokenStatus, Code: code, Value: reason}
}

// URLToken .
func URLToken(url string) Token {
	return Token{Kind: TokenURL, Value: url}
}

// FieldToken .
func FieldToken(name, value string) Token {
	return Token{Kind: TokenField, Name: name, Value: value}
}

// BodyToken .
func BodyToken(body []byte) Token {
	return Token{Kind: TokenBody, Body: body}
}

// EndOfMessageToken .
func EndOfMessageToken() Token {
	return Token{Kind: TokenEndOfMessage}
}

func (t Token) String() string {
	switch t.Kind {
	case TokenMethod, TokenURL:
		return fmt.Sprintf("%v(%q)", t.Kind, t.Value)
	case TokenStatus:
		return fmt.Sprintf("%v(%d, %q)", t.Kind, t.Code, t.Value)
	case TokenField:
		return fmt.Sprintf("%v(%q, %q)", t.Kind, t.Name, t.Value)
	case TokenBody:
		return fmt.Sprintf("%v(%q)", t.Kind, t.Body)
	}
	return t.Kind.String()
}
