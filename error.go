// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptok

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingStatusCode is latched when a status line never yields a status code.
	ErrMissingStatusCode = errors.New("missing HTTP status code")
)

// ParseError is the only error a Parser returns: the input was malformed.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the scanner's diagnostic.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// InvariantError is the value a Parser panics with when the scanner delivers
// an event its own ordering guarantee rules out.
type InvariantError struct {
	Event string
	State string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("httptok: unexpected %v event in state %q", e.Event, e.State)
}
