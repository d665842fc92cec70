// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptok

import (
	"github.com/lesismal/httptok/scanner"
)

// DefaultReadBufferSize .
const DefaultReadBufferSize = 4096

// Config .
type Config struct {
	// MaxHeaderBytes limits the size of a start line plus header block.
	// Zero means scanner.DefaultMaxHeaderBytes.
	MaxHeaderBytes int

	// DeferFirstLine selects a scanner that reveals the method and status code
	// only once the header block is complete.
	DeferFirstLine bool

	// ReadBufferSize is the read size of a Decoder. Zero means DefaultReadBufferSize.
	ReadBufferSize int
}

func (c Config) scannerConfig() scanner.Config {
	return scanner.Config{
		MaxHeaderBytes: c.MaxHeaderBytes,
		DeferFirstLine: c.DeferFirstLine,
	}
}
