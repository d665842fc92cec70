// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package scanner

const (
	// state: RequestLine
	stateMethodBefore int8 = iota
	stateMethod
	statePathBefore
	statePath
	stateProto
	stateProtoCR
	stateProtoLF

	// state: StatusLine
	stateClientProtoBefore
	stateClientProto
	stateStatusCodeBefore
	stateStatusCode
	stateStatusBefore
	stateStatus
	stateStatusLF

	// state: Header
	stateHeaderKeyBefore
	stateHeaderKey
	stateHeaderValueBefore
	stateHeaderValue
	stateHeaderValueLF
	stateHeaderOverLF

	// state: Body ContentLength
	stateBodyContentLength

	// state: Body until close
	stateBodyIdentity

	// state: Body Chunk
	stateBodyChunkSizeBefore
	stateBodyChunkSize
	stateBodyChunkExt
	stateBodyChunkSizeLF
	stateBodyChunkData
	stateBodyChunkDataCR
	stateBodyChunkDataLF

	// state: Body Trailer, skipped
	stateBodyTrailerBefore
	stateBodyTrailerLine
	stateBodyTrailerLF

	// state: Body CRLF
	stateTailLF
)

// isHeadState reports whether the state belongs to the start line or the header block.
func isHeadState(state int8) bool {
	return state <= stateHeaderOverLF
}
