// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package scanner

var (
	validMethods = map[string]bool{
		"OPTIONS": true,
		"GET":     true,
		"HEAD":    true,
		"POST":    true,
		"PUT":     true,
		"DELETE":  true,
		"TRACE":   true,
		"CONNECT": true,
		"PATCH":   true, // RFC 5789

		// WebDAV, RFC 4918
		"PROPFIND":  true,
		"PROPPATCH": true,
		"MKCOL":     true,
		"COPY":      true,
		"MOVE":      true,
		"LOCK":      true,
		"UNLOCK":    true,

		// http 2.0 preface
		"PRI": true,
	}

	// RFC 7230 3.2.6 tchar.
	tokenChars = "!#$%&'*+-.^_`|~" +
		"0123456789" +
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
		"abcdefghijklmnopqrstuvwxyz"

	tokenCharMap = [256]bool{}
	numCharMap   = [256]bool{}
	hexCharMap   = [256]bool{}
	upperCharMap = [256]bool{}
	vcharCharMap = [256]bool{}

	maxMethodLen = 0
)

func init() {
	for i := 0; i < len(tokenChars); i++ {
		tokenCharMap[tokenChars[i]] = true
	}

	for i := byte(0); i < 10; i++ {
		numCharMap['0'+i] = true
		hexCharMap['0'+i] = true
	}
	for i := byte(0); i < 6; i++ {
		hexCharMap['A'+i] = true
		hexCharMap['a'+i] = true
	}
	for i := byte(0); i < 26; i++ {
		upperCharMap['A'+i] = true
	}

	// VCHAR plus obs-text. SP and HTAB are handled by the callers.
	for i := 0x21; i < 0x100; i++ {
		if i != 0x7f {
			vcharCharMap[i] = true
		}
	}

	for m := range validMethods {
		if len(m) > maxMethodLen {
			maxMethodLen = len(m)
		}
	}
}

func isNum(c byte) bool {
	return numCharMap[c]
}

func isHex(c byte) bool {
	return hexCharMap[c]
}

func isToken(c byte) bool {
	return tokenCharMap[c]
}

func isMethodChar(c byte) bool {
	return upperCharMap[c]
}

func isVChar(c byte) bool {
	return vcharCharMap[c]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

func isValidMethod(m string) bool {
	return validMethods[m]
}

func unhex(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10
	case 'A' <= c && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

func toLower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
