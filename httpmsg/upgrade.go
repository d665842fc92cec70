// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpmsg

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// IsUpgrade reports whether req asks to switch the connection to WebSocket.
// Once such a request is complete, the bytes that follow on the connection are
// no longer HTTP/1.x and should not be fed to the same Parser.
func IsUpgrade(req *http.Request) bool {
	return req.Method == http.MethodGet && websocket.IsWebSocketUpgrade(req)
}
