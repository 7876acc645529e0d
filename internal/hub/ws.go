// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package hub

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// viewers are served from the same host or a local dev server
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeWait = 5 * time.Second

// Request is a message from a viewer. Action is "send" with a raw protocol
// line, "stop" or "reset".
type Request struct {
	Action string `json:"action"`
	Line   string `json:"line,omitempty"`
}

// Reply answers a viewer request that failed or needs acknowledging.
type Reply struct {
	Type    string `json:"type"` // "ack" or "error"
	Message string `json:"message,omitempty"`
}

// RequestHandler acts on a viewer request on behalf of client id.
type RequestHandler func(id string, req Request) error

// ServeWS upgrades the connection, streams every broadcast to the viewer
// and passes its requests to handle until either side hangs up.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, handle RequestHandler) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	c := h.Subscribe()
	replies := make(chan Reply, 8)
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		for {
			select {
			case msg, ok := <-c.Send:
				if !ok {
					conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
					return
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case rep := <-replies:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(rep); err != nil {
					return
				}
			}
		}
	}()

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Str("client", c.ID).Msg("websocket read failed")
			}
			break
		}
		rep := Reply{Type: "ack", Message: req.Action}
		if err := handle(c.ID, req); err != nil {
			rep = Reply{Type: "error", Message: err.Error()}
		}
		select {
		case replies <- rep:
		case <-stopped:
		}
	}

	h.Unsubscribe(c)
	conn.Close()
	<-stopped
}
