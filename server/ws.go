package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/loomwork/loom/logstream"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// subscribe upgrades to a websocket and streams the full log snapshot
// as a JSON array on every change — the same selector the log stream
// itself is built around (spec §4.1), just pushed over the wire
// instead of delivered to an in-process Listener.
func (h *handlers) subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	selector := func(entries []logstream.Entry) any { return entries }
	writeErr := make(chan error, 1)

	unsub := h.team.Subscribe(selector, func(value any) {
		entries, _ := value.([]logstream.Entry)
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(entries); err != nil {
			select {
			case writeErr <- err:
			default:
			}
		}
	})
	defer unsub()

	// Block until the client disconnects (any read error, including a
	// close frame) or a write to it starts failing.
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				readErr <- err
				return
			}
		}
	}()

	select {
	case <-readErr:
	case <-writeErr:
	}
}
