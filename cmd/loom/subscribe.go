package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/loomwork/loom/logstream"
)

// SubscribeCmd streams the live workflow log from a running server,
// printing each snapshot's newly appended entries as they arrive.
type SubscribeCmd struct {
	ServerFlag
}

func (c *SubscribeCmd) Run() error {
	wsURL := "ws" + strings.TrimPrefix(strings.TrimRight(c.Server, "/"), "http") + "/v1/team/subscribe"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	seen := 0
	for {
		var entries []logstream.Entry
		if err := conn.ReadJSON(&entries); err != nil {
			return nil
		}
		for _, e := range entries[seen:] {
			line, _ := json.Marshal(e)
			fmt.Println(string(line))
		}
		seen = len(entries)
	}
}
