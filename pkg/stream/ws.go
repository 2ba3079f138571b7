package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
)

// WSChannel adapts a single coder/websocket connection to the Channel
// interface: one connection, exclusively owned by one session, every write
// bounded by writeTimeout.
type WSChannel struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

// NewWSChannel wraps conn. writeTimeout bounds every Send call.
func NewWSChannel(conn *websocket.Conn, writeTimeout time.Duration) *WSChannel {
	return &WSChannel{conn: conn, writeTimeout: writeTimeout}
}

// Send marshals msg to JSON and writes it as a single text frame.
func (c *WSChannel) Send(ctx context.Context, msg map[string]any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	return c.conn.Write(writeCtx, websocket.MessageText, data)
}

// Close closes the underlying connection with a normal-closure status.
func (c *WSChannel) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
