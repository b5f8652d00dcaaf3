package realtime

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

type wsDialer struct {
	dialer *websocket.Dialer
}

// NewDialer returns the production websocket dialer.
func NewDialer() Dialer {
	return &wsDialer{dialer: &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}}
}

func (d *wsDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	conn, _, err := d.dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) Close(normal bool) error {
	if normal {
		deadline := time.Now().Add(time.Second)
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client shutdown")
		_ = c.conn.WriteControl(websocket.CloseMessage, message, deadline)
	}
	return c.conn.Close()
}
