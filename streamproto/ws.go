package streamproto

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// wsStream reads a WebSocket connection as a flat byte stream: each
// incoming binary message's payload is appended to an internal buffer and
// drained by Read, mirroring how the teacher's handleWebSocketClient reads
// whole messages off the wire and hands the payload onward (server's
// per-client read loop) rather than framing at the byte level itself.
type wsStream struct {
	conn    *websocket.Conn
	pending bytes.Buffer
	closed  bool
}

// openWebSocket dials path (a ws:// or wss:// URL) and returns a
// non-seekable Stream over its binary message stream. param is unused; dial
// options beyond the URL are out of scope for this built-in protocol.
func openWebSocket(path string, _ map[string]string) (Stream, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(context.Background(), path, nil)
	if err != nil {
		return nil, fmt.Errorf("streamproto: ws dial %s: %w", path, err)
	}
	return &wsStream{conn: conn}, nil
}

func (s *wsStream) Read(p []byte) (int, error) {
	for s.pending.Len() == 0 {
		if s.closed {
			return 0, websocket.ErrCloseSent
		}
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		s.pending.Write(data)
	}
	return s.pending.Read(p)
}

func (s *wsStream) Close() error {
	s.closed = true
	return s.conn.Close()
}

// Seek is unsupported: a live WebSocket connection has no addressable
// history to rewind into.
func (s *wsStream) Seek(int64, int) (int64, error) { return 0, ErrUnsupportedSeek }

// Length is unknown for a live connection.
func (s *wsStream) Length() int64 { return -1 }
