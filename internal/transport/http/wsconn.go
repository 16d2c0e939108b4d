package http

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/coder/websocket"
)

// wsConn carries chat lines over WebSocket text messages. A message holding
// several newline-separated lines yields them one by one, as on TCP.
type wsConn struct {
	conn    *websocket.Conn
	remote  string
	pending []string
}

func newWSConn(conn *websocket.Conn, remote string) *wsConn {
	return &wsConn{conn: conn, remote: remote}
}

func (w *wsConn) ReadLine(ctx context.Context) (string, error) {
	if len(w.pending) > 0 {
		line := w.pending[0]
		w.pending = w.pending[1:]
		return line, nil
	}

	_, data, err := w.conn.Read(ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return "", io.EOF
		}
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", err
	}
	lines := splitLines(string(data))
	w.pending = lines[1:]
	return lines[0], nil
}

// splitLines breaks text on "\n", dropping one trailing terminator and any
// "\r" before each break. It always returns at least one line.
func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func (w *wsConn) WriteLine(ctx context.Context, line string) error {
	return w.conn.Write(ctx, websocket.MessageText, []byte(line))
}

func (w *wsConn) Close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "closing")
}

func (w *wsConn) RemoteAddr() string {
	return w.remote
}
