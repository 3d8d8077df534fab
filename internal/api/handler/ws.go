package handler

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/neuralizard/internal/service"
)

const (
	wsWriteWait    = 10 * time.Second
	wsMaxFrameSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsTransport adapts a WebSocket connection to service.Transport.
type wsTransport struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	conn.SetReadLimit(wsMaxFrameSize)
	return &wsTransport{conn: conn}
}

func (t *wsTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		if isClosed(err) {
			return nil, io.EOF
		}
		return nil, err
	}
	return data, nil
}

func (t *wsTransport) WriteFrame(v any) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return t.conn.WriteJSON(v)
}

func (t *wsTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = t.conn.Close()
	})
	return err
}

func isClosed(err error) bool {
	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}

// WebSocket upgrades the request and runs one chat session on it.
func WebSocket(chat *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		t := newWSTransport(conn)
		defer t.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go func() {
			<-ctx.Done()
			t.Close()
		}()

		if err := chat.Serve(ctx, t); err != nil {
			log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("Chat session ended with error")
		}
	}
}
