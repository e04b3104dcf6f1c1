package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sketchwars/internal/wire"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
)

// Feed is the realtime channel binding: one websocket connection, one
// reader goroutine and one writer goroutine. The reader dispatches events
// to the session strictly in arrival order, which is what keeps turn
// transitions coherent on the client.
type Feed struct {
	conn *websocket.Conn
	log  *slog.Logger

	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

// Dial connects the feed and wires it to the session. The session's
// events start flowing immediately; call Close to tear the channel down.
func Dial(ctx context.Context, url string, s *Session, log *slog.Logger) (*Feed, error) {
	if log == nil {
		log = slog.Default()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial realtime channel: %w", err)
	}

	f := &Feed{
		conn: conn,
		log:  log,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
	}
	s.Bind(f)

	go f.writePump()
	go f.readPump(s)
	return f, nil
}

// Emit marshals and queues an outbound event. A full queue means the
// writer has stalled; the event is dropped and the error surfaced.
func (f *Feed) Emit(eventType string, payload any) error {
	raw, err := wire.Encode(eventType, payload)
	if err != nil {
		return err
	}

	select {
	case f.send <- raw:
		return nil
	case <-f.done:
		return fmt.Errorf("emit %s: channel closed", eventType)
	default:
		return fmt.Errorf("emit %s: send queue full", eventType)
	}
}

func (f *Feed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.done)
		err = f.conn.Close()
	})
	return err
}

// Done is closed when the connection goes away.
func (f *Feed) Done() <-chan struct{} { return f.done }

func (f *Feed) readPump(s *Session) {
	defer f.Close()

	f.conn.SetReadDeadline(time.Now().Add(pongWait))
	f.conn.SetPongHandler(func(string) error {
		f.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := f.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				f.log.Warn("realtime channel read failed", "error", err)
			}
			return
		}

		env, err := DecodeEnvelope(raw)
		if err != nil {
			f.log.Warn("dropping unparseable frame", "error", err)
			continue
		}
		s.HandleEvent(env)
	}
}

func (f *Feed) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		f.Close()
	}()

	for {
		select {
		case raw := <-f.send:
			f.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := f.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				f.log.Warn("realtime channel write failed", "error", err)
				return
			}
		case <-ticker.C:
			f.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-f.done:
			return
		}
	}
}
