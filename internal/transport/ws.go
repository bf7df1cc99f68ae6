package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 5 * time.Second

	// MaxInboundLen caps a single inbound message. Oversized frames are
	// dropped before they reach the command handler.
	MaxInboundLen = 512

	inboundQueueLen = 32
)

// WSChannel is the persistent low-latency secondary channel. A reader
// goroutine pumps inbound operator messages into a bounded queue; when the
// queue is full the newest message is dropped and counted, so the reader
// never blocks and memory stays bounded.
type WSChannel struct {
	conn    *websocket.Conn
	inbound chan []byte

	dropped   atomic.Uint32
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// DialSecondary establishes the websocket connection to the ground station,
// e.g. url "ws://10.0.0.5:3003/ws", and starts the reader.
func DialSecondary(ctx context.Context, url string) (*WSChannel, error) {
	dialer := websocket.Dialer{HandshakeTimeout: requestTimeout}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	w := WSChannel{
		conn:    conn,
		inbound: make(chan []byte, inboundQueueLen),
	}
	conn.SetReadLimit(MaxInboundLen)

	go w.readLoop()

	return &w, nil
}

func (w *WSChannel) Send(payload []byte) error {
	if w.closed.Load() {
		return ErrClosed
	}

	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := w.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}

func (w *WSChannel) Name() string { return "websocket" }

func (w *WSChannel) Inbound() <-chan []byte { return w.inbound }

// Dropped returns how many inbound messages were discarded because the
// queue was full.
func (w *WSChannel) Dropped() uint32 { return w.dropped.Load() }

func (w *WSChannel) Close() error {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		w.closeErr = w.conn.Close()
	})
	return w.closeErr
}

func (w *WSChannel) readLoop() {
	defer close(w.inbound)

	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed.Store(true)
			return
		}

		select {
		case w.inbound <- data:
		default:
			if w.dropped.Load() < ^uint32(0) {
				w.dropped.Add(1)
			}
		}
	}
}
