// Package relay wires the registries, translator, and cache into the
// connection handlers and upgrade dispatcher described in design §4.E/§4.F.
package relay

import (
	"sync"

	"github.com/dev-console/dev-console/internal/util"
	"github.com/gorilla/websocket"
)

// ChanWriter is the reader/writer-goroutine-pair writer (design §3
// Ownership, §5 Backpressure): Send enqueues onto a 256-frame buffered
// channel that a single writer goroutine drains into the underlying
// websocket connection, so a slow or misbehaving peer never blocks whoever
// is fanning messages out to it.
type ChanWriter struct {
	conn *websocket.Conn
	out  chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

// NewChanWriter starts the writer goroutine for conn and returns the handle
// other connections use to enqueue frames to it.
func NewChanWriter(conn *websocket.Conn) *ChanWriter {
	w := &ChanWriter{
		conn: conn,
		out:  make(chan []byte, 256),
		done: make(chan struct{}),
	}
	util.SafeGo(w.pump)
	return w
}

// Send enqueues frame for delivery. It never blocks: once Close has been
// called the frame is dropped, and when the queue is full the oldest queued
// frame is dropped to make room for it.
func (w *ChanWriter) Send(frame []byte) {
	select {
	case <-w.done:
		return
	default:
	}
	select {
	case w.out <- frame:
	default:
		// Backpressure ceiling hit: drop the oldest frame rather than block
		// the fan-out path.
		select {
		case <-w.out:
		default:
		}
		select {
		case w.out <- frame:
		default:
		}
	}
}

// Close stops the writer goroutine and closes the underlying connection.
func (w *ChanWriter) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		_ = w.conn.Close()
	})
}

func (w *ChanWriter) pump() {
	for {
		select {
		case <-w.done:
			return
		case frame := <-w.out:
			if err := w.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				w.Close()
				return
			}
		}
	}
}
