package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"krx-gap-lab/internal/domain"
)

// Feed pushes newly detected signals to websocket subscribers. Slow clients
// are dropped rather than allowed to stall a publish.
type Feed struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []*domain.GapSignal
	closed  bool
}

const feedBuffer = 16

func NewFeed(log zerolog.Logger) *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log:     log.With().Str("component", "live_feed").Logger(),
		clients: make(map[*websocket.Conn]chan []*domain.GapSignal),
	}
}

// Subscribe upgrades the connection and streams signal batches until the
// client disconnects or the feed closes.
func (f *Feed) Subscribe(c echo.Context) error {
	conn, err := f.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	ch := make(chan []*domain.GapSignal, feedBuffer)
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		conn.Close()
		return nil
	}
	f.clients[conn] = ch
	f.mu.Unlock()
	f.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("feed subscriber connected")

	// Reader goroutine detects disconnects; messages from clients are
	// ignored.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				f.drop(conn)
				return
			}
		}
	}()

	for batch := range ch {
		if err := conn.WriteJSON(batch); err != nil {
			f.drop(conn)
			return nil
		}
	}
	conn.Close()
	return nil
}

// Publish fans a signal batch out to every subscriber.
func (f *Feed) Publish(signals []*domain.GapSignal) {
	if len(signals) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for conn, ch := range f.clients {
		select {
		case ch <- signals:
		default:
			f.log.Warn().Str("remote", conn.RemoteAddr().String()).Msg("dropping slow feed subscriber")
			delete(f.clients, conn)
			close(ch)
			conn.Close()
		}
	}
}

// Close disconnects all subscribers.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for conn, ch := range f.clients {
		close(ch)
		conn.Close()
		delete(f.clients, conn)
	}
}

func (f *Feed) drop(conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.clients[conn]; ok {
		delete(f.clients, conn)
		close(ch)
	}
	conn.Close()
}
