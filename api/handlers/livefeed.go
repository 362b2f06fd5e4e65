package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gramasevaka/gs-portal-api/api"
)

// Feed event names
const (
	feedReported      = "emergency_reported"
	feedStatusChanged = "emergency_status_changed"
)

const (
	feedSendBuffer = 16
	feedWriteWait  = 10 * time.Second
	feedPingPeriod = 30 * time.Second
)

type feedEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type feedClient struct {
	conn    *websocket.Conn
	officer string
	send    chan feedEvent
}

// LiveFeed pushes emergency reports and their status changes to connected
// officers. Each connection has its own writer goroutine; a client that
// cannot keep up is dropped.
type LiveFeed struct {
	upgrader websocket.Upgrader

	mutex   sync.Mutex
	clients map[*feedClient]struct{}
}

// NewLiveFeed creates a feed that accepts websocket upgrades from allowedOrigin.
func NewLiveFeed(allowedOrigin string) *LiveFeed {
	return &LiveFeed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || api.OriginAllowed(origin, allowedOrigin)
			},
		},
		clients: make(map[*feedClient]struct{}),
	}
}

// Clients returns the number of connected officers.
func (f *LiveFeed) Clients() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.clients)
}

// Publish queues an event for every connected officer.
func (f *LiveFeed) Publish(event string, data interface{}) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	for c := range f.clients {
		select {
		case c.send <- feedEvent{Event: event, Data: data}:
		default:
			zap.S().Warnw("dropping slow live feed client", "officer", c.officer)
			delete(f.clients, c)
			close(c.send)
		}
	}
}

// ServeHTTP upgrades an authenticated officer's request to a websocket.
func (f *LiveFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Infow("websocket upgrade failed", "error", err)
		return
	}

	c := &feedClient{conn: conn, officer: caller.ID.Hex(), send: make(chan feedEvent, feedSendBuffer)}
	f.mutex.Lock()
	f.clients[c] = struct{}{}
	f.mutex.Unlock()
	zap.S().Infow("officer connected to live feed", "officer", c.officer)

	go f.writeLoop(c)
	f.readLoop(c)
}

// readLoop discards client messages until the connection closes.
func (f *LiveFeed) readLoop(c *feedClient) {
	defer func() {
		f.remove(c)
		c.conn.Close()
		zap.S().Infow("officer disconnected from live feed", "officer", c.officer)
	}()
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (f *LiveFeed) writeLoop(c *feedClient) {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				zap.S().Infow("live feed write failed", "officer", c.officer, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (f *LiveFeed) remove(c *feedClient) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		close(c.send)
	}
}

// TokenFromQuery lets browser websocket clients, which cannot set headers,
// pass their bearer token as the access_token query parameter.
func TokenFromQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := r.URL.Query().Get("access_token"); token != "" && r.Header.Get("Authorization") == "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		next.ServeHTTP(w, r)
	})
}
