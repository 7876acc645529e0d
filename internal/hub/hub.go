// Package hub fans decoded vehicle commands out to connected viewers.
package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/pubmarine/internal/protocol"
)

// Client is one subscribed viewer.
type Client struct {
	ID   string
	Send chan []byte
}

// Hub broadcasts messages to every subscribed client. A client that cannot
// keep up misses messages instead of stalling the others.
type Hub struct {
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	clientBuf  int
	log        zerolog.Logger
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

type Option func(*Hub)

func WithBroadcastBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.broadcast = make(chan []byte, size)
		}
	}
}

func WithClientBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.clientBuf = size
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(h *Hub) { h.log = log }
}

func New(opts ...Option) *Hub {
	h := &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]struct{}),
		clientBuf:  64,
		log:        zerolog.Nop(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.Send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			h.log.Info().Str("client", c.ID).Msg("viewer connected")
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.Send)
			}
			h.mu.Unlock()
			h.log.Info().Str("client", c.ID).Msg("viewer disconnected")
		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.Send <- msg:
				default:
					h.log.Debug().Str("client", c.ID).Msg("viewer too slow, message dropped")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Subscribe registers a new client with a fresh id.
func (h *Hub) Subscribe() *Client {
	c := &Client{ID: uuid.NewString(), Send: make(chan []byte, h.clientBuf)}
	select {
	case h.register <- c:
	case <-h.done:
		close(c.Send)
	}
	return c
}

func (h *Hub) Unsubscribe(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Clients reports how many viewers are subscribed.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues a raw message for every client.
func (h *Hub) Publish(msg []byte) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// PublishCommand broadcasts cmd wrapped in its JSON envelope. It has the
// signature of a bridge command handler.
func (h *Hub) PublishCommand(cmd protocol.Command) {
	msg, err := protocol.MarshalEnvelope(cmd)
	if err != nil {
		h.log.Warn().Err(err).Str("name", cmd.Name()).Msg("envelope marshal failed")
		return
	}
	h.Publish(msg)
}

// PublishJSON broadcasts v as {"type": typ, "data": v}.
func (h *Hub) PublishJSON(typ string, v any) {
	msg, err := json.Marshal(struct {
		Type string `json:"type"`
		Data any    `json:"data"`
	}{typ, v})
	if err != nil {
		h.log.Warn().Err(err).Str("type", typ).Msg("marshal failed")
		return
	}
	h.Publish(msg)
}
