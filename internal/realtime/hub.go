package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"soil-bknd/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Event string

const (
	EventSamplesChanged Event = "samples.changed"
	EventMapUpdated     Event = "map.updated"
)

// ChannelSamples carries every sample mutation.
const ChannelSamples = "samples"

const defaultHeartbeat = 15 * time.Second

type Message struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
	Data    any    `json:"data,omitempty"`
}

type Client struct {
	ID       uuid.UUID
	Channels map[string]bool
	Outbound chan Message

	done      chan struct{}
	closeOnce sync.Once
}

// Done is closed when the hub closes the client.
func (c *Client) Done() <-chan struct{} { return c.done }

type Hub struct {
	mu            sync.RWMutex
	log           *zap.Logger
	subscriptions map[string]map[*Client]bool
	heartbeat     time.Duration
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:           log.Named("sse_hub"),
		subscriptions: make(map[string]map[*Client]bool),
		heartbeat:     defaultHeartbeat,
	}
}

// SetHeartbeat changes the comment ping interval for new streams.
func (hub *Hub) SetHeartbeat(d time.Duration) {
	if d > 0 {
		hub.heartbeat = d
	}
}

func (hub *Hub) NewClient() *Client {
	return &Client{
		ID:       uuid.New(),
		Channels: make(map[string]bool),
		Outbound: make(chan Message, 16),
		done:     make(chan struct{}),
	}
}

func (hub *Hub) AddChannel(client *Client, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	client.Channels[channel] = true

	clients, ok := hub.subscriptions[channel]
	if !ok {
		clients = make(map[*Client]bool)
		hub.subscriptions[channel] = clients
	}
	clients[client] = true

	hub.log.Debug("sse client subscribed", zap.String("client_id", client.ID.String()), zap.String("channel", channel))
}

func (hub *Hub) RemoveClient(client *Client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for ch := range client.Channels {
		if subs, ok := hub.subscriptions[ch]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(hub.subscriptions, ch)
			}
		}
	}
	client.Channels = make(map[string]bool)
}

// Subscribers reports how many clients listen on channel.
func (hub *Hub) Subscribers(channel string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.subscriptions[channel])
}

// Broadcast delivers msg to every subscriber of its channel. A subscriber
// whose buffer is full misses the message.
func (hub *Hub) Broadcast(msg Message) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if msg.Channel == "" {
		return
	}
	for c := range hub.subscriptions[msg.Channel] {
		select {
		case c.Outbound <- msg:
		default:
			hub.log.Warn("dropping sse message, outbound buffer full", zap.String("client_id", c.ID.String()))
		}
	}
}

// ServeHTTP streams the client's messages until the request ends or the
// client is closed.
func (hub *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *Client) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(hub.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg, ok := <-client.Outbound:
			if !ok {
				return
			}
			if err := WriteEvent(w, msg); err != nil {
				hub.log.Warn("failed to write sse message", zap.Error(err))
				continue
			}
			flusher.Flush()
		}
	}
}

// WriteEvent writes one SSE frame named after the message event.
func WriteEvent(w http.ResponseWriter, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, body)
	return err
}

// CloseAll closes every subscribed client, ending their streams.
func (hub *Hub) CloseAll() {
	hub.mu.RLock()
	seen := make(map[*Client]bool)
	for _, subs := range hub.subscriptions {
		for c := range subs {
			seen[c] = true
		}
	}
	hub.mu.RUnlock()

	for c := range seen {
		hub.CloseClient(c)
	}
}

// CloseClient unsubscribes the client and closes its channels. Safe to call
// more than once.
func (hub *Hub) CloseClient(client *Client) {
	client.closeOnce.Do(func() {
		close(client.done)
		hub.RemoveClient(client)
		close(client.Outbound)
	})
}
