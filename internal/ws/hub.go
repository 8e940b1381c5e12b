package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisPubSubChannel = "bug-reports:live"

// 이벤트 타입
const (
	EventBugReportCreated = "bug_report.created"
)

// Event is a live feed message sent to every connected admin
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub manages WebSocket clients and broadcasts events to all of them.
// With Redis, events are relayed to the hubs of other instances.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu          sync.RWMutex
	redisClient *redis.Client
	instanceID  string
	log         zerolog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

type redisMessage struct {
	Origin string          `json:"origin"`
	Event  json.RawMessage `json:"event"`
}

// NewHub creates a new Hub; redisClient may be nil
func NewHub(redisClient *redis.Client, log zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan []byte, 256),
		redisClient: redisClient,
		instanceID:  uuid.NewString(),
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		close(client.send)
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	if h.redisClient != nil {
		go h.subscribeRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug().Str("member_id", client.memberID).Msg("ws client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case data := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// 느린 클라이언트는 끊는다
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast sends event to local clients and publishes it for other instances
func (h *Hub) Broadcast(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("type", event.Type).Msg("ws event marshal failed")
		return
	}
	h.local(data)

	if h.redisClient != nil {
		msg, err := json.Marshal(&redisMessage{Origin: h.instanceID, Event: data})
		if err == nil {
			if err := h.redisClient.Publish(h.ctx, redisPubSubChannel, msg).Err(); err != nil {
				h.log.Warn().Err(err).Msg("ws redis publish failed")
			}
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) local(data []byte) {
	select {
	case h.broadcast <- data:
	case <-h.ctx.Done():
	}
}

// subscribeRedis relays events published by other instances
func (h *Hub) subscribeRedis() {
	pubsub := h.redisClient.Subscribe(h.ctx, redisPubSubChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var rm redisMessage
			if err := json.Unmarshal([]byte(msg.Payload), &rm); err != nil {
				h.log.Warn().Err(err).Msg("ws redis message malformed")
				continue
			}
			if rm.Origin == h.instanceID {
				continue
			}
			h.local(rm.Event)
		case <-h.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.cancel()
}
