package ws

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/notify"
	"github.com/parley-chat/parley/internal/store"
)

type delivery struct {
	userIDs []uint
	ev      notify.Event
}

// Hub tracks live connections per user and is the local implementation of
// the notify port. When an event lands on at least one recipient connection
// of a fresh message, the hub flips that message to delivered (best effort).
// With a redis client attached it also bridges the per-user pub/sub
// channels published by other instances.
type Hub struct {
	// Registered clients, keyed by user id.
	clients map[uint]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	deliveries chan delivery

	store store.Store
	rdb   *redis.Client
}

func NewHub(store store.Store, rdb *redis.Client) *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliveries: make(chan delivery, 256),
		store:      store,
		rdb:        rdb,
	}
}

// Notify implements notify.Notifier. It never blocks; when the hub is
// saturated the event is dropped, which the port's contract allows.
func (h *Hub) Notify(userIDs []uint, ev notify.Event) {
	select {
	case h.deliveries <- delivery{userIDs: userIDs, ev: ev}:
	default:
		log.Printf("ws: dropping event %s, hub busy", ev.ID)
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribe()
	}
	for {
		select {
		case client := <-h.register:
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]bool)
			}
			h.clients[client.userID][client] = true
		case client := <-h.unregister:
			if set, ok := h.clients[client.userID]; ok && set[client] {
				delete(set, client)
				close(client.send)
				if len(set) == 0 {
					delete(h.clients, client.userID)
				}
			}
		case d := <-h.deliveries:
			h.fanOut(d)
		}
	}
}

func (h *Hub) fanOut(d delivery) {
	payload, err := json.Marshal(d.ev)
	if err != nil {
		log.Printf("ws: marshal event %s: %v", d.ev.ID, err)
		return
	}

	delivered := 0
	for _, userID := range d.userIDs {
		for client := range h.clients[userID] {
			select {
			case client.send <- payload:
				delivered++
			default:
				close(client.send)
				delete(h.clients[userID], client)
			}
		}
	}

	if delivered > 0 && d.ev.Type == notify.EventMessageNew && d.ev.MessageID != 0 {
		if err := h.store.MarkDelivered(d.ev.MessageID); err != nil {
			log.Printf("ws: mark message %d %s: %v", d.ev.MessageID, models.MessageDelivered, err)
		}
	}
}

// subscribe forwards events published by other instances to local clients.
func (h *Hub) subscribe() {
	pubsub := h.rdb.PSubscribe(context.Background(), "user:*")
	for msg := range pubsub.Channel() {
		idStr := strings.TrimPrefix(msg.Channel, "user:")
		userID, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			continue
		}
		var ev notify.Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("ws: bad event on %s: %v", msg.Channel, err)
			continue
		}
		h.Notify([]uint{uint(userID)}, ev)
	}
}
