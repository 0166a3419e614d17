// Package chatws carries the real-time side of the chat subsystem: a hub
// addressing clients by user id, per-connection read/write pumps, and the
// closed set of events exchanged over the socket.
package chatws

import (
	"log"

	"github.com/Abhirup-261004/Innova-InjuryShield/internal/presence"
)

type Hub struct {
	clients    map[int64]map[*Client]struct{}
	registry   *presence.Registry
	register   chan *Client
	unregister chan *Client
	direct     chan directPush
}

// directPush targets the per-user address groups of specific users.
type directPush struct {
	userIDs []int64
	payload []byte
}

func NewHub(registry *presence.Registry) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		registry:   registry,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan directPush, 64),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case push := <-h.direct:
			for _, userID := range push.userIDs {
				h.sendToUser(userID, push.payload)
			}
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// SendToUser pushes an encoded event to every open connection of the user.
func (h *Hub) SendToUser(userID int64, payload []byte) {
	h.direct <- directPush{userIDs: []int64{userID}, payload: payload}
}

// SendToUsers pushes the same encoded event to several users' groups.
func (h *Hub) SendToUsers(userIDs []int64, payload []byte) {
	h.direct <- directPush{userIDs: userIDs, payload: payload}
}

func (h *Hub) addClient(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.userID] = set
	}
	set[client] = struct{}{}

	if first := h.registry.Register(client.userID, client.connID); first {
		h.announcePresence(EventPresenceOnline, client.userID)
	}
}

// removeClient drops a client and, when it held the user's last open
// connection, announces the offline edge. The slow-client eviction in
// sendToUser goes through the same path so peers never see a stale
// presence view.
func (h *Hub) removeClient(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, exists := set[client]; !exists {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}

	if last := h.registry.Unregister(client.userID, client.connID); last {
		h.announcePresence(EventPresenceOffline, client.userID)
	}
}

// announcePresence tells all other connected peers about an
// offline→online or online→offline edge. Runs on the hub goroutine and
// writes to the client sets directly.
func (h *Hub) announcePresence(eventType string, userID int64) {
	payload, err := encodeEvent(eventType, PresencePayload{UserID: userID})
	if err != nil {
		log.Printf("chat hub encode presence: %v", err)
		return
	}
	for peerID := range h.clients {
		if peerID == userID {
			continue
		}
		h.sendToUser(peerID, payload)
	}
}

func (h *Hub) sendToUser(userID int64, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			h.removeClient(client)
		}
	}
}
