package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/Abhirup-261004/Innova-InjuryShield/internal/services"
)

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	role   string
	connID string
	send   chan []byte
}

// chatService is the slice of the chat service the socket needs.
type chatService interface {
	SendMessage(ctx context.Context, senderID int64, senderRole string, receiverID int64, text string) (*services.ChatDelivery, error)
	MarkConversationSeen(ctx context.Context, viewerID int64, conversationID int64) (int64, error)
	DeleteForViewer(ctx context.Context, viewerID int64, messageID int64) error
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64, role string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		role:   role,
		connID: uuid.NewString(),
		send:   make(chan []byte, 32),
	}
}

// ReadPump consumes client events until the connection drops. Every event
// is decoded and validated at this boundary; only well-formed requests
// reach the service. A request carrying an ack id gets exactly one ack in
// response.
func (c *Client) ReadPump(service chatService) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			c.writeError("invalid event payload")
			continue
		}

		switch env.Type {
		case EventMessageSend:
			c.handleSend(service, env)
		case EventMessageSeen:
			c.handleSeen(service, env)
		case EventMessageDeleteForMe:
			c.handleDeleteForMe(service, env)
		case EventTypingStart, EventTypingStop:
			c.handleTyping(env)
		default:
			c.nack(env.Ack, "unsupported event type")
		}
	}
}

func (c *Client) handleSend(service chatService, env Envelope) {
	var req SendPayload
	if err := decodeEvent(env.Data, &req); err != nil {
		c.nack(env.Ack, "Invalid payload")
		return
	}

	delivery, err := service.SendMessage(context.Background(), c.userID, c.role, req.To, req.Text)
	if err != nil {
		c.nack(env.Ack, sendFailureReason(err))
		return
	}

	out := newMessagePayload(delivery.Message)
	encoded, err := encodeEvent(EventMessageNew, out)
	if err != nil {
		log.Printf("chat encode message: %v", err)
		c.nack(env.Ack, "Send failed")
		return
	}

	c.hub.SendToUsers([]int64{delivery.Message.SenderID, delivery.Message.ReceiverID}, encoded)
	c.ack(env.Ack, out)
}

func (c *Client) handleSeen(service chatService, env Envelope) {
	var req SeenPayload
	if err := decodeEvent(env.Data, &req); err != nil {
		c.nack(env.Ack, "Invalid payload")
		return
	}

	affected, err := service.MarkConversationSeen(context.Background(), c.userID, req.ConversationID)
	if err != nil {
		c.nack(env.Ack, "Seen update failed")
		return
	}

	if affected > 0 && req.FromUserID > 0 {
		encoded, err := encodeEvent(EventMessageSeenUpdate, SeenUpdatePayload{
			ConversationID: req.ConversationID,
			SeenBy:         c.userID,
		})
		if err != nil {
			log.Printf("chat encode seen update: %v", err)
		} else {
			c.hub.SendToUser(req.FromUserID, encoded)
		}
	}

	c.ack(env.Ack, nil)
}

func (c *Client) handleDeleteForMe(service chatService, env Envelope) {
	var req DeleteForMePayload
	if err := decodeEvent(env.Data, &req); err != nil {
		c.nack(env.Ack, "Invalid payload")
		return
	}

	if err := service.DeleteForViewer(context.Background(), c.userID, req.MessageID); err != nil {
		c.nack(env.Ack, deleteFailureReason(err))
		return
	}

	encoded, err := encodeEvent(EventMessageDeleted, DeletedPayload{MessageID: req.MessageID})
	if err != nil {
		log.Printf("chat encode deleted: %v", err)
	} else {
		c.hub.SendToUser(c.userID, encoded)
	}

	c.ack(env.Ack, nil)
}

// handleTyping relays the signal to the named peer only. Nothing is
// persisted, nothing is acked, and repeated starts are harmless.
func (c *Client) handleTyping(env Envelope) {
	var req TypingPayload
	if err := decodeEvent(env.Data, &req); err != nil {
		return
	}

	encoded, err := encodeEvent(env.Type, TypingFromPayload{From: c.userID})
	if err != nil {
		log.Printf("chat encode typing: %v", err)
		return
	}
	c.hub.SendToUser(req.To, encoded)
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (c *Client) ack(ackID int64, message interface{}) {
	c.writeAck(ackID, AckResult{OK: true, Message: message})
}

func (c *Client) nack(ackID int64, reason string) {
	c.writeAck(ackID, AckResult{OK: false, Message: reason})
}

// writeAck answers a correlated request. Requests without an ack id get no
// response at all, preserving the at-most-one-response contract.
func (c *Client) writeAck(ackID int64, result AckResult) {
	if ackID == 0 {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	payload, err := json.Marshal(Envelope{Type: EventAck, Ack: ackID, Data: data})
	if err != nil {
		return
	}
	c.enqueue(payload)
}

func (c *Client) writeError(message string) {
	payload, err := encodeEvent(EventError, AckResult{OK: false, Message: message})
	if err != nil {
		return
	}
	c.enqueue(payload)
}

func (c *Client) enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
		c.hub.Unregister(c)
	}
}

func sendFailureReason(err error) string {
	switch {
	case errors.Is(err, services.ErrChatNotAllowed):
		return "Chat not allowed"
	case errors.Is(err, services.ErrUserNotFound):
		return "Receiver not found"
	case errors.Is(err, services.ErrInvalidInput):
		return "Invalid payload"
	default:
		return "Send failed"
	}
}

func deleteFailureReason(err error) string {
	switch {
	case errors.Is(err, services.ErrMessageNotFound):
		return "Message not found"
	case errors.Is(err, services.ErrForbidden):
		return "Not allowed"
	case errors.Is(err, services.ErrInvalidInput):
		return "Invalid payload"
	default:
		return "Delete failed"
	}
}
