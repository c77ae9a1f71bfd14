package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"ascai/internal/model"
	"ascai/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 8 << 10

	// Outbound queue per client. A client that cannot drain this is dropped.
	sendQueueSize = 64
)

// Inbound command actions.
const (
	actionJoin     = "join"
	actionLeave    = "leave"
	actionSend     = "send_message"
	actionTyping   = "typing"
	actionMarkRead = "mark_read"
)

// command is one client-to-server frame.
type command struct {
	Action         string    `json:"action"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Content        string    `json:"content,omitempty"`
	IsTyping       bool      `json:"is_typing,omitempty"`
}

// errorFrame is sent back when a command fails.
type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Client is one authenticated websocket connection. It always listens on its
// user channel; conversation channels come and go with join/leave commands.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	user      *model.User
	messaging service.MessagingService

	// Message commands are throttled per connection.
	limiter *rate.Limiter

	send chan []byte

	mu     sync.RWMutex
	joined map[uuid.UUID]struct{}
}

// Serve attaches an upgraded connection to the hub and pumps it until the
// peer disconnects. It marks the user online for the duration.
func Serve(ctx context.Context, hub *Hub, conn *websocket.Conn, user *model.User, messaging service.MessagingService) {
	c := &Client{
		hub:       hub,
		conn:      conn,
		user:      user,
		messaging: messaging,
		limiter:   rate.NewLimiter(rate.Limit(5), 10),
		send:      make(chan []byte, sendQueueSize),
		joined:    make(map[uuid.UUID]struct{}),
	}

	hub.register(c)
	_ = messaging.SetPresence(ctx, user.ID, true)

	go c.writePump()
	c.readPump(ctx)

	// Unregister before closing send: route holds the hub lock while
	// delivering, so once unregister returns nothing can write to the channel
	// and writePump shuts down immediately instead of idling until the next
	// ping fails.
	hub.unregister(c)
	close(c.send)
	_ = messaging.SetPresence(context.Background(), user.ID, false)
}

// deliver queues a broker payload for the peer, dropping the connection if
// its queue is full.
func (c *Client) deliver(payload []byte) {
	select {
	case c.send <- payload:
	default:
		c.conn.Close()
	}
}

// channels lists the broker channels this client listens on.
func (c *Client) channels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	chs := make([]string, 0, len(c.joined)+1)
	chs = append(chs, service.UserChannel(c.user.ID))
	for id := range c.joined {
		chs = append(chs, service.ConversationChannel(id))
	}
	return chs
}

func (c *Client) readPump(ctx context.Context) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: read error for user %d: %v", c.user.ID, err)
			}
			return
		}

		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.sendError("malformed command")
			continue
		}
		c.handle(ctx, cmd)
	}
}

func (c *Client) handle(ctx context.Context, cmd command) {
	switch cmd.Action {
	case actionJoin:
		// Membership is checked before the client starts receiving events.
		if _, err := c.messaging.GetConversation(ctx, cmd.ConversationID, c.user); err != nil {
			c.sendError("cannot join conversation")
			return
		}
		c.mu.Lock()
		c.joined[cmd.ConversationID] = struct{}{}
		c.mu.Unlock()

	case actionLeave:
		c.mu.Lock()
		delete(c.joined, cmd.ConversationID)
		c.mu.Unlock()

	case actionSend:
		if !c.limiter.Allow() {
			c.sendError("sending too fast")
			return
		}
		if _, err := c.messaging.SendMessage(ctx, cmd.ConversationID, c.user, cmd.Content); err != nil {
			c.sendError("message not delivered")
		}

	case actionTyping:
		if err := c.messaging.NotifyTyping(ctx, cmd.ConversationID, c.user, cmd.IsTyping); err != nil {
			c.sendError("typing notification failed")
		}

	case actionMarkRead:
		if err := c.messaging.MarkRead(ctx, cmd.ConversationID, c.user); err != nil {
			c.sendError("mark read failed")
		}

	default:
		c.sendError("unknown action")
	}
}

func (c *Client) sendError(msg string) {
	payload, err := json.Marshal(errorFrame{Type: "error", Error: msg})
	if err != nil {
		return
	}
	c.deliver(payload)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
