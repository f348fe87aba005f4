package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"

	"CamuPos/app/models"
	"CamuPos/app/store"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	TypeStateChanged MessageType = "state_changed" // full snapshot, POS and admin only
	TypeMenuChanged  MessageType = "menu_changed"  // catalog and stock, every client
	TypeOrderNew     MessageType = "order_new"     // a storefront order arrived
	TypeOrderStatus  MessageType = "order_status"
	TypeHeartbeat    MessageType = "heartbeat"
	TypeWelcome      MessageType = "welcome"
)

// ClientType represents the type of connected client
type ClientType string

const (
	ClientPOS        ClientType = "pos"
	ClientAdmin      ClientType = "admin"
	ClientStorefront ClientType = "storefront"
)

// privileged clients may see customer data
func (t ClientType) privileged() bool {
	return t == ClientPOS || t == ClientAdmin
}

// Message represents a WebSocket message
type Message struct {
	Type      MessageType     `json:"type"`
	ClientID  string          `json:"client_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// StateChange is the payload of a state_changed message
type StateChange struct {
	Action string      `json:"action"`
	State  store.State `json:"state"`
}

// OrderStatusChange is the payload of an order_status message. It carries
// no customer data so storefront clients can track their order.
type OrderStatusChange struct {
	ID     string             `json:"id"`
	Status models.OrderStatus `json:"status"`
}

// Client represents a connected WebSocket client
type Client struct {
	ID          string
	Type        ClientType
	Connection  *websocket.Conn
	Send        chan []byte
	Server      *Server
	ConnectedAt time.Time
	RemoteAddr  string
}

// Authorizer validates the token a privileged client connects with
type Authorizer func(token string) bool

type outbound struct {
	data       []byte
	privileged bool // only POS and admin clients receive it
}

type event struct {
	state  store.State
	action store.Action
}

// Server is the live-update hub. It turns committed store actions into
// broadcasts.
type Server struct {
	clients    map[string]*Client
	events     chan event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	upgrader   websocket.Upgrader
	authorize  Authorizer
	mu         sync.RWMutex
	mdns       *zeroconf.Server
}

// NewServer creates a hub. A nil authorize lets every client in.
func NewServer(authorize Authorizer) *Server {
	return &Server{
		clients:    make(map[string]*Client),
		events:     make(chan event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		authorize:  authorize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from local network
				return true
			},
		},
	}
}

// Start runs the hub loop
func (s *Server) Start() {
	go s.run()
}

// OnAction is a store listener. It runs under the store lock, so it only
// queues the event.
func (s *Server) OnAction(next store.State, a store.Action, intents []store.Intent) {
	select {
	case s.events <- event{state: next, action: a}:
	default:
		log.Printf("WebSocket: event queue full, dropping %s", a.Name())
	}
}

// Announce advertises the API on the local network via mDNS
func (s *Server) Announce(port int) error {
	server, err := zeroconf.Register(
		"Camu Camu POS",
		"_camupos._tcp",
		"local.",
		port,
		[]string{"version=1.0", "path=/api"},
		nil,
	)
	if err != nil {
		return fmt.Errorf("mDNS register: %w", err)
	}
	s.mu.Lock()
	s.mdns = server
	s.mu.Unlock()
	log.Println("mDNS: Camu Camu POS announced on _camupos._tcp.local")
	return nil
}

// Stop closes every connection and stops the mDNS announcement
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.mdns != nil {
			s.mdns.Shutdown()
			s.mdns = nil
		}
		for id, client := range s.clients {
			client.Connection.Close()
			delete(s.clients, id)
		}
	})
}

// run handles the main server loop
func (s *Server) run() {
	ticker := time.NewTicker(30 * time.Second) // Heartbeat every 30 seconds
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return

		case client := <-s.register:
			s.mu.Lock()
			s.clients[client.ID] = client
			s.mu.Unlock()
			log.Printf("Client registered: %s (type: %s)", client.ID, client.Type)

		case client := <-s.unregister:
			s.removeClient(client.ID)

		case ev := <-s.events:
			for _, msg := range messagesFor(ev) {
				s.deliver(msg)
			}

		case <-ticker.C:
			s.deliver(mustEncode(TypeHeartbeat, map[string]string{"ping": "pong"}, false))
		}
	}
}

// messagesFor maps one committed action to the broadcasts it causes
func messagesFor(ev event) []outbound {
	out := []outbound{
		mustEncode(TypeStateChanged, StateChange{Action: ev.action.Name(), State: ev.state}, true),
	}
	switch a := ev.action.(type) {
	case store.AddOnlineOrder:
		if orders := ev.state.Orders(); len(orders) > 0 {
			out = append(out, mustEncode(TypeOrderNew, orders[0], true))
		}
	case store.UpdateOrderStatus:
		if order, ok := ev.state.Order(a.ID); ok {
			out = append(out, mustEncode(TypeOrderStatus, OrderStatusChange{ID: order.ID, Status: order.Status}, false))
		}
	}
	if touchesMenu(ev.action) {
		out = append(out, mustEncode(TypeMenuChanged, ev.state.Products, false))
	}
	return out
}

// touchesMenu reports whether the action can change the catalog or stock
func touchesMenu(a store.Action) bool {
	switch a.(type) {
	case store.AddProduct, store.UpdateProduct, store.DeleteProduct, store.ResetProducts,
		store.AddOrder, store.AddOnlineOrder, store.UpdateOrder, store.DeleteOrder,
		store.SetInitialState:
		return true
	}
	return false
}

func mustEncode(t MessageType, payload interface{}, privileged bool) outbound {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshaling %s payload: %v", t, err)
		data = []byte("null")
	}
	msg, _ := json.Marshal(Message{Type: t, Timestamp: time.Now(), Data: data})
	return outbound{data: msg, privileged: privileged}
}

// deliver queues msg on every eligible client. Slow clients are dropped.
func (s *Server) deliver(msg outbound) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, client := range s.clients {
		if msg.privileged && !client.Type.privileged() {
			continue
		}
		select {
		case client.Send <- msg.data:
		default:
			// Client buffer is full, disconnect
			delete(s.clients, id)
			close(client.Send)
		}
	}
}

func (s *Server) removeClient(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if client, ok := s.clients[id]; ok {
		delete(s.clients, id)
		close(client.Send)
		log.Printf("Client unregistered: %s", id)
	}
}

// HandleWebSocket upgrades the request. Clients pick their type with
// ?type=; privileged types must pass ?token=.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientType := ClientType(r.URL.Query().Get("type"))
	switch clientType {
	case ClientPOS, ClientAdmin, ClientStorefront:
	case "":
		clientType = ClientStorefront
	default:
		http.Error(w, "unknown client type", http.StatusBadRequest)
		return
	}
	if clientType.privileged() && s.authorize != nil && !s.authorize(r.URL.Query().Get("token")) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:          generateClientID(),
		Type:        clientType,
		Connection:  conn,
		Send:        make(chan []byte, 256),
		Server:      s,
		ConnectedAt: time.Now(),
		RemoteAddr:  r.RemoteAddr,
	}

	// Queue the greeting before the client is visible to broadcasts
	welcome := mustEncode(TypeWelcome, map[string]string{"client_id": client.ID, "type": string(clientType)}, false)
	client.Send <- welcome.data

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// GetConnectedClients returns list of connected clients
func (s *Server) GetConnectedClients() []map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]map[string]interface{}, 0, len(s.clients))
	for _, client := range s.clients {
		clients = append(clients, map[string]interface{}{
			"id":           client.ID,
			"type":         string(client.Type),
			"connected_at": client.ConnectedAt.Format(time.RFC3339),
			"remote_addr":  client.RemoteAddr,
		})
	}
	return clients
}

// Client methods

// readPump drains the connection; clients only send heartbeats
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Server.unregister <- c:
		case <-c.Server.done:
		}
		c.Connection.Close()
	}()

	c.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Connection.SetPongHandler(func(string) error {
		c.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, messageBytes, err := c.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		var message Message
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			log.Printf("Error parsing message: %v", err)
			continue
		}
		if message.Type == TypeHeartbeat {
			c.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}
}

// writePump handles writing messages to the client
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Helper functions

func generateClientID() string {
	return fmt.Sprintf("%d-%d", time.Now().Unix(), time.Now().Nanosecond())
}
