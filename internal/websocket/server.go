package websocket

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/mnoushir/site-assistant/pkg/logger"
)

// Message represents a WebSocket message pushed to the rendering layer
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Client represents one rendering-layer connection, attached to a single
// assistant session
type Client struct {
	conn      *websocket.Conn
	sessionID string
	send      chan *Message
	server    *Server
	mu        sync.Mutex
	closed    bool
	closeChan chan struct{}
}

// Server is the event hub: it fans session events out to the clients
// attached to that session
type Server struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *sessionMessage
	upgrader   websocket.Upgrader
	logger     *logger.Logger
	mu         sync.RWMutex
}

type sessionMessage struct {
	sessionID string
	message   *Message
}

// NewServer creates a new WebSocket event hub
func NewServer(logger *logger.Logger) *Server {
	return &Server{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *sessionMessage, 64),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // CORS is enforced by the HTTP middleware
			},
		},
		logger: logger.Named("web-socket"),
	}
}

// Run starts the hub loop
func (s *Server) Run() {
	s.logger.Info("Starting WebSocket event hub")

	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client registered",
				logger.String("session_id", client.sessionID),
				logger.Int("client_count", clientCount))

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				// Mark client as closed first to prevent new messages
				client.mu.Lock()
				client.closed = true
				client.mu.Unlock()
				close(client.send)
			}
			clientCount := len(s.clients)
			s.mu.Unlock()
			s.logger.Debug("Client unregistered", logger.Int("client_count", clientCount))

		case sm := <-s.broadcast:
			s.mu.RLock()
			clientsToRemove := make([]*Client, 0)
			for client := range s.clients {
				if client.sessionID != sm.sessionID {
					continue
				}

				client.mu.Lock()
				if client.closed {
					clientsToRemove = append(clientsToRemove, client)
					client.mu.Unlock()
					continue
				}
				client.mu.Unlock()

				select {
				case client.send <- sm.message:
					// Message queued
				default:
					// Channel is full, mark for removal
					clientsToRemove = append(clientsToRemove, client)
				}
			}
			s.mu.RUnlock()

			// Clean up failed clients
			if len(clientsToRemove) > 0 {
				s.mu.Lock()
				for _, client := range clientsToRemove {
					if _, ok := s.clients[client]; ok {
						delete(s.clients, client)
						client.mu.Lock()
						if !client.closed {
							client.closed = true
							close(client.send)
						}
						client.mu.Unlock()
					}
				}
				s.mu.Unlock()
			}
		}
	}
}

// Publish sends a session event to every client attached to that session.
// It never blocks the caller: when the hub queue is full the event is
// dropped (the rendering layer recovers from the next snapshot).
func (s *Server) Publish(sessionID string, eventType string, data map[string]any) {
	sm := &sessionMessage{
		sessionID: sessionID,
		message:   &Message{Type: eventType, Data: data},
	}

	select {
	case s.broadcast <- sm:
	default:
		s.logger.Warn("Event hub queue full, dropping event",
			logger.String("session_id", sessionID),
			logger.String("event_type", eventType))
	}
}

// HandleConnection upgrades an HTTP request and attaches the connection to
// the given session's event stream
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request, sessionID string) {
	s.logger.Debug("Handling new WebSocket connection request",
		logger.String("session_id", sessionID),
		logger.String("remote_addr", r.RemoteAddr))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			logger.Error(err),
			logger.String("remote_addr", r.RemoteAddr))
		return
	}

	client := &Client{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan *Message, 64),
		server:    s,
		closeChan: make(chan struct{}),
	}

	s.register <- client

	go client.readPump()
	go client.writePump()
}

// readPump drains the connection; the rendering layer sends nothing the
// hub acts on, but reads are required to detect disconnects
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		if !c.closed {
			c.closed = true
		}
		c.mu.Unlock()

		c.server.unregister <- c
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.server.logger.Error("WebSocket read error", logger.Error(err))
			}
			return
		}
	}
}

// writePump pumps hub messages to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		c.mu.Lock()
		if !c.closed {
			c.closed = true
		}
		c.mu.Unlock()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Channel closed
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				c.server.logger.Error("Failed to marshal message", logger.Error(err))
				continue
			}

			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}
			err = c.conn.WriteMessage(websocket.TextMessage, data)
			c.mu.Unlock()
			if err != nil {
				return
			}

		case <-c.closeChan:
			return
		}
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.closeChan)
	c.conn.Close()
}
