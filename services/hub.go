package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub fans session events out to connected websocket clients. One hub
// serves every session; clients are matched by session id.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	sessions   *SessionService
}

type Client struct {
	hub       *Hub
	id        string
	socket    *websocket.Conn
	send      chan []byte
	sessionID uint
	playerID  uint // 0 for the host and observers
	hostID    uint // non-zero only for the host's connection
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

func NewHub(sessions *SessionService) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		sessions:   sessions,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client %s connected to session %d (player %d)", client.id, client.sessionID, client.playerID)

		case client := <-h.unregister:
			h.mutex.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			if !ok {
				continue
			}
			log.Printf("Client %s disconnected from session %d", client.id, client.sessionID)

			// The host's connection going away aborts the session so
			// players are not stranded in a dead lobby.
			if client.hostID != 0 {
				if _, err := h.sessions.End(context.Background(), client.sessionID, client.hostID); err != nil {
					log.Printf("Ending session %d after host disconnect failed: %v", client.sessionID, err)
				} else {
					h.BroadcastToSession(client.sessionID, "session_ended", map[string]interface{}{
						"reason": "host_disconnected",
					})
				}
			}
		}
	}
}

// BroadcastToSession sends one event to every client of a session.
func (h *Hub) BroadcastToSession(sessionID uint, messageType string, payload interface{}) {
	data, err := json.Marshal(Message{Type: messageType, Payload: payload})
	if err != nil {
		log.Printf("Error marshaling %s broadcast: %v", messageType, err)
		return
	}

	h.mutex.Lock()
	for client := range h.clients {
		if client.sessionID != sessionID {
			continue
		}
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
	h.mutex.Unlock()
}

// RegisterClient attaches a websocket connection to a session and
// starts its pumps. hostID is non-zero only for the host connection.
func (h *Hub) RegisterClient(conn *websocket.Conn, sessionID, playerID, hostID uint) *Client {
	client := &Client{
		hub:       h,
		id:        uuid.NewString(),
		socket:    conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
		playerID:  playerID,
		hostID:    hostID,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) sendStateSync(client *Client) {
	view, err := h.sessions.View(context.Background(), client.sessionID)
	if err != nil {
		log.Printf("State sync for client %s failed: %v", client.id, err)
		return
	}
	if client.playerID == 0 && client.hostID == 0 {
		// Observers do not get the PIN back.
		view.Pin = ""
	}

	data, err := json.Marshal(Message{Type: "session_state_sync", Payload: view})
	if err != nil {
		log.Printf("Error marshaling state sync: %v", err)
		return
	}

	select {
	case client.send <- data:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling client message: %v", err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer c.socket.Close()

	for message := range c.send {
		w, err := c.socket.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)
		if err := w.Close(); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Type {
	case "ping":
		data, _ := json.Marshal(Message{Type: "pong", Payload: "pong"})
		select {
		case c.send <- data:
		default:
		}

	case "request_session_state":
		c.hub.sendStateSync(c)

	default:
		log.Printf("Unknown message type %q from client %s in session %d", msg.Type, c.id, c.sessionID)
	}
}
