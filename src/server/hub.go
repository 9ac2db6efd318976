package server

import (
	"encoding/json"
	"net/http"

	"enrollment-observer/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// runHub is the main Hub loop
func (s *ObserverServer) runHub() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = struct{}{}
			// Send the last completed scan on connect
			s.stateMutex.RLock()
			if s.latestState != nil {
				client.send <- s.latestState
			}
			s.stateMutex.RUnlock()

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}

		case scan := <-s.broadcast:
			// Update state and broadcast
			s.stateMutex.Lock()
			s.latestState = scan
			s.stateMutex.Unlock()

			for client := range s.clients {
				select {
				case client.send <- scan:
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// UpdateLatestScan updates internal state without broadcasting.
func (s *ObserverServer) UpdateLatestScan(scan *models.MLatestScan) {
	if scan == nil {
		return
	}

	s.stateMutex.Lock()
	s.latestState = scan
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------

// Broadcast queues a completed scan for every connected client.
func (s *ObserverServer) Broadcast(scan *models.MLatestScan) {
	if scan == nil {
		return
	}
	s.broadcast <- scan
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *ObserverServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan interface{}, 64),
	}

	s.register <- client

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *ObserverServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	s.stateMutex.RLock()
	response := s.filterByStates(cmd.States)
	s.stateMutex.RUnlock()

	select {
	case client.send <- response:
	default:
		// Client buffer full; the next broadcast will catch it up or the
		// Hub loop will prune it.
	}
}

// -----------------------------------------------------------------------------
// Response Filtering
// -----------------------------------------------------------------------------

// filterByStates returns a copy of the latest scan restricted to the given
// states. An empty filter returns everything. Caller must hold stateMutex.
func (s *ObserverServer) filterByStates(states []string) *models.MLatestScan {
	if len(states) == 0 {
		return s.latestState
	}

	wanted := make(map[string]struct{}, len(states))
	for _, st := range states {
		wanted[st] = struct{}{}
	}

	filtered := make(map[string][]models.MAnomalyAlert)
	for key, alerts := range s.latestState.Alerts {
		if len(alerts) == 0 {
			continue
		}
		if _, ok := wanted[alerts[0].State]; ok {
			filtered[key] = alerts
		}
	}

	return &models.MLatestScan{
		Type:        "INITIAL",
		Alerts:      filtered,
		Timestamp:   s.latestState.Timestamp,
		ScanMetrics: s.latestState.ScanMetrics,
	}
}
