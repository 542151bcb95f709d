package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Clinician message types
const (
	MsgScoreUpdate    MessageType = "score_update"
	MsgSafetyOverride MessageType = "safety_override"
	MsgPatientJoined  MessageType = "patient_joined"
	MsgPatientLeft    MessageType = "patient_left"
	MsgSessionEnded   MessageType = "session_ended"
)

// Patient message types
const (
	MsgTranscriptTurn MessageType = "transcript_turn"
	MsgTurnResult     MessageType = "turn_result"
	MsgError          MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections for intake sessions
type Hub struct {
	// Session -> connections
	clinicianConns map[string]*Connection
	patientConns   map[string]*Connection

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// Connection represents a WebSocket connection
type Connection struct {
	SessionID   string
	IsClinician bool
	Send        chan []byte
	Hub         *Hub
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	SessionID   string
	ToClinician bool
	Message     *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		clinicianConns: make(map[string]*Connection),
		patientConns:   make(map[string]*Connection),
		register:       make(chan *Connection),
		unregister:     make(chan *Connection),
		broadcast:      make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

// Register adds a connection to the hub
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection from the hub
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if conn.IsClinician {
				h.clinicianConns[conn.SessionID] = conn
				log.Printf("Clinician connected to session %s", conn.SessionID)
			} else {
				h.patientConns[conn.SessionID] = conn
				log.Printf("Patient connected to session %s", conn.SessionID)
				h.notifyClinicianLocked(conn.SessionID, MsgPatientJoined, map[string]string{"sessionId": conn.SessionID})
			}
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if conn.IsClinician {
				if h.clinicianConns[conn.SessionID] == conn {
					delete(h.clinicianConns, conn.SessionID)
					close(conn.Send)
				}
			} else {
				if h.patientConns[conn.SessionID] == conn {
					delete(h.patientConns, conn.SessionID)
					close(conn.Send)
					h.notifyClinicianLocked(conn.SessionID, MsgPatientLeft, map[string]string{"sessionId": conn.SessionID})
				}
			}
			h.mu.Unlock()

		case bm := <-h.broadcast:
			data, err := json.Marshal(bm.Message)
			if err != nil {
				log.Printf("Failed to marshal ws message: %v", err)
				continue
			}
			h.mu.RLock()
			var conn *Connection
			if bm.ToClinician {
				conn = h.clinicianConns[bm.SessionID]
			} else {
				conn = h.patientConns[bm.SessionID]
			}
			if conn != nil {
				select {
				case conn.Send <- data:
				default:
					// Slow consumer; drop the message rather than block the hub
				}
			}
			h.mu.RUnlock()
		}
	}
}

// notifyClinicianLocked queues a message for the session's clinician.
// Caller holds h.mu.
func (h *Hub) notifyClinicianLocked(sessionID string, msgType MessageType, payload interface{}) {
	conn := h.clinicianConns[sessionID]
	if conn == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	data, err := json.Marshal(&Message{Type: msgType, Payload: raw})
	if err != nil {
		return
	}
	select {
	case conn.Send <- data:
	default:
	}
}

func (h *Hub) send(sessionID string, toClinician bool, msgType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal payload for %s: %v", msgType, err)
		return
	}
	h.broadcast <- &BroadcastMessage{
		SessionID:   sessionID,
		ToClinician: toClinician,
		Message:     &Message{Type: MessageType(msgType), Payload: raw},
	}
}

// BroadcastToClinician implements service.Broadcaster
func (h *Hub) BroadcastToClinician(sessionID string, msgType string, payload interface{}) {
	h.send(sessionID, true, msgType, payload)
}

// BroadcastToPatient implements service.Broadcaster
func (h *Hub) BroadcastToPatient(sessionID string, msgType string, payload interface{}) {
	h.send(sessionID, false, msgType, payload)
}

// DisconnectSession closes both sides of a session's bridge
func (h *Hub) DisconnectSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.clinicianConns[sessionID]; ok {
		delete(h.clinicianConns, sessionID)
		close(conn.Send)
	}
	if conn, ok := h.patientConns[sessionID]; ok {
		delete(h.patientConns, sessionID)
		close(conn.Send)
	}
}
