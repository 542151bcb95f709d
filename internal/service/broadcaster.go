package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToClinician(sessionID string, msgType string, payload interface{})
	BroadcastToPatient(sessionID string, msgType string, payload interface{})
	DisconnectSession(sessionID string)
}
