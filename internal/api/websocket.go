package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"farmhand/internal/voice"
)

// WebSocketHub manages activity-broadcast connections
type WebSocketHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

// NewWebSocketHub creates a hub
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run starts the hub's event loop
func (h *WebSocketHub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to all connected clients
func (h *WebSocketHub) Broadcast(eventType, message string) {
	data := map[string]string{
		"type":    eventType,
		"message": message,
	}

	jsonData, _ := json.Marshal(data)
	select {
	case h.broadcast <- jsonData:
	default:
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleEvents subscribes a client to broadcast activity events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.wsHub.register <- conn

	go func() {
		defer func() {
			s.wsHub.unregister <- conn
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// voiceControl is a client-sent control frame on the voice socket
type voiceControl struct {
	Type      string `json:"type"` // "start" or "stop"
	Language  string `json:"language"`
	SessionID string `json:"session_id"`
}

// voiceEvent is a server-sent frame on the voice socket
type voiceEvent struct {
	Type    string `json:"type"` // "state", "transcript", "reply", "error"
	State   string `json:"state,omitempty"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

// handleVoiceSocket runs one voice session per websocket connection.
// Control frames are JSON text messages, captured audio arrives as a
// binary message, and synthesized replies go back as binary audio.
func (s *Server) handleVoiceSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	session := s.newVoice()
	language := s.prefs.Get().Language
	sessionID := ""
	defer func() {
		session.Stop()
		s.orchestrator.SetVoiceSession("")
	}()

	sendEvent := func(ev voiceEvent) {
		conn.WriteJSON(ev)
	}
	sendState := func() {
		sendEvent(voiceEvent{Type: "state", State: session.State().String()})
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch msgType {
		case websocket.TextMessage:
			var ctl voiceControl
			if err := json.Unmarshal(data, &ctl); err != nil {
				sendEvent(voiceEvent{Type: "error", Message: "invalid control frame"})
				continue
			}

			switch ctl.Type {
			case "start":
				if ctl.Language != "" {
					language = ctl.Language
				}
				sessionID = ctl.SessionID
				if sessionID == "" {
					sessionID = uuid.New().String()
				}

				if err := session.Start(); err != nil {
					if errors.Is(err, voice.ErrUnsupported) {
						sendEvent(voiceEvent{Type: "error", Message: s.localized("voice_unsupported")})
					} else {
						sendEvent(voiceEvent{Type: "error", Message: err.Error()})
					}
					continue
				}
				s.orchestrator.SetVoiceSession(sessionID)
				sendState()

			case "stop":
				session.Stop()
				s.orchestrator.SetVoiceSession("")
				sendState()

			default:
				sendEvent(voiceEvent{Type: "error", Message: "unknown control type"})
			}

		case websocket.BinaryMessage:
			transcript, err := session.Finalize(r.Context(), data, language)
			if err != nil || transcript == "" {
				if err != nil {
					s.logger.WithContext("error", err.Error()).Warn("voice finalize failed")
					sendEvent(voiceEvent{Type: "error", Message: err.Error()})
				}
				sendState()
				continue
			}
			sendEvent(voiceEvent{Type: "transcript", Text: transcript})
			sendState()

			turn, err := s.orchestrator.Submit(r.Context(), sessionID, transcript)
			if err != nil {
				sendEvent(voiceEvent{Type: "error", Message: err.Error()})
				session.Stop()
				sendState()
				continue
			}
			sendEvent(voiceEvent{Type: "reply", Text: turn.Text})

			audio, err := session.Speak(r.Context(), turn.Text, language)
			if err == nil && len(audio) > 0 {
				conn.WriteMessage(websocket.BinaryMessage, audio)
			}
			sendState()
		}
	}
}
