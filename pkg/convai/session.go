// Package convai manages live voice conversation sessions with an
// ElevenLabs conversational agent over websocket.
package convai

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"kahaanigo/pkg/model"
)

// EventType classifies session events.
type EventType string

const (
	EventConnected    EventType = "connected"
	EventMessage      EventType = "message"
	EventError        EventType = "error"
	EventDisconnected EventType = "disconnected"
)

// Event is one occurrence on a live conversation session.
type Event struct {
	Type EventType
	Role model.TranscriptRole
	Text string
	Err  error
}

// Session is a live bidirectional conversation. Events arrive on Events()
// until the session ends, after which the channel is closed. Close is
// idempotent.
type Session struct {
	conn *websocket.Conn

	events chan Event

	writeMu sync.Mutex
	closed  sync.Once

	volMu  sync.Mutex
	volume float64
}

// wire is the envelope for all inbound and outbound agent messages.
type wire struct {
	Type string `json:"type"`

	// Outbound
	Text    string         `json:"text,omitempty"`
	EventID int            `json:"event_id,omitempty"`
	Init    *initOverrides `json:"conversation_config_override,omitempty"`

	// Inbound
	AgentResponseEvent *struct {
		AgentResponse string `json:"agent_response"`
	} `json:"agent_response_event,omitempty"`
	UserTranscriptionEvent *struct {
		UserTranscript string `json:"user_transcript"`
	} `json:"user_transcription_event,omitempty"`
	PingEvent *struct {
		EventID int `json:"event_id"`
	} `json:"ping_event,omitempty"`
}

func newSession(conn *websocket.Conn) *Session {
	s := &Session{
		conn:   conn,
		events: make(chan Event, 16),
		volume: 1.0,
	}
	go s.readLoop()
	return s
}

// Events returns the session's event stream. The channel closes when the
// session ends, whether by Close or by the remote side hanging up.
func (s *Session) Events() <-chan Event {
	return s.events
}

// SendMessage sends a typed user message into the conversation.
func (s *Session) SendMessage(text string) error {
	return s.write(wire{Type: "user_message", Text: text})
}

// SetVolume records the session playback volume (0.0 to 1.0).
func (s *Session) SetVolume(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("volume out of range: %f", v)
	}
	s.volMu.Lock()
	s.volume = v
	s.volMu.Unlock()
	return nil
}

// Volume returns the current session playback volume.
func (s *Session) Volume() float64 {
	s.volMu.Lock()
	defer s.volMu.Unlock()
	return s.volume
}

// Close tears down the session. Safe to call more than once; only the first
// call has any effect.
func (s *Session) Close() error {
	s.closed.Do(func() {
		s.writeMu.Lock()
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		s.conn.Close()
	})
	return nil
}

func (s *Session) write(msg wire) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop translates agent protocol frames into Events. It owns the events
// channel and closes it exactly once on exit.
func (s *Session) readLoop() {
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.events <- Event{Type: EventDisconnected}
			} else {
				s.events <- Event{Type: EventDisconnected, Err: err}
			}
			return
		}

		var msg wire
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("ConvAI: unparseable frame", "error", err)
			continue
		}

		switch msg.Type {
		case "conversation_initiation_metadata":
			s.events <- Event{Type: EventConnected}
		case "agent_response":
			if msg.AgentResponseEvent != nil {
				s.events <- Event{Type: EventMessage, Role: model.RoleAgent, Text: msg.AgentResponseEvent.AgentResponse}
			}
		case "user_transcript":
			if msg.UserTranscriptionEvent != nil {
				s.events <- Event{Type: EventMessage, Role: model.RoleUser, Text: msg.UserTranscriptionEvent.UserTranscript}
			}
		case "ping":
			eventID := 0
			if msg.PingEvent != nil {
				eventID = msg.PingEvent.EventID
			}
			if err := s.write(wire{Type: "pong", EventID: eventID}); err != nil {
				slog.Debug("ConvAI: pong failed", "error", err)
			}
		case "internal_tentative_agent_response", "audio":
			// Interim frames; nothing for the transcript.
		default:
			slog.Debug("ConvAI: ignoring frame", "type", msg.Type)
		}
	}
}
