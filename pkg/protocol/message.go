// Package protocol defines the WebSocket message types broadcast by the
// go-g1 dashboard: motion state, task lifecycle events and heartbeat
// diagnostics.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Core → Dashboard messages
	TypeState     MessageType = "state"     // Velocity state machine snapshot
	TypeTask      MessageType = "task"      // Task lifecycle event
	TypeHeartbeat MessageType = "heartbeat" // Heartbeat diagnostics
	TypeEstop     MessageType = "estop"     // Emergency stop event
	TypeLog       MessageType = "log"       // Log line for the dashboard
	TypeTool      MessageType = "tool"      // Tool call result

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// StateData is a snapshot of the velocity state machine.
type StateData struct {
	VX        float64 `json:"vx"`
	VY        float64 `json:"vy"`
	VYaw      float64 `json:"vyaw"`
	Action    string  `json:"action"`
	Emergency bool    `json:"emergency"`
	Frequency float64 `json:"frequency_hz"` // measured heartbeat rate
	QueueLen  int     `json:"queue_len"`
}

// TaskEvent reports a task changing state.
type TaskEvent struct {
	TaskID   string  `json:"task_id"`
	Type     string  `json:"task_type"`
	Status   string  `json:"status"`
	Duration float64 `json:"duration"` // seconds
}

// EstopEvent reports an emergency stop and where it came from.
type EstopEvent struct {
	Source string `json:"source"` // "keyboard", "tool", "interrupt", "api"
}

// LogEntry is a log line for the dashboard.
type LogEntry struct {
	Time    string `json:"time"`
	Level   string `json:"level"` // info, warn, error, tool
	Message string `json:"message"`
}

// ToolEvent reports a tool call result.
type ToolEvent struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
	TaskID  string `json:"task_id,omitempty"`
}

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
