package protocol

import (
	"testing"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "state message",
			msgType: TypeState,
			data:    StateData{VX: 0.5, Action: "MOVE", Frequency: 99.8},
			wantErr: false,
		},
		{
			name:    "task message",
			msgType: TypeTask,
			data:    TaskEvent{TaskID: "task_0", Type: "rotate", Status: "running", Duration: 1.57},
			wantErr: false,
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if msg == nil && !tt.wantErr {
				t.Error("NewMessage() returned nil message")
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestMessageRoundTrip(t *testing.T) {
	original := TaskEvent{
		TaskID:   "task_7",
		Type:     "move",
		Status:   "completed",
		Duration: 2.0,
	}

	msg, err := NewMessage(TypeTask, original)
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	data, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	parsed, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeTask {
		t.Errorf("parsed type = %v, want %v", parsed.Type, TypeTask)
	}

	var event TaskEvent
	if err := parsed.ParseData(&event); err != nil {
		t.Fatalf("ParseData() error = %v", err)
	}
	if event != original {
		t.Errorf("round trip mismatch: got %+v, want %+v", event, original)
	}
}

func TestParseMessage_Invalid(t *testing.T) {
	if _, err := ParseMessage([]byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestParseData_NilData(t *testing.T) {
	msg := &Message{Type: TypePing}
	var data PingData
	if err := msg.ParseData(&data); err != nil {
		t.Errorf("ParseData on nil data should be a no-op, got %v", err)
	}
}
