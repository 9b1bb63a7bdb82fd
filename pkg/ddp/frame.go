package ddp

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Message kinds carried in the msg field.
const (
	KindConnect   = "connect"
	KindConnected = "connected"
	KindMethod    = "method"
	KindResult    = "result"
	KindUpdated   = "updated"
	KindSub       = "sub"
	KindUnsub     = "unsub"
	KindNoSub     = "nosub"
	KindReady     = "ready"
	KindAdded     = "added"
	KindChanged   = "changed"
	KindPing      = "ping"
	KindPong      = "pong"
	KindError     = "error"
)

// Frame is one decoded protocol message, inbound or outbound.
type Frame struct {
	Msg              string          `json:"msg,omitempty"`
	ID               string          `json:"id,omitempty"`
	Method           string          `json:"method,omitempty"`
	Name             string          `json:"name,omitempty"`
	Params           []interface{}   `json:"params,omitempty"`
	Version          string          `json:"version,omitempty"`
	Support          []string        `json:"support,omitempty"`
	Session          string          `json:"session,omitempty"`
	ServerID         string          `json:"server_id,omitempty"`
	Collection       string          `json:"collection,omitempty"`
	Fields           json.RawMessage `json:"fields,omitempty"`
	Result           json.RawMessage `json:"result,omitempty"`
	Error            *Error          `json:"error,omitempty"`
	Reason           string          `json:"reason,omitempty"`
	OffendingMessage json.RawMessage `json:"offendingMessage,omitempty"`
}

// Error is the error payload of a result or nosub frame.
type Error struct {
	Code      json.RawMessage `json:"error,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Message   string          `json:"message,omitempty"`
	ErrorType string          `json:"errorType,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
}

// CodeString returns the error code whether the server sent it as a number or a string.
func (e *Error) CodeString() string {
	return strings.Trim(string(e.Code), `"`)
}

func (e *Error) String() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s [%s]", e.Reason, e.CodeString())
	}
	return e.CodeString()
}

// EventFields is the fields object of a changed frame emitted by a stream.
type EventFields struct {
	EventName string            `json:"eventName"`
	Args      []json.RawMessage `json:"args"`
}

// EventFields decodes the fields of a changed frame.
func (f *Frame) EventFields() (*EventFields, error) {
	if len(f.Fields) == 0 {
		return nil, fmt.Errorf("ddp: %s frame has no fields", f.Msg)
	}
	var fields EventFields
	if err := json.Unmarshal(f.Fields, &fields); err != nil {
		return nil, fmt.Errorf("ddp: decode fields: %w", err)
	}
	return &fields, nil
}

// Arg decodes the i-th positional event argument into v.
func (f *Frame) Arg(i int, v interface{}) error {
	fields, err := f.EventFields()
	if err != nil {
		return err
	}
	if i >= len(fields.Args) {
		return fmt.Errorf("ddp: event %q has %d args, want at least %d", f.Collection, len(fields.Args), i+1)
	}
	if err := json.Unmarshal(fields.Args[i], v); err != nil {
		return fmt.Errorf("ddp: decode arg %d: %w", i, err)
	}
	return nil
}

func newPong(id string) *Frame {
	return &Frame{Msg: KindPong, ID: id}
}
