package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/raf924/rocketchat/pkg/ddp"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type User struct {
	ID       string `json:"_id"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
}

type Mention struct {
	ID       string `json:"_id"`
	Name     string `json:"name,omitempty"`
	Type     string `json:"type,omitempty"`
	Username string `json:"username,omitempty"`
}

type URL struct {
	URL     string                 `json:"url"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
	Headers map[string]string      `json:"headers,omitempty"`
}

// RoomMessage is one event of the stream-room-messages stream.
type RoomMessage struct {
	ID        string
	ChannelID string
	ThreadID  string
	Text      string
	Qualifier MessageQualifier
	Sender    User
	Timestamp *timestamppb.Timestamp
	UpdatedAt *timestamppb.Timestamp
	Mentions  []Mention
	URLs      []URL
	// Markdown is the parsed message body, left undecoded.
	Markdown json.RawMessage
}

type wireMessage struct {
	ID        string           `json:"_id"`
	RoomID    string           `json:"rid"`
	ThreadID  string           `json:"tmid"`
	Msg       string           `json:"msg"`
	T         MessageQualifier `json:"t"`
	U         User             `json:"u"`
	TS        *date            `json:"ts"`
	UpdatedAt *date            `json:"_updatedAt"`
	Mentions  []Mention        `json:"mentions"`
	URLs      []URL            `json:"urls"`
	MD        json.RawMessage  `json:"md"`
}

// UnwrapRoomMessage decodes the message carried in the first event argument.
func UnwrapRoomMessage(frame *ddp.Frame) (*RoomMessage, error) {
	var m wireMessage
	if err := frame.Arg(0, &m); err != nil {
		return nil, err
	}
	if m.ID == "" || m.RoomID == "" || m.U.ID == "" {
		return nil, fmt.Errorf("incomplete room message %q in room %q", m.ID, m.RoomID)
	}
	return &RoomMessage{
		ID:        m.ID,
		ChannelID: m.RoomID,
		ThreadID:  m.ThreadID,
		Text:      m.Msg,
		Qualifier: m.T,
		Sender:    m.U,
		Timestamp: m.TS.timestamp(),
		UpdatedAt: m.UpdatedAt.timestamp(),
		Mentions:  m.Mentions,
		URLs:      m.URLs,
		Markdown:  m.MD,
	}, nil
}

// RoomChange is one event of the <user id>/rooms-changed stream.
type RoomChange struct {
	Action      string
	ChannelID   string
	ChannelType ChannelType
	Name        string
}

// UnwrapRoomChange decodes the action from the first argument and the room from the second.
func UnwrapRoomChange(frame *ddp.Frame) (*RoomChange, error) {
	var action string
	if err := frame.Arg(0, &action); err != nil {
		return nil, err
	}
	var room Channel
	if err := frame.Arg(1, &room); err != nil {
		return nil, err
	}
	if room.ID == "" {
		return nil, fmt.Errorf("room change %q has no room id", action)
	}
	return &RoomChange{
		Action:      action,
		ChannelID:   room.ID,
		ChannelType: room.Type,
		Name:        room.Name,
	}, nil
}
