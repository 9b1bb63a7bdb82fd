package realtime

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/raf924/rocketchat/pkg/ddp"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// NewConnectRequest builds the handshake sent once per connection.
func NewConnectRequest() *ddp.Frame {
	return &ddp.Frame{Msg: ddp.KindConnect, Version: "1", Support: []string{"1"}}
}

func NewMethodRequest(id, method string, params ...interface{}) *ddp.Frame {
	return &ddp.Frame{Msg: ddp.KindMethod, ID: id, Method: method, Params: params}
}

func NewSubscription(id, stream string, params ...interface{}) *ddp.Frame {
	return &ddp.Frame{Msg: ddp.KindSub, ID: id, Name: stream, Params: params}
}

type loginUser struct {
	Username string `json:"username"`
}

type loginPassword struct {
	Digest    string `json:"digest"`
	Algorithm string `json:"algorithm"`
}

type loginParams struct {
	User     loginUser     `json:"user"`
	Password loginPassword `json:"password"`
}

// NewLoginRequest logs in with a password. Only its SHA-256 digest goes on the wire.
func NewLoginRequest(id, username, password string) *ddp.Frame {
	digest := sha256.Sum256([]byte(password))
	return NewMethodRequest(id, "login", loginParams{
		User: loginUser{Username: username},
		Password: loginPassword{
			Digest:    hex.EncodeToString(digest[:]),
			Algorithm: "sha-256",
		},
	})
}

type resumeParams struct {
	Resume string `json:"resume"`
}

// NewResumeRequest logs in with the token of an earlier session.
func NewResumeRequest(id, token string) *ddp.Frame {
	return NewMethodRequest(id, "login", resumeParams{Resume: token})
}

func NewGetRoomsRequest(id string) *ddp.Frame {
	return NewMethodRequest(id, "rooms/get")
}

type outgoingMessage struct {
	ID       string `json:"_id"`
	RoomID   string `json:"rid"`
	Text     string `json:"msg"`
	ThreadID string `json:"tmid,omitempty"`
}

// NewSendMessageRequest posts text to a room, in the thread threadID if it is set.
// messageID is chosen by the client.
func NewSendMessageRequest(id, messageID, channelID, text, threadID string) *ddp.Frame {
	return NewMethodRequest(id, "sendMessage", outgoingMessage{
		ID:       messageID,
		RoomID:   channelID,
		Text:     text,
		ThreadID: threadID,
	})
}

func NewSetReactionRequest(id, messageID string, emoji Emoji) *ddp.Frame {
	return NewMethodRequest(id, "setReaction", string(emoji), messageID)
}

func NewTypingRequest(id, channelID, username string, typing bool) *ddp.Frame {
	return NewMethodRequest(id, StreamNotifyRoom, channelID+"/typing", username, typing)
}

type streamOptions struct {
	UseCollection bool          `json:"useCollection"`
	Args          []interface{} `json:"args"`
}

func NewRoomMessagesSubscription(id, channelID string) *ddp.Frame {
	return NewSubscription(id, StreamRoomMessages, channelID, streamOptions{Args: []interface{}{}})
}

func NewRoomsChangedSubscription(id, userID string) *ddp.Frame {
	return NewSubscription(id, StreamNotifyUser, userID+"/rooms-changed", false)
}

// Session is the outcome of a successful login.
type Session struct {
	UserID  string
	Token   string
	Expires *timestamppb.Timestamp
}

// date is the EJSON encoding of a point in time.
type date struct {
	Millis int64 `json:"$date"`
}

func (d *date) timestamp() *timestamppb.Timestamp {
	if d == nil {
		return nil
	}
	return timestamppb.New(time.UnixMilli(d.Millis))
}

type loginResult struct {
	ID           string `json:"id"`
	Token        string `json:"token"`
	TokenExpires *date  `json:"tokenExpires"`
}

func ParseLogin(result json.RawMessage) (*Session, error) {
	var r loginResult
	if err := json.Unmarshal(result, &r); err != nil {
		return nil, fmt.Errorf("decode login result: %w", err)
	}
	if r.ID == "" {
		return nil, fmt.Errorf("login result has no user id: %s", result)
	}
	return &Session{UserID: r.ID, Token: r.Token, Expires: r.TokenExpires.timestamp()}, nil
}

// Channel is a room the user is a member of.
type Channel struct {
	ID   string      `json:"_id"`
	Type ChannelType `json:"t"`
	Name string      `json:"name,omitempty"`
}

func ParseRooms(result json.RawMessage) ([]Channel, error) {
	var channels []Channel
	if err := json.Unmarshal(result, &channels); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}
	return channels, nil
}

func NewGetUsersOfRoomRequest(id, channelID string) *ddp.Frame {
	return NewMethodRequest(id, "getUsersOfRoom", channelID, true)
}

type roomUsers struct {
	Records []User `json:"records"`
}

func ParseRoomUsers(result json.RawMessage) ([]User, error) {
	var r roomUsers
	if err := json.Unmarshal(result, &r); err != nil {
		return nil, fmt.Errorf("decode room users: %w", err)
	}
	return r.Records, nil
}
